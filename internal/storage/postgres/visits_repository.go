package postgres

import (
	"context"
	"errors"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"gorm.io/gorm"
)

type VisitsRepository struct {
	db *gorm.DB
}

func NewVisitsRepository(p *db.Postgres) (*VisitsRepository, error) {
	if p == nil || p.DB == nil {
		return nil, errors.New("postgres handle is nil")
	}
	return &VisitsRepository{db: p.DB}, nil
}

func (r *VisitsRepository) Append(ctx context.Context, ev links.VisitEvent) error {
	linkID, ok := parseID(ev.LinkID)
	if !ok {
		return links.ErrNotFound
	}
	err := r.db.WithContext(ctx).Create(&visitRow{
		EventID:    ev.EventID,
		LinkID:     linkID,
		Referrer:   ev.Referrer,
		UserAgent:  ev.UserAgent,
		OccurredAt: ev.OccurredAt.UTC(),
	}).Error
	if isDuplicate(err) {
		return links.ErrDuplicateVisit
	}
	return err
}

func (r *VisitsRepository) Applied(ctx context.Context, eventID string) (bool, error) {
	var row visitRow
	err := r.db.WithContext(ctx).Select("applied").Where("event_id = ?", eventID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return row.Applied, nil
}

func (r *VisitsRepository) MarkApplied(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).Model(&visitRow{}).
		Where("event_id = ?", eventID).
		Update("applied", true).Error
}
