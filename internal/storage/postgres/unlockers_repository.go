package postgres

import (
	"context"
	"errors"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/unlocker"
	"gorm.io/gorm"
)

type UnlockersRepository struct {
	db *gorm.DB
}

func NewUnlockersRepository(p *db.Postgres) (*UnlockersRepository, error) {
	if p == nil || p.DB == nil {
		return nil, errors.New("postgres handle is nil")
	}
	return &UnlockersRepository{db: p.DB}, nil
}

func (r *UnlockersRepository) Insert(ctx context.Context, u *unlocker.Unlocker) error {
	seq := make([]string, len(u.Sequence))
	for i, c := range u.Sequence {
		seq[i] = string(c)
	}
	row := unlockerRow{
		OwnerID:        u.OwnerID,
		Sequence:       seq,
		DestinationURL: u.DestinationURL,
		Title:          u.Title,
		CreatedAt:      u.CreatedAt.UTC(),
		ExpiresAt:      u.ExpiresAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	u.ID = row.ID.String()
	return nil
}

func (r *UnlockersRepository) FindByID(ctx context.Context, id string) (*unlocker.Unlocker, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, unlocker.ErrNotFound
	}
	var row unlockerRow
	if err := r.db.WithContext(ctx).Where("id = ?", uid).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, unlocker.ErrNotFound
		}
		return nil, err
	}
	return mapUnlockerRow(row), nil
}

func (r *UnlockersRepository) ListByOwner(ctx context.Context, ownerID string) ([]unlocker.Unlocker, error) {
	var rows []unlockerRow
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]unlocker.Unlocker, 0, len(rows))
	for _, row := range rows {
		out = append(out, *mapUnlockerRow(row))
	}
	return out, nil
}

func (r *UnlockersRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	uid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", uid, ownerID).Delete(&unlockerRow{})
	return res.RowsAffected > 0, res.Error
}

func (r *UnlockersRepository) IncrementClicks(ctx context.Context, id string) error {
	return r.inc(ctx, id, "clicks")
}

func (r *UnlockersRepository) IncrementUnlocks(ctx context.Context, id string) error {
	return r.inc(ctx, id, "unlocks")
}

func (r *UnlockersRepository) inc(ctx context.Context, id, column string) error {
	uid, ok := parseID(id)
	if !ok {
		return unlocker.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&unlockerRow{}).Where("id = ?", uid).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return unlocker.ErrNotFound
	}
	return nil
}

func mapUnlockerRow(row unlockerRow) *unlocker.Unlocker {
	seq := make([]unlocker.Color, len(row.Sequence))
	for i, c := range row.Sequence {
		seq[i] = unlocker.Color(c)
	}
	return &unlocker.Unlocker{
		ID:             row.ID.String(),
		OwnerID:        row.OwnerID,
		Sequence:       seq,
		DestinationURL: row.DestinationURL,
		Title:          row.Title,
		Clicks:         row.Clicks,
		Unlocks:        row.Unlocks,
		CreatedAt:      row.CreatedAt,
		ExpiresAt:      row.ExpiresAt,
	}
}
