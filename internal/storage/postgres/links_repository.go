package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LinksRepository struct {
	db *gorm.DB
}

func NewLinksRepository(p *db.Postgres) (*LinksRepository, error) {
	if p == nil || p.DB == nil {
		return nil, errors.New("postgres handle is nil")
	}
	return &LinksRepository{db: p.DB}, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	row := linkRow{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Title:       link.Title,
		OwnerID:     link.OwnerID,
		CreatedAt:   link.CreatedAt.UTC(),
		ExpiresAt:   link.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return links.ErrCodeTaken
		}
		return err
	}
	link.ID = row.ID.String()
	return nil
}

func (r *LinksRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&linkRow{}).Where("short_code = ?", code).Limit(1).Count(&n).Error
	return n > 0, err
}

func (r *LinksRepository) FindByCode(ctx context.Context, code string) (*links.Link, error) {
	return r.first(r.db.WithContext(ctx).Where("short_code = ?", code))
}

func (r *LinksRepository) FindByID(ctx context.Context, id string) (*links.Link, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, links.ErrNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("id = ?", uid))
}

func (r *LinksRepository) FindActiveByOriginalURL(ctx context.Context, url string, now time.Time) (*links.Link, error) {
	return r.first(r.db.WithContext(ctx).
		Where("original_url = ? AND (expires_at IS NULL OR expires_at >= ?)", url, now.UTC()).
		Order("created_at ASC"))
}

func (r *LinksRepository) ListByOwner(ctx context.Context, ownerID string) ([]links.Link, error) {
	var rows []linkRow
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]links.Link, 0, len(rows))
	for _, row := range rows {
		out = append(out, *mapLinkRow(row))
	}
	return out, nil
}

func (r *LinksRepository) CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&linkRow{}).
		Where("owner_id = ? AND created_at >= ?", ownerID, since.UTC()).
		Count(&n).Error
	return n, err
}

func (r *LinksRepository) UpdateTitle(ctx context.Context, id, ownerID, title string) (*links.Link, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, links.ErrNotFound
	}

	var row linkRow
	res := r.db.WithContext(ctx).Model(&row).
		Clauses(clause.Returning{}).
		Where("id = ? AND owner_id = ?", uid, ownerID).
		Update("title", title)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, links.ErrNotFound
	}
	return mapLinkRow(row), nil
}

func (r *LinksRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	uid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", uid, ownerID).Delete(&linkRow{})
	return res.RowsAffected > 0, res.Error
}

// IncrementVisits issues UPDATE ... SET visits = visits + 1.
func (r *LinksRepository) IncrementVisits(ctx context.Context, id string) error {
	uid, ok := parseID(id)
	if !ok {
		return links.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&linkRow{}).Where("id = ?", uid).
		UpdateColumn("visits", gorm.Expr("visits + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) first(q *gorm.DB) (*links.Link, error) {
	var row linkRow
	if err := q.First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, links.ErrNotFound
		}
		return nil, err
	}
	return mapLinkRow(row), nil
}

func mapLinkRow(row linkRow) *links.Link {
	return &links.Link{
		ID:          row.ID.String(),
		ShortCode:   row.ShortCode,
		OriginalURL: row.OriginalURL,
		Title:       row.Title,
		OwnerID:     row.OwnerID,
		CreatedAt:   row.CreatedAt,
		ExpiresAt:   row.ExpiresAt,
		Visits:      row.Visits,
	}
}
