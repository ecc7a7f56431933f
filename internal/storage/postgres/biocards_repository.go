package postgres

import (
	"context"
	"errors"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/biocards"
	"gorm.io/gorm"
)

type BioCardsRepository struct {
	db *gorm.DB
}

func NewBioCardsRepository(p *db.Postgres) (*BioCardsRepository, error) {
	if p == nil || p.DB == nil {
		return nil, errors.New("postgres handle is nil")
	}
	return &BioCardsRepository{db: p.DB}, nil
}

func (r *BioCardsRepository) Insert(ctx context.Context, c *biocards.Card) error {
	row := toBioCardRow(c)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return biocards.ErrSlugTaken
		}
		return err
	}
	c.ID = row.ID.String()
	return nil
}

func (r *BioCardsRepository) Update(ctx context.Context, c *biocards.Card) error {
	uid, ok := parseID(c.ID)
	if !ok {
		return biocards.ErrNotFound
	}
	row := toBioCardRow(c)
	res := r.db.WithContext(ctx).Model(&bioCardRow{}).
		Where("id = ? AND owner_id = ?", uid, c.OwnerID).
		Select("slug", "title", "bio", "links", "updated_at").
		Updates(&row)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return biocards.ErrSlugTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return biocards.ErrNotFound
	}
	return nil
}

func (r *BioCardsRepository) FindByID(ctx context.Context, id string) (*biocards.Card, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, biocards.ErrNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("id = ?", uid))
}

func (r *BioCardsRepository) FindBySlug(ctx context.Context, slug string) (*biocards.Card, error) {
	return r.first(r.db.WithContext(ctx).Where("slug = ?", slug))
}

func (r *BioCardsRepository) ListByOwner(ctx context.Context, ownerID string) ([]biocards.Card, error) {
	var rows []bioCardRow
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]biocards.Card, 0, len(rows))
	for _, row := range rows {
		out = append(out, *mapBioCardRow(row))
	}
	return out, nil
}

func (r *BioCardsRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	uid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", uid, ownerID).Delete(&bioCardRow{})
	return res.RowsAffected > 0, res.Error
}

func (r *BioCardsRepository) first(q *gorm.DB) (*biocards.Card, error) {
	var row bioCardRow
	if err := q.First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, biocards.ErrNotFound
		}
		return nil, err
	}
	return mapBioCardRow(row), nil
}

func toBioCardRow(c *biocards.Card) bioCardRow {
	links := make([]cardLinkJS, len(c.Links))
	for i, l := range c.Links {
		links[i] = cardLinkJS{Label: l.Label, URL: l.URL}
	}
	return bioCardRow{
		OwnerID:   c.OwnerID,
		Slug:      c.Slug,
		Title:     c.Title,
		Bio:       c.Bio,
		Links:     links,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func mapBioCardRow(row bioCardRow) *biocards.Card {
	links := make([]biocards.CardLink, len(row.Links))
	for i, l := range row.Links {
		links[i] = biocards.CardLink{Label: l.Label, URL: l.URL}
	}
	return &biocards.Card{
		ID:        row.ID.String(),
		OwnerID:   row.OwnerID,
		Slug:      row.Slug,
		Title:     row.Title,
		Bio:       row.Bio,
		Links:     links,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
