package postgres

import (
	"context"
	"errors"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/accounts"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsersRepository struct {
	db *gorm.DB
}

func NewUsersRepository(p *db.Postgres) (*UsersRepository, error) {
	if p == nil || p.DB == nil {
		return nil, errors.New("postgres handle is nil")
	}
	return &UsersRepository{db: p.DB}, nil
}

func (r *UsersRepository) Insert(ctx context.Context, u *accounts.User) error {
	row := userRow{
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		PasswordHash:     u.PasswordHash,
		Provider:         u.Provider,
		MonthlyLinkLimit: u.MonthlyLinkLimit,
		CreatedAt:        u.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return accounts.ErrEmailTaken
		}
		return err
	}
	u.ID = row.ID.String()
	return nil
}

func (r *UsersRepository) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *UsersRepository) FindByID(ctx context.Context, id string) (*accounts.User, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("id = ?", uid))
}

func (r *UsersRepository) List(ctx context.Context, limit, offset int) ([]accounts.User, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).Order("created_at ASC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]accounts.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, *mapUserRow(row))
	}
	return out, nil
}

func (r *UsersRepository) UpdateDisplayName(ctx context.Context, id, name string) (*accounts.User, error) {
	return r.update(ctx, id, map[string]any{"display_name": name})
}

// SetMonthlyLinkLimit writes NULL when limit is nil.
func (r *UsersRepository) SetMonthlyLinkLimit(ctx context.Context, id string, limit *int) (*accounts.User, error) {
	return r.update(ctx, id, map[string]any{"monthly_link_limit": limit})
}

func (r *UsersRepository) update(ctx context.Context, id string, values map[string]any) (*accounts.User, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, accounts.ErrNotFound
	}
	var row userRow
	res := r.db.WithContext(ctx).Model(&row).Clauses(clause.Returning{}).Where("id = ?", uid).Updates(values)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, accounts.ErrNotFound
	}
	return mapUserRow(row), nil
}

func (r *UsersRepository) first(q *gorm.DB) (*accounts.User, error) {
	var row userRow
	if err := q.First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, accounts.ErrNotFound
		}
		return nil, err
	}
	return mapUserRow(row), nil
}

func mapUserRow(row userRow) *accounts.User {
	return &accounts.User{
		ID:               row.ID.String(),
		Email:            row.Email,
		DisplayName:      row.DisplayName,
		PasswordHash:     row.PasswordHash,
		Provider:         row.Provider,
		MonthlyLinkLimit: row.MonthlyLinkLimit,
		CreatedAt:        row.CreatedAt,
	}
}
