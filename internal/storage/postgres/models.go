package postgres

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type linkRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShortCode   string    `gorm:"type:text;uniqueIndex;not null"`
	OriginalURL string    `gorm:"type:text;not null;index:idx_links_original_created,priority:1"`
	Title       string    `gorm:"type:text;not null"`
	OwnerID     *string   `gorm:"type:text;index:idx_links_owner_created,priority:1"`
	CreatedAt   time.Time `gorm:"not null;index:idx_links_original_created,priority:2;index:idx_links_owner_created,priority:2,sort:desc"`
	ExpiresAt   *time.Time
	Visits      int64 `gorm:"not null;default:0"`
}

func (linkRow) TableName() string { return "links" }

func (m *linkRow) BeforeCreate(tx *gorm.DB) (err error) {
	m.ID = uuid.New()
	return
}

type visitRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID    string    `gorm:"type:text;uniqueIndex;not null"`
	LinkID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Referrer   string    `gorm:"type:text"`
	UserAgent  string    `gorm:"type:text"`
	OccurredAt time.Time `gorm:"not null"`
	Applied    bool      `gorm:"not null;default:false"`
}

func (visitRow) TableName() string { return "visits" }

func (m *visitRow) BeforeCreate(tx *gorm.DB) (err error) {
	m.ID = uuid.New()
	return
}

type unlockerRow struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID        string    `gorm:"type:text;index;not null"`
	Sequence       []string  `gorm:"serializer:json;not null"`
	DestinationURL string    `gorm:"type:text;not null"`
	Title          string    `gorm:"type:text"`
	Clicks         int64     `gorm:"not null;default:0"`
	Unlocks        int64     `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"not null"`
	ExpiresAt      time.Time `gorm:"not null"`
}

func (unlockerRow) TableName() string { return "unlockers" }

func (m *unlockerRow) BeforeCreate(tx *gorm.DB) (err error) {
	m.ID = uuid.New()
	return
}

type userRow struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email            string    `gorm:"type:text;uniqueIndex;not null"`
	DisplayName      string    `gorm:"type:text;not null"`
	PasswordHash     string    `gorm:"type:text"`
	Provider         string    `gorm:"type:text;not null"`
	MonthlyLinkLimit *int
	CreatedAt        time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

func (m *userRow) BeforeCreate(tx *gorm.DB) (err error) {
	m.ID = uuid.New()
	return
}

type bioCardRow struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey"`
	OwnerID   string       `gorm:"type:text;index;not null"`
	Slug      string       `gorm:"type:text;uniqueIndex;not null"`
	Title     string       `gorm:"type:text;not null"`
	Bio       string       `gorm:"type:text"`
	Links     []cardLinkJS `gorm:"serializer:json;not null"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

type cardLinkJS struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

func (bioCardRow) TableName() string { return "bio_cards" }

func (m *bioCardRow) BeforeCreate(tx *gorm.DB) (err error) {
	m.ID = uuid.New()
	return
}

// Migrate creates or updates every table used by the postgres backend.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userRow{},
		&linkRow{},
		&visitRow{},
		&unlockerRow{},
		&bioCardRow{},
	)
}

func parseID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	return parsed, err == nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
