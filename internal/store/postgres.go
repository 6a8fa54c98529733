package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/teamtrack/volley-live-backend/internal/engine"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres persists match state via gorm. Set and action ordering relies on
// the set number and server-assigned seq, so reads sort on those.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&matchRow{}, &setRow{}, &actionRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) CreateMatch(ctx context.Context, m engine.Match) error {
	row, err := toRow(m)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Create(&row).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("match %s: %w", m.ID, ErrAlreadyExists)
	}
	return err
}

func (s *Postgres) GetMatch(ctx context.Context, id string) (engine.Match, error) {
	var row matchRow
	err := s.db.WithContext(ctx).
		Preload("Sets", func(db *gorm.DB) *gorm.DB { return db.Order("sets.number") }).
		Preload("Sets.Actions", func(db *gorm.DB) *gorm.DB { return db.Order("actions.seq") }).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.Match{}, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return engine.Match{}, err
	}
	return fromRow(row)
}

func (s *Postgres) ListMatches(ctx context.Context) ([]engine.Match, error) {
	var rows []matchRow
	err := s.db.WithContext(ctx).
		Preload("Sets", func(db *gorm.DB) *gorm.DB { return db.Order("sets.number") }).
		Preload("Sets.Actions", func(db *gorm.DB) *gorm.DB { return db.Order("actions.seq") }).
		Order("matches.id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]engine.Match, 0, len(rows))
	for _, row := range rows {
		m, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// SaveMatch rewrites the match's sets and actions inside one transaction.
// Match payloads are a handful of rows, and a snapshot write keeps undo (a
// deleted action) trivially consistent with the authoritative state.
func (s *Postgres) SaveMatch(ctx context.Context, m engine.Match) error {
	row, err := toRow(m)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing matchRow
		if err := tx.Select("id").First(&existing, "id = ?", m.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("match %s: %w", m.ID, ErrNotFound)
			}
			return err
		}
		if err := tx.Where("match_id = ?", m.ID).Delete(&actionRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("match_id = ?", m.ID).Delete(&setRow{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	})
}
