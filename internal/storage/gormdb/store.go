// Package gormdb is the Supabase-backed Store. It talks to the project's
// Postgres database through gorm, using the `profiles` and `hooks` tables the
// web app already owns.
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/tjfontaine/hookgen/internal/storage"
	"github.com/tjfontaine/hookgen/internal/storage/dialect"
)

// Profile is a row of the Supabase profiles table.
type Profile struct {
	UserID    string    `gorm:"column:user_id;primaryKey;type:text"`
	Tokens    int       `gorm:"column:tokens;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// HookRecord is a row of the Supabase hooks table.
type HookRecord struct {
	ID        string    `gorm:"column:id;primaryKey;type:text"`
	Topic     string    `gorm:"column:topic;not null;type:text"`
	Hooks     []string  `gorm:"column:hooks;not null;type:text;serializer:json"`
	Source    string    `gorm:"column:source;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (HookRecord) TableName() string {
	return "hooks"
}

// Store implements storage.Store over gorm.
type Store struct {
	db      *gorm.DB
	dialect dialect.Dialect
}

var _ storage.Store = (*Store)(nil)

// Options controls connection setup.
type Options struct {
	// AutoMigrate creates the tables when missing. Leave off against a
	// managed Supabase schema.
	AutoMigrate bool
}

// Open connects to the Supabase Postgres database at dsn.
func Open(dsn string, opts Options) (*Store, error) {
	return New(postgres.Open(dsn), opts)
}

// New builds a store on any gorm dialector.
func New(dialector gorm.Dialector, opts Options) (*Store, error) {
	d, err := dialect.FromDriverName(dialector.Name())
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Supabase database: %w", err)
	}

	if opts.AutoMigrate {
		if err := db.AutoMigrate(&Profile{}, &HookRecord{}); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	return &Store{db: db, dialect: d}, nil
}

func (s *Store) GetBalance(ctx context.Context, userID string) (*storage.Balance, error) {
	var p Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return toBalance(&p), nil
}

func (s *Store) SetBalance(ctx context.Context, userID string, tokens int) (*storage.Balance, error) {
	p := Profile{UserID: userID, Tokens: max(tokens, 0), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tokens", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("failed to set profile tokens: %w", err)
	}
	return s.GetBalance(ctx, userID)
}

func (s *Store) GrantTokens(ctx context.Context, userID string, delta int) (*storage.Balance, error) {
	res := s.db.WithContext(ctx).Model(&Profile{}).
		Where("user_id = ?", userID).
		Update("tokens", gorm.Expr("CASE WHEN tokens + ? < 0 THEN 0 ELSE tokens + ? END", delta, delta))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to grant tokens: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return s.GetBalance(ctx, userID)
}

func (s *Store) DebitBalance(ctx context.Context, userID string) (int, error) {
	var updated []Profile
	res := s.db.WithContext(ctx).Model(&updated).
		Clauses(clause.Returning{}).
		Where("user_id = ? AND tokens > 0", userID).
		Update("tokens", gorm.Expr("tokens - 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to debit profile: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(updated) == 0 {
		if _, err := s.GetBalance(ctx, userID); err != nil {
			return 0, err
		}
		return 0, storage.ErrInsufficientTokens
	}
	return updated[0].Tokens, nil
}

func (s *Store) FindHookSet(ctx context.Context, topic string) (*storage.HookSet, error) {
	var rec HookRecord
	err := s.db.WithContext(ctx).
		Where(s.dialect.ContainsFold("topic"), storage.LikePattern(topic)).
		Order("created_at DESC").
		Limit(1).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying hooks: %w", err)
	}

	return &storage.HookSet{
		ID:        rec.ID,
		Topic:     rec.Topic,
		Hooks:     rec.Hooks,
		Source:    rec.Source,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Store) SaveHookSet(ctx context.Context, set *storage.HookSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now()
	}
	set.CreatedAt = set.CreatedAt.UTC()

	rec := &HookRecord{
		ID:        set.ID,
		Topic:     set.Topic,
		Hooks:     set.Hooks,
		Source:    set.Source,
		CreatedAt: set.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("error saving to Supabase database: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toBalance(p *Profile) *storage.Balance {
	return &storage.Balance{UserID: p.UserID, Tokens: p.Tokens, UpdatedAt: p.UpdatedAt}
}
