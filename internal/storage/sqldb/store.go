// Package sqldb is the sqlx-backed Store for SQLite and PostgreSQL.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/hookgen/internal/storage"
	"github.com/tjfontaine/hookgen/internal/storage/dialect"
)

// Store is a SQL implementation of storage.Store that supports multiple
// database dialects.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

var _ storage.Store = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres
	DSN    string // Data source name / connection string
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serialize through one connection
	if d.Name() == string(dialect.SQLite) {
		db.SetMaxOpenConns(1)
	}

	// Run dialect-specific initialization (e.g., PRAGMA for SQLite)
	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite creates a new SQLite store.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the dialect being used
func (s *Store) Dialect() dialect.Dialect {
	return s.dialect
}

func (s *Store) initSchema() error {
	ts := s.dialect.TimestampType()
	text := s.dialect.TextType()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS balances (
			user_id %[2]s PRIMARY KEY,
			tokens INTEGER NOT NULL DEFAULT 0 CHECK (tokens >= 0),
			updated_at %[1]s NOT NULL
		)`, ts, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS hook_sets (
			id %[2]s PRIMARY KEY,
			topic %[2]s NOT NULL,
			hooks %[2]s NOT NULL,
			source %[2]s NOT NULL,
			created_at %[1]s NOT NULL
		)`, ts, text),
		`CREATE INDEX IF NOT EXISTS idx_hook_sets_created_at ON hook_sets(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, userID string) (*storage.Balance, error) {
	query := s.dialect.Rebind(`SELECT user_id, tokens, updated_at FROM balances WHERE user_id = ?`)

	var b storage.Balance
	err := s.db.GetContext(ctx, &b, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &b, nil
}

func (s *Store) SetBalance(ctx context.Context, userID string, tokens int) (*storage.Balance, error) {
	query := s.dialect.Rebind(`INSERT INTO balances (user_id, tokens, updated_at) VALUES (?, ?, ?) ` +
		s.dialect.UpsertClause("user_id", []string{"tokens", "updated_at"}))

	if _, err := s.db.ExecContext(ctx, query, userID, max(tokens, 0), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	return s.GetBalance(ctx, userID)
}

func (s *Store) GrantTokens(ctx context.Context, userID string, delta int) (*storage.Balance, error) {
	query := s.dialect.Rebind(`UPDATE balances
		SET tokens = CASE WHEN tokens + ? < 0 THEN 0 ELSE tokens + ? END, updated_at = ?
		WHERE user_id = ?`)

	res, err := s.db.ExecContext(ctx, query, delta, delta, time.Now().UTC(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to grant tokens: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetBalance(ctx, userID)
}

// requireRow maps an UPDATE that touched no rows to storage.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DebitBalance decrements in a single conditional UPDATE so concurrent
// requests can never drive tokens below zero.
func (s *Store) DebitBalance(ctx context.Context, userID string) (int, error) {
	query := s.dialect.Rebind(`UPDATE balances SET tokens = tokens - 1, updated_at = ?
		WHERE user_id = ? AND tokens > 0 RETURNING tokens`)

	var remaining int
	err := s.db.QueryRowxContext(ctx, query, time.Now().UTC(), userID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetBalance(ctx, userID); getErr != nil {
			return 0, getErr
		}
		return 0, storage.ErrInsufficientTokens
	}
	if err != nil {
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}
	return remaining, nil
}

type hookSetRow struct {
	ID        string    `db:"id"`
	Topic     string    `db:"topic"`
	Hooks     string    `db:"hooks"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Store) FindHookSet(ctx context.Context, topic string) (*storage.HookSet, error) {
	query := s.dialect.Rebind(`SELECT id, topic, hooks, source, created_at FROM hook_sets
		WHERE ` + s.dialect.ContainsFold("topic") + `
		ORDER BY created_at DESC LIMIT 1`)

	var row hookSetRow
	err := s.db.GetContext(ctx, &row, query, storage.LikePattern(topic))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find hook set: %w", err)
	}

	set := &storage.HookSet{ID: row.ID, Topic: row.Topic, Source: row.Source, CreatedAt: row.CreatedAt}
	if err := json.Unmarshal([]byte(row.Hooks), &set.Hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hooks: %w", err)
	}
	return set, nil
}

func (s *Store) SaveHookSet(ctx context.Context, set *storage.HookSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now()
	}
	set.CreatedAt = set.CreatedAt.UTC()

	hooks, err := json.Marshal(set.Hooks)
	if err != nil {
		return fmt.Errorf("failed to marshal hooks: %w", err)
	}

	query := s.dialect.Rebind(`INSERT INTO hook_sets (id, topic, hooks, source, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, set.ID, set.Topic, string(hooks), set.Source, set.CreatedAt); err != nil {
		return fmt.Errorf("failed to save hook set: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
