// Package pg stores loadables in PostgreSQL.
//
// The table layout matches the local bbolt store, so the two backends are
// interchangeable behind loadable.Store. Select it with storage.backend: postgres.
package pg

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
)

//go:embed schema.sql
var schema string

// Querier is satisfied by *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Config holds connection settings
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Dbname   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns settings for a local server
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "clover",
		Dbname:          "clover",
		SSLMode:         "disable",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func (c Config) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Dbname, sslMode)
}

// Connect opens and pings the database
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// WithTx runs fn in a transaction, rolling back when fn fails
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Storage implements loadable.Store on a PostgreSQL table
type Storage struct {
	db *sql.DB
}

var _ loadable.Store = (*Storage)(nil)

// New connects and creates the loadable table if needed
func New(ctx context.Context, cfg Config) (*Storage, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Storage{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the table and its indexes
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create loadable table: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

const columns = `id, site, mode, board, no, title, list_view_index, list_view_top, last_viewed, last_loaded`

// uniqueViolation is the SQLSTATE for a duplicate key
const uniqueViolation = "23505"

// isUniqueViolation reports whether err comes from a unique index
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func scanLoadable(row interface{ Scan(...any) error }) (*loadable.Loadable, error) {
	l := loadable.Empty()
	var mode int
	err := row.Scan(&l.ID, &l.SiteID, &mode, &l.BoardCode, &l.No, &l.Title,
		&l.ListViewIndex, &l.ListViewTop, &l.LastViewed, &l.LastLoaded)
	if err != nil {
		return nil, err
	}
	l.Mode = loadable.Mode(mode)
	return l, nil
}

// findQuery returns the lookup for key. Catalog keys ignore the thread number.
func findQuery(key loadable.Key) (string, []any) {
	if key.Mode() == loadable.ModeThread {
		return `SELECT ` + columns + ` FROM loadable
			WHERE site = $1 AND mode = $2 AND board = $3 AND no = $4
			ORDER BY id LIMIT 1`,
			[]any{key.SiteID(), int(key.Mode()), key.BoardCode(), key.No()}
	}
	return `SELECT ` + columns + ` FROM loadable
		WHERE site = $1 AND mode = $2 AND board = $3
		ORDER BY id LIMIT 1`,
		[]any{key.SiteID(), int(key.Mode()), key.BoardCode()}
}

func find(ctx context.Context, q Querier, key loadable.Key) (*loadable.Loadable, error) {
	query, args := findQuery(key)
	l, err := scanLoadable(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find loadable %s: %w", key, err)
	}
	return l, nil
}

func (s *Storage) Find(ctx context.Context, key loadable.Key) (*loadable.Loadable, error) {
	if !key.IsValid() {
		return nil, domain.ErrInvalidLoadable
	}
	return find(ctx, s.db, key)
}

func (s *Storage) Get(ctx context.Context, id int) (*loadable.Loadable, error) {
	l, err := scanLoadable(s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM loadable WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get loadable %d: %w", id, err)
	}
	return l, nil
}

func (s *Storage) List(ctx context.Context) ([]*loadable.Loadable, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM loadable ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list loadables: %w", err)
	}
	defer rows.Close()

	var out []*loadable.Loadable
	for rows.Next() {
		l, err := scanLoadable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Insert stores l and assigns l.ID. An existing row with the same identity
// yields domain.ErrAlreadyExists.
func (s *Storage) Insert(ctx context.Context, l *loadable.Loadable) error {
	key := l.Key()
	if !key.IsValid() {
		return domain.ErrInvalidLoadable
	}

	var id int
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := find(ctx, tx, key)
		switch {
		case err == nil:
			return fmt.Errorf("loadable %s: %w", key, domain.ErrAlreadyExists)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO loadable (site, mode, board, no, title, list_view_index, list_view_top, last_viewed, last_loaded)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			l.SiteID, int(l.Mode), l.BoardCode, l.No, l.Title,
			l.ListViewIndex, l.ListViewTop, l.LastViewed, l.LastLoaded,
		).Scan(&id)
	})
	if isUniqueViolation(err) {
		// Lost a race with a concurrent insert of the same identity
		return fmt.Errorf("loadable %s: %w", key, domain.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (s *Storage) Update(ctx context.Context, l *loadable.Loadable) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE loadable SET site = $2, mode = $3, board = $4, no = $5, title = $6,
			list_view_index = $7, list_view_top = $8, last_viewed = $9, last_loaded = $10
		WHERE id = $1`,
		l.ID, l.SiteID, int(l.Mode), l.BoardCode, l.No, l.Title,
		l.ListViewIndex, l.ListViewTop, l.LastViewed, l.LastLoaded)
	if isUniqueViolation(err) {
		return fmt.Errorf("loadable %s: %w", l.Key(), domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("update loadable %d: %w", l.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, id int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM loadable WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete loadable %d: %w", id, err)
	}
	return nil
}
