// Package sqlstore provides a ContentStore on database/sql, backed by SQLite
// (modernc.org/sqlite, no cgo) or PostgreSQL (lib/pq).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/plotforge/pkg/domain"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const table = "plotforge_content"

// Store implements ports.ContentStore as a single key/value table.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the content table if needed.
// For sqlite the dsn is a file path; for postgres a lib/pq connection string.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("storage dsn is required")
	}

	switch driver {
	case DriverSQLite:
		dsn = filepath.Clean(dsn) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create content table: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
		content_key   TEXT PRIMARY KEY,
		content_value TEXT NOT NULL
	)`)
	return err
}

// bind rewrites '?' placeholders to '$n' for postgres.
func (s *Store) bind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get retrieves the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT content_value FROM `+table+` WHERE content_key = ?`), key)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set upserts the value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO `+table+` (content_key, content_value) VALUES (?, ?)
		ON CONFLICT (content_key) DO UPDATE SET content_value = excluded.content_value`), key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM `+table+` WHERE content_key = ?`), key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix, sorted bytewise.
// substr avoids LIKE, which is case-insensitive in SQLite.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.bind(`SELECT content_key FROM `+table+` WHERE substr(content_key, 1, ?) = ?`),
		utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
