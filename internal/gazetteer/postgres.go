package gazetteer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/address-tagger/internal/phonetic"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS gazetteer_names (
	category   TEXT NOT NULL,
	name       TEXT NOT NULL,
	metaphone1 TEXT NOT NULL DEFAULT '',
	metaphone2 TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_gazetteer_names_name ON gazetteer_names (name);
CREATE INDEX IF NOT EXISTS idx_gazetteer_names_metaphone1 ON gazetteer_names (metaphone1);
CREATE INDEX IF NOT EXISTS idx_gazetteer_names_metaphone2 ON gazetteer_names (metaphone2);
`

const (
	exactQuery = `SELECT DISTINCT category FROM gazetteer_names
		WHERE name = $1 AND category = ANY($2)`
	phoneticQuery = `SELECT DISTINCT category FROM gazetteer_names
		WHERE category = ANY($1) AND (metaphone1 = ANY($2) OR metaphone2 = ANY($2))`
	insertQuery = `INSERT INTO gazetteer_names (category, name, metaphone1, metaphone2)
		VALUES ($1, $2, $3, $4)`
	selectAllQuery   = `SELECT category, name FROM gazetteer_names`
	fingerprintQuery = `SELECT COUNT(*), COALESCE(md5(string_agg(category || E'\t' || name, E'\n' ORDER BY category, name)), '')
		FROM gazetteer_names`
)

// OpenPostgres opens and pings a Postgres connection pool.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	return db, nil
}

// SQLStore answers lookups directly from Postgres. Names are stored uppercased
// and each row carries both phonetic codes computed by the shared encoder.
type SQLStore struct {
	db       *sql.DB
	priority []Category
	encoder  *phonetic.Encoder
	logger   *zap.Logger

	// lookupTimeout bounds each classify query.
	lookupTimeout time.Duration
}

const defaultLookupTimeout = 2 * time.Second

// NewSQLStore verifies the connection and returns a store. A failed ping is
// reported as ErrStoreUnavailable.
func NewSQLStore(ctx context.Context, db *sql.DB, priority []Category, encoder *phonetic.Encoder, logger *zap.Logger) (*SQLStore, error) {
	if len(priority) == 0 {
		priority = DefaultPriority()
	}
	if encoder == nil {
		encoder = phonetic.NewEncoder()
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return &SQLStore{db: db, priority: priority, encoder: encoder, logger: logger, lookupTimeout: defaultLookupTimeout}, nil
}

// ClassifyExact returns the highest-priority category containing name.
func (s *SQLStore) ClassifyExact(name string) (Category, bool) {
	key := upperKey(name)
	if key == "" {
		return "", false
	}
	return s.pick(exactQuery, key, pq.Array(priorityStrings(s.priority)))
}

// ClassifyPhonetic returns the highest-priority category with an entry sharing
// either of name's phonetic codes.
func (s *SQLStore) ClassifyPhonetic(name string) (Category, bool) {
	codes := s.encoder.Encode(name)
	if codes.Empty() {
		return "", false
	}
	var list []string
	codes.Each(func(code string) { list = append(list, code) })

	return s.pick(phoneticQuery, pq.Array(priorityStrings(s.priority)), pq.Array(list))
}

// pick runs a query returning matching categories and applies the priority order.
// Driver errors and timeouts are logged and treated as a miss.
func (s *SQLStore) pick(query string, args ...interface{}) (Category, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.lookupTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Warn("Gazetteer lookup failed", zap.Error(err))
		return "", false
	}
	defer rows.Close()

	found := make(map[Category]bool)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			s.logger.Warn("Gazetteer row scan failed", zap.Error(err))
			return "", false
		}
		found[Category(category)] = true
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("Gazetteer lookup failed", zap.Error(err))
		return "", false
	}

	for _, c := range s.priority {
		if found[c] {
			return c, true
		}
	}
	return "", false
}

// Fingerprint identifies the table contents; it is used as the gazetteer
// version when lookups go to Postgres.
func (s *SQLStore) Fingerprint(ctx context.Context) (string, error) {
	var (
		count int64
		sum   string
	)
	if err := s.db.QueryRowContext(ctx, fingerprintQuery).Scan(&count, &sum); err != nil {
		return "", fmt.Errorf("fingerprint gazetteer: %w", err)
	}
	return fmt.Sprintf("md5:%d:%s", count, sum), nil
}

// CreateSchema creates the gazetteer table and its indices if missing.
func (s *SQLStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("create gazetteer schema: %w", err)
	}
	return nil
}

// InsertEntries writes entries in one transaction with a prepared statement.
func (s *SQLStore) InsertEntries(ctx context.Context, entries []Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin gazetteer insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return 0, fmt.Errorf("prepare gazetteer insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		key := upperKey(e.Name)
		if strings.TrimSpace(key) == "" || !e.Category.Valid() {
			continue
		}
		codes := s.encoder.Encode(e.Name)
		if _, err := stmt.ExecContext(ctx, string(e.Category), key, codes.Primary, codes.Secondary); err != nil {
			return inserted, fmt.Errorf("insert %s %q: %w", e.Category, e.Name, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit gazetteer insert: %w", err)
	}
	s.logger.Info("Inserted gazetteer entries", zap.Int("count", inserted))
	return inserted, nil
}

// PostgresSource loads the whole gazetteer table for an in-memory store.
type PostgresSource struct {
	DB *sql.DB
}

// Load reads every (category, name) row.
func (s *PostgresSource) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx, selectAllQuery)
	if err != nil {
		return nil, fmt.Errorf("query gazetteer: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var category, name string
		if err := rows.Scan(&category, &name); err != nil {
			return nil, fmt.Errorf("scan gazetteer row: %w", err)
		}
		entries = append(entries, Entry{Name: name, Category: Category(category)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read gazetteer rows: %w", err)
	}
	return entries, nil
}
