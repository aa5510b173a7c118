// Package store reads client history rows from the panel database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"client-report-card/internal/config"
	"client-report-card/internal/metrics"
	"client-report-card/internal/model"
	"client-report-card/pkg/utils"
)

// ErrUnknownDriver is returned by Open for drivers without a schema dialect.
var ErrUnknownDriver = errors.New("store: unknown database driver")

// Store wraps the history tables. It is safe for concurrent use.
type Store struct {
	db      *sqlx.DB
	driver  string
	prefix  string
	metrics *metrics.Metrics
}

// Open connects to the configured database and pings it. Metrics may be nil.
func Open(ctx context.Context, cfg config.DatabaseConfig, m *metrics.Metrics) (*Store, error) {
	if _, ok := dialects[cfg.Driver]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	// Every connection to an in-memory sqlite database sees its own empty
	// database.
	if cfg.Driver == "sqlite3" && strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	s := &Store{db: db, driver: cfg.Driver, prefix: cfg.TablePrefix, metrics: m}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping returns the time it takes to ping the database.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := s.db.PingContext(ctx)
	return time.Since(start), err
}

// table returns the prefixed table name.
func (s *Store) table(name string) string {
	return s.prefix + name
}

// Migrate creates the history tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	d := dialects[s.driver]
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	siteID %s PRIMARY KEY,
	URL %s NOT NULL
)`, s.table("sites"), d.id, d.text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	historyID %s PRIMARY KEY,
	siteID %s NOT NULL,
	type %s,
	action %s,
	status %s,
	microtimeAdded %s
)`, s.table("history"), d.id, d.id, d.text, d.text, d.text, d.float),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	historyID %s PRIMARY KEY,
	response %s NULL
)`, s.table("history_raw_details"), d.id, d.blob),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InsertSite stores a site row.
func (s *Store) InsertSite(ctx context.Context, siteID int64, url string) error {
	q := s.db.Rebind(fmt.Sprintf(`INSERT INTO %s (siteID, URL) VALUES (?, ?)`, s.table("sites")))
	if _, err := s.db.ExecContext(ctx, q, siteID, url); err != nil {
		return fmt.Errorf("insert site %d: %w", siteID, err)
	}
	return nil
}

// HistoryEntry is one history row plus its raw response, as written by
// InsertHistory.
type HistoryEntry struct {
	ID       int64
	SiteID   int64
	Type     string
	Action   string
	Status   string
	AddedAt  time.Time
	Response *string
}

// InsertHistory stores the history row and its raw details in one
// transaction.
func (s *Store) InsertHistory(ctx context.Context, e HistoryEntry) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		q := tx.Rebind(fmt.Sprintf(`INSERT INTO %s (historyID, siteID, type, action, status, microtimeAdded) VALUES (?, ?, ?, ?, ?, ?)`, s.table("history")))
		if _, err := tx.ExecContext(ctx, q, e.ID, e.SiteID, e.Type, e.Action, e.Status, utils.UnixSeconds(e.AddedAt)); err != nil {
			return fmt.Errorf("insert history %d: %w", e.ID, err)
		}
		q = tx.Rebind(fmt.Sprintf(`INSERT INTO %s (historyID, response) VALUES (?, ?)`, s.table("history_raw_details")))
		if _, err := tx.ExecContext(ctx, q, e.ID, e.Response); err != nil {
			return fmt.Errorf("insert history details %d: %w", e.ID, err)
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// FetchHistory returns the rows matching q, newest first. A NULL response
// column leaves RawRecord.Blob nil.
func (s *Store) FetchHistory(ctx context.Context, q model.HistoryQuery) ([]model.RawRecord, error) {
	query, args := s.historyQuery(q)

	start := time.Now()
	var out []model.RawRecord
	err := s.db.SelectContext(ctx, &out, query, args...)
	s.metrics.ObserveQuery("fetch_history", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return out, nil
}

func (s *Store) historyQuery(q model.HistoryQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}
	if q.URL != "" {
		add("s.URL = ?", q.URL)
	}
	if q.Type != "" {
		add("h.type = ?", q.Type)
	}
	if q.Action != "" {
		add("h.action = ?", q.Action)
	}
	if q.Status != "" {
		add("h.status = ?", q.Status)
	}
	if !q.From.IsZero() {
		add("h.microtimeAdded >= ?", utils.UnixSeconds(q.From))
	}
	if !q.To.IsZero() {
		add("h.microtimeAdded <= ?", utils.UnixSeconds(q.To))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT
	h.historyID AS history_id,
	COALESCE(s.URL, '') AS url,
	COALESCE(h.type, '') AS type,
	COALESCE(h.action, '') AS action,
	COALESCE(h.status, '') AS status,
	COALESCE(h.microtimeAdded, 0) AS added_at,
	d.response AS response
FROM %s h
JOIN %s s ON s.siteID = h.siteID
LEFT JOIN %s d ON d.historyID = h.historyID`,
		s.table("history"), s.table("sites"), s.table("history_raw_details"))
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY h.microtimeAdded DESC, h.historyID DESC")
	if q.Limit > 0 {
		b.WriteString("\nLIMIT ?")
		args = append(args, q.Limit)
	}
	return s.db.Rebind(b.String()), args
}

type dialect struct {
	id, text, float, blob string
}

var dialects = map[string]dialect{
	"sqlite3":  {id: "INTEGER", text: "TEXT", float: "REAL", blob: "TEXT"},
	"mysql":    {id: "BIGINT", text: "VARCHAR(255)", float: "DOUBLE", blob: "LONGTEXT"},
	"postgres": {id: "BIGINT", text: "TEXT", float: "DOUBLE PRECISION", blob: "TEXT"},
}
