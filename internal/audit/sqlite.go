package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "scramblekv_audit.db"

// SQLiteService persists the audit trail to a local modernc.org/sqlite
// database, the pure-Go engine the teacher uses for its own local
// ledger mode so the binary stays CGO-free.
type SQLiteService struct {
	db          *sql.DB
	recentLimit int
}

// NewSQLiteServiceFromEnv opens the path named by AUDIT_DB_PATH, or the
// default local filename if unset.
func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	path := strings.TrimSpace(os.Getenv("AUDIT_DB_PATH"))
	if path == "" {
		path = defaultLocalDBName
	}
	return NewSQLiteService(path)
}

// NewSQLiteService opens (creating if needed) the sqlite database at
// dbPath and ensures the audit_event table exists.
func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("audit: empty sqlite database path")
	}
	if dbPath != ":memory:" {
		if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{
		db:          db,
		recentLimit: envIntOrDefault("AUDIT_RECENT_LIMIT", defaultRecentLimit),
	}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS audit_event (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    kind       TEXT NOT NULL,
    actor      TEXT NOT NULL,
    operation  TEXT NOT NULL,
    detail     TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`)
	return err
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) RecordBoardOp(actor, operation, detail string) {
	s.insert(KindBoard, actor, operation, detail)
}

func (s *SQLiteService) RecordKVWrite(actor, key string, acked, total int) {
	s.insert(KindKV, actor, "write", fmt.Sprintf("key=%s acked=%d/%d", key, acked, total))
}

func (s *SQLiteService) insert(kind Kind, actor, operation, detail string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO audit_event (kind, actor, operation, detail) VALUES (?, ?, ?, ?)
`, string(kind), actor, operation, detail); err != nil {
		// Auditing is best-effort: a write failure here must never fail
		// the operation being audited.
		return
	}
	if s.recentLimit > 0 {
		_, _ = s.db.ExecContext(ctx, `
DELETE FROM audit_event
WHERE kind = ?
  AND id NOT IN (
      SELECT id FROM audit_event WHERE kind = ? ORDER BY id DESC LIMIT ?
  )
`, string(kind), string(kind), s.recentLimit)
	}
}

func (s *SQLiteService) ListRecent(ctx context.Context, kind Kind, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, kind, actor, operation, detail, created_at
FROM audit_event
WHERE kind = ?
ORDER BY id DESC
LIMIT ?
`, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Record, 0, limit)
	for rows.Next() {
		var r Record
		var kindRaw string
		if err := rows.Scan(&r.ID, &kindRaw, &r.Actor, &r.Operation, &r.Detail, &r.At); err != nil {
			return nil, err
		}
		r.Kind = Kind(kindRaw)
		items = append(items, r)
	}
	return items, rows.Err()
}
