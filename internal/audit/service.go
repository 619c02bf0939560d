// Package audit records a trail of board and key/value operations (the
// SQL-backed services keep only the newest AUDIT_RECENT_LIMIT rows per
// kind), in the shape of the teacher's ledger package: a narrow
// Service interface, a no-op implementation for local/dev runs, and
// SQL-backed implementations selected by NewServiceFromEnv.
package audit

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultRecentLimit = 200

// Kind distinguishes the two subsystems this module audits.
type Kind string

const (
	KindBoard Kind = "board"
	KindKV    Kind = "kv"
)

// Record is one audited operation.
type Record struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	Actor     string    `json:"actor"`
	Operation string    `json:"operation"`
	Detail    string    `json:"detail"`
	At        time.Time `json:"at"`
}

// Service is the audit sink. Record* calls are fire-and-forget from the
// caller's perspective: a logging failure never fails the operation
// being audited, the same contract the teacher's ledger gives its
// callers.
type Service interface {
	Close() error
	RecordBoardOp(actor, operation, detail string)
	RecordKVWrite(actor, key string, acked, total int)
	ListRecent(ctx context.Context, kind Kind, limit int) ([]Record, error)
}

type noopService struct{}

func (noopService) Close() error                                     { return nil }
func (noopService) RecordBoardOp(actor, operation, detail string)    {}
func (noopService) RecordKVWrite(actor, key string, acked, total int) {}
func (noopService) ListRecent(ctx context.Context, kind Kind, limit int) ([]Record, error) {
	return []Record{}, nil
}

// NewServiceFromEnv builds a Service according to AUDIT_MODE
// ("memory", "sqlite", or "postgres"; default "memory"), mirroring the
// teacher's ledger.NewServiceFromEnv mode switch. It returns the
// service plus a short label describing what was built, for startup
// logging.
func NewServiceFromEnv() (Service, string, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUDIT_MODE")))
	switch mode {
	case "", "memory", "noop":
		return noopService{}, "memory-noop", nil
	case "sqlite", "local":
		svc, err := NewSQLiteServiceFromEnv()
		if err != nil {
			return nil, "", err
		}
		return svc, "sqlite", nil
	case "postgres":
		svc, err := NewPostgresServiceFromEnv()
		if err != nil {
			return nil, "", err
		}
		return svc, "postgres", nil
	default:
		return nil, "", fmt.Errorf("audit: unknown AUDIT_MODE %q", mode)
	}
}

func envIntOrDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
