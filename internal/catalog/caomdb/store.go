// Package caomdb implements catalog.Querier against the JSA database
// mirror: the caom2 schema for archived CAOM-2 metadata, the jcmt schema
// for raw acquisition tables, and the omp schema for project records.
// All access is read-only. Transient connection failures are retried with
// exponential backoff; everything else surfaces immediately.
package caomdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"

	"github.com/jsaops/jsaingest/internal/catalog"
)

// Config holds the mirror connection settings. The DSN must enable
// parseTime so DATETIME columns scan into time.Time.
type Config struct {
	DSN          string // go-sql-driver DSN, e.g. "user:pass@tcp(host:3306)/caom2?parseTime=true"
	CAOMDatabase string // schema holding Observation/Plane/Artifact (default "caom2")
	JCMTDatabase string // schema holding the raw acquisition tables (default "jcmt")
	OMPDatabase  string // schema holding ompproj/ompuser (default "omp")
	MaxOpenConns int    // default 4; ingestion is single-threaded, a small pool suffices
	QueryTimeout time.Duration
}

// Store is a catalog.Querier backed by the JSA database mirror.
type Store struct {
	db           *sql.DB
	caomDB       string
	jcmtDB       string
	ompDB        string
	queryTimeout time.Duration
}

var _ catalog.Querier = (*Store)(nil)

const connectMaxElapsed = 30 * time.Second

func newRetryBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed
	return bo
}

// New opens a connection pool against the mirror and verifies it with a
// ping. The returned store is safe for the single-threaded ingestion
// loop and for concurrent readers.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("caomdb: DSN is required")
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("caomdb: opening connection: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{
		db:           db,
		caomDB:       orDefault(cfg.CAOMDatabase, "caom2"),
		jcmtDB:       orDefault(cfg.JCMTDatabase, "jcmt"),
		ompDB:        orDefault(cfg.OMPDatabase, "omp"),
		queryTimeout: cfg.QueryTimeout,
	}
	if err := s.withRetry(ctx, func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, fmt.Errorf("caomdb: connecting to mirror: %w", err)
	}
	return s, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// isRetryableError reports whether the error is a transient connection
// failure worth retrying against a remote mirror.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	// MySQL driver transient errors
	if strings.Contains(errStr, "driver: bad connection") {
		return true
	}
	if strings.Contains(errStr, "invalid connection") {
		return true
	}
	// Network transient errors
	if strings.Contains(errStr, "broken pipe") {
		return true
	}
	if strings.Contains(errStr, "connection reset") {
		return true
	}
	if strings.Contains(errStr, "connection refused") {
		return true
	}
	// MySQL error 2013: mid-query disconnect
	if strings.Contains(errStr, "lost connection") {
		return true
	}
	// MySQL error 2006: idle connection timeout
	if strings.Contains(errStr, "gone away") {
		return true
	}
	if strings.Contains(errStr, "i/o timeout") {
		return true
	}
	return false
}

// withRetry executes an operation, retrying transient errors.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	bo := newRetryBackoff()
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableError(err) {
			return err // retryable, backoff will retry
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

// queryContext wraps db.QueryContext with retry for transient errors and
// the configured per-query timeout.
func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if s.queryTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
	}
	var rows *sql.Rows
	err := s.withRetry(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}
