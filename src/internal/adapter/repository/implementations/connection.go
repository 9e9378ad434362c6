package implementations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open returns a pooled postgres handle. The pool is sized for the worker
// pool plus request traffic since every in-flight execution holds one
// connection while its row locks are open.
func Open(ctx context.Context, dsn string, workers int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	maxOpen := workers + 10
	if maxOpen < 30 {
		maxOpen = 30
	}
	db.SetMaxIdleConns(20)
	db.SetMaxOpenConns(maxOpen)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(15 * time.Minute)

	return db, nil
}
