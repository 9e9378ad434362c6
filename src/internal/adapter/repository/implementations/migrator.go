package implementations

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
)

// migrationLockKey serialises concurrent migrators across replicas.
const migrationLockKey int64 = 7_240_311

// RunMigrations applies every *.sql file in dir that is not yet recorded in
// schema_migrations, in lexical order, each inside its own transaction. It
// returns the names of the files it applied.
func RunMigrations(ctx context.Context, db *sql.DB, dir string) ([]string, error) {
	files, err := migrationFiles(dir)
	if err != nil {
		return nil, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockKey)
	}()

	if err := ensureSchemaMigrationsTable(ctx, conn); err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(files))
	for _, file := range files {
		done, err := isApplied(ctx, conn, file)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		if err := applyMigration(ctx, conn, dir, file); err != nil {
			return applied, err
		}
		logger.Info("migration applied", logger.Fields{"version": file})
		applied = append(applied, file)
	}

	return applied, nil
}

func applyMigration(ctx context.Context, conn *sql.Conn, dir, file string) (err error) {
	sqlBytes, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return fmt.Errorf("read migration %q: %w", file, err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for migration %q: %w", file, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("execute migration %q: %w", file, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, file); err != nil {
		return fmt.Errorf("record migration %q: %w", file, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %q: %w", file, err)
	}
	return nil
}

func ensureSchemaMigrationsTable(ctx context.Context, conn *sql.Conn) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}
	return nil
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".sql") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func isApplied(ctx context.Context, conn *sql.Conn, version string) (bool, error) {
	var exists bool
	if err := conn.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration %q status: %w", version, err)
	}
	return exists, nil
}
