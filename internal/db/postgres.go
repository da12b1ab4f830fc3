package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Параметры пула соединений.
const (
	maxOpenConns    = 100
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
)

// NewPostgres открывает пул соединений к PostgreSQL и проверяет его пингом.
func NewPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)
	return conn, nil
}

// RunMigrations накатывает SQL миграции из каталога в лексикографическом
// порядке. Выполненные миграции учитываются в schema_migrations, каждая
// новая применяется в собственной транзакции вместе с отметкой о выполнении.
func RunMigrations(ctx context.Context, conn *sqlx.DB, dir string) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("postgres: таблица миграций: %w", err)
	}

	pending, err := pendingMigrations(ctx, conn, dir)
	if err != nil {
		return err
	}
	for _, name := range pending {
		if err := applyMigration(ctx, conn, dir, name); err != nil {
			return err
		}
	}
	return nil
}

// pendingMigrations возвращает отсортированные имена ещё не выполненных
// .sql файлов каталога.
func pendingMigrations(ctx context.Context, conn *sqlx.DB, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("postgres: каталог миграций: %w", err)
	}

	var appliedNames []string
	if err := conn.SelectContext(ctx, &appliedNames, `SELECT name FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("postgres: список выполненных миграций: %w", err)
	}
	applied := make(map[string]struct{}, len(appliedNames))
	for _, name := range appliedNames {
		applied[name] = struct{}{}
	}

	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if _, ok := applied[name]; ok {
			continue
		}
		pending = append(pending, name)
	}
	sort.Strings(pending)
	return pending, nil
}

// applyMigration выполняет один SQL файл и в той же транзакции отмечает
// его выполненным.
func applyMigration(ctx context.Context, conn *sqlx.DB, dir, name string) error {
	script, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("postgres: чтение миграции %s: %w", name, err)
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: транзакция миграции %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("postgres: выполнение миграции %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("postgres: отметка миграции %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: коммит миграции %s: %w", name, err)
	}
	return nil
}
