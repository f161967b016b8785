package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	migrationsDir = "sql/migrations"
	// migrationLockKey: ключ pg_advisory_lock, общий для всех экземпляров сервиса и cmd/migrate.
	migrationLockKey = int64(0x0f00dca7)
	migrationLockTTL = 5 * time.Second

	schemaMigrationsDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    BIGINT PRIMARY KEY,
    name       TEXT NOT NULL,
    checksum   TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

//go:embed sql/migrations/*.sql
var embeddedMigrations embed.FS

// ErrMigrationChecksumMismatch: применённая миграция отличается от файла в бинаре.
var ErrMigrationChecksumMismatch = errors.New("applied migration differs from embedded file")

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

func (m migration) checksum() string {
	sum := sha256.Sum256([]byte(m.UpSQL))
	return hex.EncodeToString(sum[:])
}

func (m migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

// appliedMigration: строка schema_migrations.
type appliedMigration struct {
	Version  int64
	Checksum string
}

// MigrateUp применяет не более steps ещё не применённых миграций (0 = все).
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.runMigrations(ctx, func(all []migration, applied []appliedMigration) ([]migration, error) {
		return planUp(all, applied, steps)
	}, applyUp)
}

// MigrateDown откатывает steps последних миграций; steps<=0 означает одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.runMigrations(ctx, func(all []migration, applied []appliedMigration) ([]migration, error) {
		return planDown(all, applied, steps)
	}, applyDown)
}

// MigrationStatus возвращает последнюю применённую версию и число применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if s == nil || s.db == nil {
		return 0, 0, errNotInitialized
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(queryCtx, schemaMigrationsDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	var (
		version int64
		count   int
	)
	err := s.db.QueryRowContext(queryCtx,
		`SELECT COALESCE(MAX(version), 0), COUNT(*) FROM schema_migrations`,
	).Scan(&version, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("query migration status: %w", err)
	}
	return version, count, nil
}

type migrationPlanner func(all []migration, applied []appliedMigration) ([]migration, error)

type migrationStep func(ctx context.Context, conn *sql.Conn, m migration) error

// runMigrations держит advisory lock на выделенном соединении, строит план
// по текущему состоянию schema_migrations и применяет шаги по одному в транзакции.
func (s *Store) runMigrations(ctx context.Context, plan migrationPlanner, step migrationStep) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}

	all, err := loadMigrations(embeddedMigrations)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, migrationLockTTL)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := queryApplied(ctx, conn)
	if err != nil {
		return err
	}
	steps, err := plan(all, applied)
	if err != nil {
		return err
	}

	logger := log.WithField("component", "postgres-migrator")
	for _, m := range steps {
		if err := step(ctx, conn, m); err != nil {
			return err
		}
		logger.WithField("migration", m.String()).Debug("migration step applied")
	}
	return nil
}

// planUp выбирает неприменённые миграции по возрастанию версии. Уже применённые
// миграции сверяются по checksum, если он был записан.
func planUp(all []migration, applied []appliedMigration, steps int) ([]migration, error) {
	known := make(map[int64]string, len(applied))
	for _, a := range applied {
		known[a.Version] = a.Checksum
	}

	var pending []migration
	for _, m := range all {
		checksum, ok := known[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if checksum != "" && checksum != m.checksum() {
			return nil, fmt.Errorf("%w: %s", ErrMigrationChecksumMismatch, m)
		}
	}
	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}
	return pending, nil
}

// planDown выбирает steps последних применённых миграций по убыванию версии.
func planDown(all []migration, applied []appliedMigration, steps int) ([]migration, error) {
	byVersion := make(map[int64]migration, len(all))
	for _, m := range all {
		byVersion[m.Version] = m
	}

	versions := make([]int64, 0, len(applied))
	for _, a := range applied {
		versions = append(versions, a.Version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
	if len(versions) > steps {
		versions = versions[:steps]
	}

	result := make([]migration, 0, len(versions))
	for _, v := range versions {
		m, ok := byVersion[v]
		if !ok {
			return nil, fmt.Errorf("cannot roll back unknown migration version %d", v)
		}
		result = append(result, m)
	}
	return result, nil
}

func applyUp(ctx context.Context, conn *sql.Conn, m migration) error {
	return inMigrationTx(ctx, conn, m, "up", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
			m.Version, m.Name, m.checksum(),
		)
		return err
	})
}

func applyDown(ctx context.Context, conn *sql.Conn, m migration) error {
	return inMigrationTx(ctx, conn, m, "down", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version)
		return err
	})
}

func inMigrationTx(ctx context.Context, conn *sql.Conn, m migration, direction string, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s migration %s: %w", direction, m, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s migration %s: %w", direction, m, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s migration %s: %w", direction, m, err)
	}
	return nil
}

func queryApplied(ctx context.Context, conn *sql.Conn) ([]appliedMigration, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []appliedMigration
	for rows.Next() {
		var a appliedMigration
		if err := rows.Scan(&a.Version, &a.Checksum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// loadMigrations читает пары NNNN_name.up.sql / NNNN_name.down.sql из migrationsDir.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int64]*migration)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, name, direction, err := parseMigrationFileName(entry.Name())
		if err != nil {
			return nil, err
		}

		raw, err := fs.ReadFile(fsys, path.Join(migrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration %s is empty", entry.Name())
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration %d has two names: %s and %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == "down" {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = body
	}
	if len(byVersion) == 0 {
		return nil, errors.New("no migration files found")
	}

	result := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %s needs both up and down files", *m)
		}
		result = append(result, *m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}

// parseMigrationFileName разбирает "0002_carts.up.sql" в (2, "carts", "up").
func parseMigrationFileName(fileName string) (int64, string, string, error) {
	stem := strings.TrimSuffix(fileName, ".sql")
	dot := strings.LastIndexByte(stem, '.')
	if dot < 0 {
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", fileName)
	}
	direction := stem[dot+1:]
	if direction != "up" && direction != "down" {
		return 0, "", "", fmt.Errorf("invalid migration direction in %s", fileName)
	}

	rawVersion, name, ok := strings.Cut(stem[:dot], "_")
	if !ok || name == "" || strings.ContainsAny(name, ". ") {
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", fileName)
	}
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil || version <= 0 {
		return 0, "", "", fmt.Errorf("invalid migration version in %s", fileName)
	}
	return version, name, direction, nil
}
