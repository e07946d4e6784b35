package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"minifeed/internal/middleware"

	"gorm.io/gorm"
)

// ErrUnknownMigrations means the database records versions this build does not ship,
// usually because it was migrated by a newer release.
var ErrUnknownMigrations = errors.New("database has migrations unknown to this build")

// MigrationLog is one row of migration_logs.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// migrationLedger applies scripts and remembers which versions ran.
type migrationLedger interface {
	Applied(ctx context.Context) ([]int, error)
	Apply(ctx context.Context, m Migration) error
}

type gormLedger struct {
	db *gorm.DB
}

// Applied returns recorded versions in ascending order. A missing log table means none.
func (l gormLedger) Applied(ctx context.Context) ([]int, error) {
	versions := []int{}
	err := l.db.WithContext(ctx).Model(&MigrationLog{}).Order("version").Pluck("version", &versions).Error
	if err != nil && !isMissingTableError(err) {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return versions, nil
}

// Apply runs the up script and records it atomically.
func (l gormLedger) Apply(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("migration %s: %w", m.String(), err)
		}
		if err := tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", m.String(), err)
		}
		return nil
	})
}

func isMissingTableError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

const createMigrationLogs = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version    BIGINT PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);`

// RunMigrations applies every embedded migration not yet recorded in migration_logs.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(createMigrationLogs).Error; err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}
	return applyPending(ctx, gormLedger{db: db}, migrations)
}

func applyPending(ctx context.Context, ledger migrationLedger, registered []Migration) error {
	applied, err := ledger.Applied(ctx)
	if err != nil {
		return err
	}
	if err := checkKnown(applied, registered); err != nil {
		return err
	}

	for _, m := range pending(applied, registered) {
		middleware.Logger.Info("Applying migration", slog.String("migration", m.String()))
		if err := ledger.Apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// pending returns registered migrations whose version is not in applied, in order.
func pending(applied []int, registered []Migration) []Migration {
	var out []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			out = append(out, m)
		}
	}
	return out
}

// checkKnown fails with ErrUnknownMigrations listing every applied version missing from
// registered.
func checkKnown(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("%w: %s", ErrUnknownMigrations, strings.Join(unknown, ", "))
}

// RollbackMigration runs the down script of an applied migration and forgets it, in one
// transaction.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := gormLedger{db: db}.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %s has not been applied", m.String())
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}
