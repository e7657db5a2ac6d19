package database

import (
	"fmt"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"

	"gorm.io/gorm"
)

// At most one DUES entry per (player, period, year). Partial indexes are
// understood by both SQLite and PostgreSQL.
const duesUniqueIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_dues_period
ON ledger_entries (player_id, period, year) WHERE category = 'DUES'`

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Player{},
		&models.Match{},
		&models.Attendance{},
		&models.LedgerEntry{},
		&models.ReversalAudit{},
		&models.User{},
		&models.AccessLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(duesUniqueIndex).Error; err != nil {
		return fmt.Errorf("create dues index: %w", err)
	}
	return nil
}
