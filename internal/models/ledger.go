package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerCategory classifies a cash movement.
type LedgerCategory string

const (
	LedgerDues         LedgerCategory = "DUES"
	LedgerMatchPayment LedgerCategory = "MATCH_PAYMENT"
	LedgerExpense      LedgerCategory = "EXPENSE"
	LedgerIncome       LedgerCategory = "MANUAL_INCOME"
)

// Valid reports whether c is a known category.
func (c LedgerCategory) Valid() bool {
	switch c {
	case LedgerDues, LedgerMatchPayment, LedgerExpense, LedgerIncome:
		return true
	}
	return false
}

// Outflow reports whether entries of this category decrease the balance.
func (c LedgerCategory) Outflow() bool {
	return c == LedgerExpense
}

// LedgerEntry is one cash movement. Entries are never edited; they leave
// the ledger only through a reversal that writes a ReversalAudit first.
type LedgerEntry struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Date         time.Time       `gorm:"index;not null" json:"date"`
	Category     LedgerCategory  `gorm:"size:15;index;not null" json:"category"`
	Description  string          `gorm:"size:200" json:"description"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PlayerID     *uint           `gorm:"index" json:"player_id"`
	Player       *Player         `gorm:"constraint:OnDelete:SET NULL" json:"player,omitempty"`
	Period       *string         `gorm:"size:20" json:"period"` // e.g. "Março/2024"
	Year         *int            `json:"year"`
	MatchID      *uint           `gorm:"index" json:"match_id"`
	AttendanceID *uint           `gorm:"index" json:"attendance_id"`
	CreatedBy    string          `gorm:"size:100" json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName pins the table the reversal audit refers to.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
