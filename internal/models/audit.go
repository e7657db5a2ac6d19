package models

import (
	"time"

	"gorm.io/datatypes"
)

// Reversal actions written to ReversalAudit.Action.
const (
	ActionReverseExpense      = "REVERSE_EXPENSE"
	ActionReverseIncome       = "REVERSE_MANUAL_INCOME"
	ActionReverseDues         = "REVERSE_DUES"
	ActionReverseMatchPayment = "REVERSE_MATCH_PAYMENT"
	ActionReverseLedgerEntry  = "REVERSE_LEDGER_ENTRY"
)

// ReversalAudit is the append-only trace of a deleted ledger entry.
type ReversalAudit struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	At            time.Time      `gorm:"index;not null" json:"at"`
	Action        string         `gorm:"size:50;index;not null" json:"action"`
	AffectedTable string         `gorm:"size:50;not null" json:"affected_table"`
	RecordID      uint           `gorm:"index;not null" json:"record_id"`
	Reason        string         `gorm:"type:text;not null" json:"reason"`
	Snapshot      datatypes.JSON `json:"snapshot"`
	Actor         string         `gorm:"size:100" json:"actor"`
}
