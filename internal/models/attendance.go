package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Attendance joins a Player to a Match. One row per (match, player).
type Attendance struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MatchID    uint            `gorm:"not null;uniqueIndex:ux_attendance_match_player" json:"match_id"`
	PlayerID   uint            `gorm:"not null;uniqueIndex:ux_attendance_match_player;index" json:"player_id"`
	Confirmed  bool            `gorm:"not null" json:"confirmed"`
	Paid       bool            `gorm:"not null" json:"paid"`
	AmountPaid decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_paid"`
	Posted     bool            `gorm:"column:posted_to_ledger;not null" json:"posted_to_ledger"`
	Goals      int             `gorm:"not null" json:"goals"`
	SentOff    bool            `gorm:"not null" json:"sent_off"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Player Player `gorm:"constraint:OnDelete:RESTRICT" json:"player"`
}

// Postable reports whether the row carries a payment that has not reached
// the ledger yet.
func (a *Attendance) Postable() bool {
	return a.Paid && a.AmountPaid.IsPositive() && !a.Posted
}
