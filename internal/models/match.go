package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultKickOff is used when a match is created without a time.
const DefaultKickOff = "19:00"

// Match status values recorded together with the score.
const (
	MatchScheduled = "agendado"
	MatchPlayed    = "realizado"
	MatchCancelled = "cancelado"
)

// Match is a single fixture. Its Attendance rows are removed with it.
type Match struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	KickOff     string          `gorm:"size:5;not null" json:"kick_off"` // HH:MM
	Opponent    string          `gorm:"size:100" json:"opponent"`
	Venue       string          `gorm:"size:100" json:"venue"`
	Fee         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"fee"`
	Summary     string          `gorm:"type:text" json:"summary"`
	StandoutID  *uint           `gorm:"index" json:"standout_id"`
	Standout    *Player         `gorm:"constraint:OnDelete:SET NULL" json:"standout,omitempty"`
	ScoreOurs   *int            `json:"score_ours"`
	ScoreTheirs *int            `json:"score_theirs"`
	Status      string          `gorm:"size:16" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Attendances []Attendance `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// DateLabel formats the match date the way ledger descriptions quote it.
func (m *Match) DateLabel() string {
	return m.Date.Format("02/01/2006")
}

// ScoreLabel renders the result as "3 x 1 - realizado", or "" without a score.
func (m *Match) ScoreLabel() string {
	if m.ScoreOurs == nil || m.ScoreTheirs == nil {
		return ""
	}
	return fmt.Sprintf("%d x %d - %s", *m.ScoreOurs, *m.ScoreTheirs, m.Status)
}
