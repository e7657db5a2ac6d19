// Package events publishes ledger and settlement notifications after the
// owning transaction has committed.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Subjects, relative to the configured prefix.
const (
	SubjectLedgerPosted      = "ledger.posted"
	SubjectLedgerReversed    = "ledger.reversed"
	SubjectAttendanceSettled = "attendance.settled"
)

// LedgerPosted is emitted for every inserted ledger entry.
type LedgerPosted struct {
	EntryID     uint            `json:"entry_id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PlayerID    *uint           `json:"player_id,omitempty"`
	MatchID     *uint           `json:"match_id,omitempty"`
	Date        time.Time       `json:"date"`
}

// LedgerReversed is emitted after an entry was audited and deleted.
type LedgerReversed struct {
	EntryID uint   `json:"entry_id"`
	AuditID uint   `json:"audit_id"`
	Action  string `json:"action"`
	Reason  string `json:"reason"`
	Actor   string `json:"actor"`
}

// AttendanceSettled summarises one committed settlement batch.
type AttendanceSettled struct {
	MatchID      uint   `json:"match_id"`
	RowsUpdated  int    `json:"rows_updated"`
	EntriesAdded []uint `json:"entries_added"`
	Actor        string `json:"actor"`
}

// Publisher delivers an event. Implementations must not block for long;
// failures are logged by callers and never undo committed work.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Recorded is one event captured by Recorder.
type Recorded struct {
	Subject string
	Payload any
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func (r *Recorder) Publish(_ context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Subject: subject, Payload: payload})
	return nil
}

// Events returns a copy of what has been published so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events were published on subject.
func (r *Recorder) Count(subject string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Subject == subject {
			n++
		}
	}
	return n
}
