package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Evaldo-hub/associacaoufpa/internal/events"
	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultAuditLimit = 100

// PostInput describes one ledger insert.
type PostInput struct {
	Category     models.LedgerCategory
	Amount       decimal.Decimal
	Description  string
	Date         time.Time // zero means today
	PlayerID     *uint
	Period       *string
	Year         *int
	MatchID      *uint
	AttendanceID *uint
	Actor        string
}

// Ledger is the posting engine: the only code that inserts or removes
// ledger entries.
type Ledger struct {
	db     *gorm.DB
	clock  clockwork.Clock
	events events.Publisher
}

func NewLedger(db *gorm.DB, clock clockwork.Clock, pub events.Publisher) *Ledger {
	return &Ledger{db: db, clock: clock, events: pub}
}

// Post inserts a single entry in its own transaction.
func (l *Ledger) Post(ctx context.Context, in PostInput) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = l.PostTx(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.announce(ctx, entry)
	return entry, nil
}

// PostTx inserts an entry inside the caller's transaction. The caller is
// responsible for announcing it after commit.
func (l *Ledger) PostTx(tx *gorm.DB, in PostInput) (*models.LedgerEntry, error) {
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if err := util.ValidateAmount(in.Amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	date := in.Date
	if date.IsZero() {
		date = today(l.clock)
	}

	entry := &models.LedgerEntry{
		Date:         util.DateOnly(date),
		Category:     in.Category,
		Description:  strings.TrimSpace(in.Description),
		Amount:       in.Amount.Round(2),
		PlayerID:     in.PlayerID,
		Period:       in.Period,
		Year:         in.Year,
		MatchID:      in.MatchID,
		AttendanceID: in.AttendanceID,
		CreatedBy:    in.Actor,
	}
	if err := tx.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("ledger entry: %w", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	return entry, nil
}

// Reverse audits and deletes an entry. Match payments are settled through
// Settlement.RetractPayment instead.
func (l *Ledger) Reverse(ctx context.Context, entryID uint, reason string, actor Actor) (*models.ReversalAudit, error) {
	return l.reverse(ctx, entryID, reason, actor, func(e *models.LedgerEntry) error {
		if e.Category == models.LedgerMatchPayment {
			return fmt.Errorf("entry %d: %w", e.ID, ErrNotReversible)
		}
		return nil
	})
}

func (l *Ledger) reverse(ctx context.Context, entryID uint, reason string, actor Actor, check func(*models.LedgerEntry) error) (*models.ReversalAudit, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var audit *models.ReversalAudit
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.LedgerEntry
		if err := tx.First(&entry, entryID).Error; err != nil {
			return notFound(err, "ledger entry", entryID)
		}
		if err := check(&entry); err != nil {
			return err
		}
		var err error
		audit, err = l.reverseTx(tx, &entry, reason, actor.Name())
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, l.events, events.SubjectLedgerReversed, events.LedgerReversed{
		EntryID: audit.RecordID,
		AuditID: audit.ID,
		Action:  audit.Action,
		Reason:  audit.Reason,
		Actor:   audit.Actor,
	})
	return audit, nil
}

type entrySnapshot struct {
	ID           uint            `json:"id"`
	Date         string          `json:"date"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	PlayerID     *uint           `json:"player_id"`
	Period       *string         `json:"period,omitempty"`
	Year         *int            `json:"year,omitempty"`
	MatchID      *uint           `json:"match_id,omitempty"`
	AttendanceID *uint           `json:"attendance_id,omitempty"`
	CreatedBy    string          `json:"created_by"`
}

// reverseTx writes the audit row and then deletes the entry, both in tx.
func (l *Ledger) reverseTx(tx *gorm.DB, entry *models.LedgerEntry, reason, actor string) (*models.ReversalAudit, error) {
	snap, err := json.Marshal(entrySnapshot{
		ID:           entry.ID,
		Date:         entry.Date.Format("2006-01-02"),
		Category:     string(entry.Category),
		Description:  entry.Description,
		Amount:       entry.Amount,
		PlayerID:     entry.PlayerID,
		Period:       entry.Period,
		Year:         entry.Year,
		MatchID:      entry.MatchID,
		AttendanceID: entry.AttendanceID,
		CreatedBy:    entry.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot entry %d: %w", entry.ID, err)
	}

	audit := &models.ReversalAudit{
		At:            l.clock.Now().UTC(),
		Action:        reversalAction(entry.Category),
		AffectedTable: models.LedgerEntry{}.TableName(),
		RecordID:      entry.ID,
		Reason:        reason,
		Snapshot:      datatypes.JSON(snap),
		Actor:         actor,
	}
	if err := tx.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("insert reversal audit: %w", err)
	}

	res := tx.Delete(&models.LedgerEntry{}, entry.ID)
	if res.Error != nil {
		return nil, fmt.Errorf("delete ledger entry %d: %w", entry.ID, res.Error)
	}
	if res.RowsAffected != 1 {
		return nil, fmt.Errorf("ledger entry %d: %w", entry.ID, ErrNotFound)
	}
	return audit, nil
}

func reversalAction(c models.LedgerCategory) string {
	switch c {
	case models.LedgerExpense:
		return models.ActionReverseExpense
	case models.LedgerIncome:
		return models.ActionReverseIncome
	case models.LedgerDues:
		return models.ActionReverseDues
	case models.LedgerMatchPayment:
		return models.ActionReverseMatchPayment
	}
	return models.ActionReverseLedgerEntry
}

// Get loads one entry with its player.
func (l *Ledger) Get(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := l.db.WithContext(ctx).Preload("Player").First(&entry, id).Error; err != nil {
		return nil, notFound(err, "ledger entry", id)
	}
	return &entry, nil
}

// ListAudits returns reversal audits, newest first.
func (l *Ledger) ListAudits(ctx context.Context, limit int) ([]models.ReversalAudit, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	var audits []models.ReversalAudit
	err := l.db.WithContext(ctx).
		Order("at DESC, id DESC").
		Limit(limit).
		Find(&audits).Error
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	return audits, nil
}

// RecordIncome posts a manual income entry.
func (l *Ledger) RecordIncome(ctx context.Context, actor Actor, description string, amount decimal.Decimal) (*models.LedgerEntry, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	if err := util.ValidateLabel(description, 200); err != nil {
		return nil, fmt.Errorf("%w: description: %v", ErrInvalidInput, err)
	}
	return l.Post(ctx, PostInput{
		Category:    models.LedgerIncome,
		Amount:      amount,
		Description: description,
		Actor:       actor.Name(),
	})
}

// RecordExpense posts an expense described as "<category>: <description>".
func (l *Ledger) RecordExpense(ctx context.Context, actor Actor, category, description string, amount decimal.Decimal) (*models.LedgerEntry, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	category = strings.TrimSpace(category)
	if err := util.ValidateLabel(category, 50); err != nil {
		return nil, fmt.Errorf("%w: category: %v", ErrInvalidInput, err)
	}
	if err := util.ValidateLabel(description, 140); err != nil {
		return nil, fmt.Errorf("%w: description: %v", ErrInvalidInput, err)
	}
	return l.Post(ctx, PostInput{
		Category:    models.LedgerExpense,
		Amount:      amount,
		Description: category + ": " + strings.TrimSpace(description),
		Actor:       actor.Name(),
	})
}

func (l *Ledger) announce(ctx context.Context, entries ...*models.LedgerEntry) {
	for _, e := range entries {
		publish(ctx, l.events, events.SubjectLedgerPosted, events.LedgerPosted{
			EntryID:     e.ID,
			Category:    string(e.Category),
			Amount:      e.Amount,
			Description: e.Description,
			PlayerID:    e.PlayerID,
			MatchID:     e.MatchID,
			Date:        e.Date,
		})
	}
}
