package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Evaldo-hub/associacaoufpa/internal/events"
	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AttendanceEdit carries the submitted values for one attendance row. Amount
// and Goals are raw form input; invalid values are coerced to zero.
type AttendanceEdit struct {
	AttendanceID uint   `json:"attendance_id"`
	Confirmed    bool   `json:"confirmed"`
	Paid         bool   `json:"paid"`
	Amount       string `json:"amount"`
	Goals        string `json:"goals"`
	SentOff      bool   `json:"sent_off"`
}

// MatchExpense is an optional expense recorded together with a batch.
type MatchExpense struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// AttendanceBatch is one submission of the match sheet. A nil Standout
// leaves the match's standout untouched.
type AttendanceBatch struct {
	Edits    []AttendanceEdit `json:"edits"`
	Standout *string          `json:"standout"`
	Expense  *MatchExpense    `json:"expense"`
}

// Coercion reports a field that was reset to zero.
type Coercion struct {
	AttendanceID uint   `json:"attendance_id"`
	Field        string `json:"field"`
	Value        string `json:"value"`
}

// BatchResult summarises an UpdateAttendance call.
type BatchResult struct {
	RowsUpdated int                  `json:"rows_updated"`
	Posted      []models.LedgerEntry `json:"posted"`
	Expense     *models.LedgerEntry  `json:"expense,omitempty"`
	Coerced     []Coercion           `json:"coerced,omitempty"`
	Ignored     []uint               `json:"ignored,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// MatchSheet is a match with its attendance and cash summary.
type MatchSheet struct {
	Match     models.Match         `json:"match"`
	Rows      []models.Attendance  `json:"rows"`
	Collected decimal.Decimal      `json:"collected"`
	Confirmed int                  `json:"confirmed"`
	Expenses  []models.LedgerEntry `json:"expenses"`
	Spent     decimal.Decimal      `json:"spent"`
}

// Settlement turns match attendance into ledger entries.
type Settlement struct {
	db     *gorm.DB
	ledger *Ledger
	guard  matchGuard
	clock  clockwork.Clock
	events events.Publisher
}

func NewSettlement(db *gorm.DB, ledger *Ledger, guard matchGuard, clock clockwork.Clock, pub events.Publisher) *Settlement {
	return &Settlement{db: db, ledger: ledger, guard: guard, clock: clock, events: pub}
}

// AddParticipant creates an unconfirmed, unpaid row. Non-admins can only
// add their own linked player, and only when that player is a member.
func (s *Settlement) AddParticipant(ctx context.Context, matchID, playerID uint, actor Actor) (*models.Attendance, error) {
	if !actor.IsAdmin() {
		if actor.PlayerID == nil {
			return nil, fmt.Errorf("%w: no player linked to user", ErrNotAuthorized)
		}
		playerID = *actor.PlayerID
	}

	unlock, err := s.guard.acquire(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	row := &models.Attendance{MatchID: matchID, PlayerID: playerID, AmountPaid: decimal.Zero}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.First(&match, matchID).Error; err != nil {
			return notFound(err, "match", matchID)
		}
		var player models.Player
		if err := tx.First(&player, playerID).Error; err != nil {
			return notFound(err, "player", playerID)
		}
		if !actor.IsAdmin() && !player.IsMember() {
			return fmt.Errorf("%w: only members can join a match", ErrNotAuthorized)
		}

		var n int64
		if err := tx.Model(&models.Attendance{}).
			Where("match_id = ? AND player_id = ?", matchID, playerID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("count attendance: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("player %d in match %d: %w", playerID, matchID, ErrAlreadyExists)
		}

		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("player %d in match %d: %w", playerID, matchID, ErrAlreadyExists)
			}
			return fmt.Errorf("insert attendance: %w", err)
		}
		row.Player = player
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateAttendance applies a batch under the match lock in one transaction.
func (s *Settlement) UpdateAttendance(ctx context.Context, matchID uint, batch AttendanceBatch, actor Actor) (*BatchResult, error) {
	if !actor.IsAdmin() && actor.PlayerID == nil {
		return nil, fmt.Errorf("%w: no player linked to user", ErrNotAuthorized)
	}

	unlock, err := s.guard.acquire(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res := &BatchResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.First(&match, matchID).Error; err != nil {
			return notFound(err, "match", matchID)
		}
		var rows []models.Attendance
		if err := tx.Preload("Player").Where("match_id = ?", matchID).Order("id").Find(&rows).Error; err != nil {
			return fmt.Errorf("load attendance: %w", err)
		}

		if !actor.IsAdmin() {
			return s.confirmOwn(tx, rows, batch.Edits, actor, res)
		}
		if err := s.applyEdits(tx, rows, batch.Edits, res); err != nil {
			return err
		}
		if err := s.postPayments(tx, &match, rows, actor, res); err != nil {
			return err
		}
		if batch.Standout != nil {
			if err := setStandout(tx, &match, rows, *batch.Standout); err != nil {
				return err
			}
		}
		if batch.Expense != nil {
			return s.postExpense(tx, &match, *batch.Expense, actor, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range res.Posted {
		s.ledger.announce(ctx, &res.Posted[i])
	}
	if res.Expense != nil {
		s.ledger.announce(ctx, res.Expense)
	}
	ids := make([]uint, 0, len(res.Posted))
	for _, e := range res.Posted {
		ids = append(ids, e.ID)
	}
	publish(ctx, s.events, events.SubjectAttendanceSettled, events.AttendanceSettled{
		MatchID:      matchID,
		RowsUpdated:  res.RowsUpdated,
		EntriesAdded: ids,
		Actor:        actor.Name(),
	})

	log.Info().
		Uint("match_id", matchID).
		Int("rows", res.RowsUpdated).
		Int("posted", len(res.Posted)).
		Str("actor", actor.Name()).
		Msg("attendance updated")
	return res, nil
}

// confirmOwn lets a player mark their own row as confirmed. Every other
// field and every other row is left alone.
func (s *Settlement) confirmOwn(tx *gorm.DB, rows []models.Attendance, edits []AttendanceEdit, actor Actor, res *BatchResult) error {
	own := make(map[uint]*models.Attendance)
	for i := range rows {
		if actor.Owns(rows[i].PlayerID) {
			own[rows[i].ID] = &rows[i]
		}
	}
	for _, e := range edits {
		row, ok := own[e.AttendanceID]
		if !ok {
			res.Ignored = append(res.Ignored, e.AttendanceID)
			continue
		}
		if !e.Confirmed || row.Confirmed {
			continue
		}
		if err := tx.Model(&models.Attendance{}).Where("id = ?", row.ID).Update("confirmed", true).Error; err != nil {
			return fmt.Errorf("confirm attendance %d: %w", row.ID, err)
		}
		row.Confirmed = true
		res.RowsUpdated++
	}
	return nil
}

func (s *Settlement) applyEdits(tx *gorm.DB, rows []models.Attendance, edits []AttendanceEdit, res *BatchResult) error {
	byID := make(map[uint]*models.Attendance, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	for _, e := range edits {
		row, ok := byID[e.AttendanceID]
		if !ok {
			res.Ignored = append(res.Ignored, e.AttendanceID)
			continue
		}

		amount := decimal.Zero
		if strings.TrimSpace(e.Amount) != "" {
			d, err := util.ParseAmount(e.Amount)
			if err != nil {
				res.Coerced = append(res.Coerced, Coercion{AttendanceID: row.ID, Field: "amount", Value: e.Amount})
			} else {
				amount = d
			}
		}
		goals, err := util.ParseCount(e.Goals)
		if err != nil {
			res.Coerced = append(res.Coerced, Coercion{AttendanceID: row.ID, Field: "goals", Value: e.Goals})
			goals = 0
		}

		row.Confirmed = e.Confirmed
		row.Paid = e.Paid
		row.AmountPaid = amount
		row.Goals = goals
		row.SentOff = e.SentOff

		// posted_to_ledger is only ever flipped by postPayments
		err = tx.Model(&models.Attendance{}).Where("id = ?", row.ID).Updates(map[string]any{
			"confirmed":   row.Confirmed,
			"paid":        row.Paid,
			"amount_paid": row.AmountPaid,
			"goals":       row.Goals,
			"sent_off":    row.SentOff,
		}).Error
		if err != nil {
			return fmt.Errorf("update attendance %d: %w", row.ID, err)
		}
		res.RowsUpdated++
	}
	return nil
}

// postPayments posts one MATCH_PAYMENT per postable row. The posted flag is
// flipped with a conditional update first so a row can never be posted twice.
func (s *Settlement) postPayments(tx *gorm.DB, match *models.Match, rows []models.Attendance, actor Actor, res *BatchResult) error {
	for i := range rows {
		row := &rows[i]
		if !row.Postable() {
			continue
		}

		flip := tx.Model(&models.Attendance{}).
			Where("id = ? AND posted_to_ledger = ?", row.ID, false).
			Update("posted_to_ledger", true)
		if flip.Error != nil {
			return fmt.Errorf("mark attendance %d posted: %w", row.ID, flip.Error)
		}
		if flip.RowsAffected == 0 {
			continue
		}

		playerID, matchID, attendanceID := row.PlayerID, match.ID, row.ID
		entry, err := s.ledger.PostTx(tx, PostInput{
			Category:     models.LedgerMatchPayment,
			Amount:       row.AmountPaid,
			Description:  fmt.Sprintf("Pgto Jogo %s - %s", match.DateLabel(), row.Player.Name),
			Date:         today(s.clock),
			PlayerID:     &playerID,
			MatchID:      &matchID,
			AttendanceID: &attendanceID,
			Actor:        actor.Name(),
		})
		if err != nil {
			return fmt.Errorf("post payment for attendance %d: %w", row.ID, err)
		}
		row.Posted = true
		res.Posted = append(res.Posted, *entry)
	}
	return nil
}

// setStandout stores the standout player. Anything that is not the id of a
// participant clears the field.
func setStandout(tx *gorm.DB, match *models.Match, rows []models.Attendance, raw string) error {
	var standout *uint
	if id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64); err == nil {
		for _, r := range rows {
			if uint64(r.PlayerID) == id {
				pid := r.PlayerID
				standout = &pid
				break
			}
		}
	}
	if err := tx.Model(match).Update("standout_id", standout).Error; err != nil {
		return fmt.Errorf("set standout for match %d: %w", match.ID, err)
	}
	match.StandoutID = standout
	return nil
}

func (s *Settlement) postExpense(tx *gorm.DB, match *models.Match, exp MatchExpense, actor Actor, res *BatchResult) error {
	desc := strings.TrimSpace(exp.Description)
	if desc == "" || strings.TrimSpace(exp.Amount) == "" {
		return nil
	}
	amount, err := util.ParseAmount(exp.Amount)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("expense skipped: invalid amount %q", exp.Amount))
		return nil
	}

	matchID := match.ID
	entry, err := s.ledger.PostTx(tx, PostInput{
		Category:    models.LedgerExpense,
		Amount:      amount,
		Description: fmt.Sprintf("Despesa Jogo %s: %s", match.DateLabel(), desc),
		Date:        today(s.clock),
		MatchID:     &matchID,
		Actor:       actor.Name(),
	})
	if err != nil {
		return fmt.Errorf("post match expense: %w", err)
	}
	res.Expense = entry
	return nil
}

// RemoveParticipant deletes a row. A payment already posted for it stays in
// the ledger with its attendance link cleared.
func (s *Settlement) RemoveParticipant(ctx context.Context, matchID, playerID uint, actor Actor) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}

	unlock, err := s.guard.acquire(ctx, matchID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Attendance
		err := tx.Where("match_id = ? AND player_id = ?", matchID, playerID).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("player %d in match %d: %w", playerID, matchID, ErrNotFound)
			}
			return fmt.Errorf("load attendance: %w", err)
		}

		if err := tx.Model(&models.LedgerEntry{}).
			Where("attendance_id = ?", row.ID).
			Update("attendance_id", nil).Error; err != nil {
			return fmt.Errorf("unlink ledger entries: %w", err)
		}
		if err := tx.Delete(&models.Attendance{}, row.ID).Error; err != nil {
			return fmt.Errorf("delete attendance %d: %w", row.ID, err)
		}

		log.Info().
			Uint("match_id", matchID).
			Uint("player_id", playerID).
			Bool("was_posted", row.Posted).
			Msg("participant removed")
		return nil
	})
}

// RetractPayment audits and deletes the payment posted for a row and resets
// the row to unpaid, so it can be settled again.
func (s *Settlement) RetractPayment(ctx context.Context, matchID, playerID uint, reason string, actor Actor) ([]models.ReversalAudit, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	unlock, err := s.guard.acquire(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var audits []models.ReversalAudit
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Attendance
		err := tx.Where("match_id = ? AND player_id = ?", matchID, playerID).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("player %d in match %d: %w", playerID, matchID, ErrNotFound)
			}
			return fmt.Errorf("load attendance: %w", err)
		}

		var entries []models.LedgerEntry
		if err := tx.Where("attendance_id = ? AND category = ?", row.ID, models.LedgerMatchPayment).
			Order("id").Find(&entries).Error; err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		if len(entries) == 0 && !row.Paid && !row.Posted {
			return fmt.Errorf("no payment for player %d in match %d: %w", playerID, matchID, ErrNotFound)
		}

		for i := range entries {
			audit, err := s.ledger.reverseTx(tx, &entries[i], reason, actor.Name())
			if err != nil {
				return err
			}
			audits = append(audits, *audit)
		}

		return tx.Model(&models.Attendance{}).Where("id = ?", row.ID).Updates(map[string]any{
			"paid":             false,
			"amount_paid":      decimal.Zero,
			"posted_to_ledger": false,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	for _, a := range audits {
		publish(ctx, s.events, events.SubjectLedgerReversed, events.LedgerReversed{
			EntryID: a.RecordID,
			AuditID: a.ID,
			Action:  a.Action,
			Reason:  a.Reason,
			Actor:   a.Actor,
		})
	}
	return audits, nil
}

// MatchSheet loads a match with its rows and cash totals. Expenses are
// found by match id or, for older entries, by their description prefix.
func (s *Settlement) MatchSheet(ctx context.Context, matchID uint) (*MatchSheet, error) {
	db := s.db.WithContext(ctx)

	sheet := &MatchSheet{Collected: decimal.Zero, Spent: decimal.Zero}
	if err := db.Preload("Standout").First(&sheet.Match, matchID).Error; err != nil {
		return nil, notFound(err, "match", matchID)
	}

	err := db.Preload("Player").Where("match_id = ?", matchID).Order("id").Find(&sheet.Rows).Error
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	sort.SliceStable(sheet.Rows, func(i, j int) bool {
		return sheet.Rows[i].Player.Name < sheet.Rows[j].Player.Name
	})
	for _, r := range sheet.Rows {
		if r.Paid {
			sheet.Collected = sheet.Collected.Add(r.AmountPaid)
		}
		if r.Confirmed {
			sheet.Confirmed++
		}
	}

	prefix := "Despesa Jogo " + sheet.Match.DateLabel() + "%"
	err = db.Where("category = ?", models.LedgerExpense).
		Where("match_id = ? OR (match_id IS NULL AND description LIKE ?)", matchID, prefix).
		Order("date DESC, id DESC").
		Find(&sheet.Expenses).Error
	if err != nil {
		return nil, fmt.Errorf("load match expenses: %w", err)
	}
	for _, e := range sheet.Expenses {
		sheet.Spent = sheet.Spent.Add(e.Amount)
	}
	return sheet, nil
}
