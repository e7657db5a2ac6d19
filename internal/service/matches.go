package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MatchInput is the raw form of a match. Fee may be empty.
type MatchInput struct {
	Date     string `json:"date"`
	KickOff  string `json:"kick_off"`
	Opponent string `json:"opponent"`
	Venue    string `json:"venue"`
	Fee      string `json:"fee"`
}

// ScoreInput records a result. Scores may be omitted for cancelled matches.
type ScoreInput struct {
	Ours   *int   `json:"ours"`
	Theirs *int   `json:"theirs"`
	Status string `json:"status"`
}

// TechnicalRow is the per-player part of a technical report.
type TechnicalRow struct {
	AttendanceID uint   `json:"attendance_id"`
	Goals        string `json:"goals"`
	SentOff      bool   `json:"sent_off"`
}

// TechnicalReport is the post-match write-up.
type TechnicalReport struct {
	Summary  string         `json:"summary"`
	Standout *string        `json:"standout"`
	Rows     []TechnicalRow `json:"rows"`
}

type Matches struct {
	db          *gorm.DB
	guard       matchGuard
	venue       string
	fee         decimal.Decimal
	prepopulate bool
}

func NewMatches(db *gorm.DB, guard matchGuard, opts Options) *Matches {
	return &Matches{
		db:          db,
		guard:       guard,
		venue:       opts.DefaultVenue,
		fee:         opts.DefaultFee,
		prepopulate: opts.PrepopulateAttendance,
	}
}

func (m *Matches) fill(match *models.Match, in MatchInput) error {
	date, err := ParseDate(in.Date)
	if err != nil {
		return err
	}
	kickOff, err := util.ParseKickOff(in.KickOff, models.DefaultKickOff)
	if err != nil {
		return fmt.Errorf("%w: kick off: %v", ErrInvalidInput, err)
	}
	opponent := strings.TrimSpace(in.Opponent)
	if err := util.ValidateLabel(opponent, 100); err != nil {
		return fmt.Errorf("%w: opponent: %v", ErrInvalidInput, err)
	}
	venue := strings.TrimSpace(in.Venue)
	if venue == "" {
		venue = m.venue
	}
	fee := m.fee
	if strings.TrimSpace(in.Fee) != "" {
		if fee, err = ParseAmount(in.Fee); err != nil {
			return err
		}
	}

	match.Date = date
	match.KickOff = kickOff
	match.Opponent = opponent
	match.Venue = venue
	match.Fee = fee
	return nil
}

// Create schedules a match. With attendance prepopulation enabled, every
// active player gets an unconfirmed row in the same transaction.
func (m *Matches) Create(ctx context.Context, actor Actor, in MatchInput) (*models.Match, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	match := &models.Match{Status: models.MatchScheduled}
	if err := m.fill(match, in); err != nil {
		return nil, err
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(match).Error; err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
		if !m.prepopulate {
			return nil
		}

		var ids []uint
		if err := tx.Model(&models.Player{}).Where("active = ?", true).Order("name").Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("list active players: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		rows := make([]models.Attendance, len(ids))
		for i, id := range ids {
			rows[i] = models.Attendance{MatchID: match.ID, PlayerID: id, AmountPaid: decimal.Zero}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("prepopulate attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// Update edits date, time, opponent, venue and fee.
func (m *Matches) Update(ctx context.Context, actor Actor, id uint, in MatchInput) (*models.Match, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	var match models.Match
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&match, id).Error; err != nil {
			return notFound(err, "match", id)
		}
		if err := m.fill(&match, in); err != nil {
			return err
		}
		return tx.Model(&match).Select("date", "kick_off", "opponent", "venue", "fee").Updates(&match).Error
	})
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// Delete removes a match with its attendance rows. Ledger entries that
// referenced it stay, with their match and attendance links cleared.
func (m *Matches) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	unlock, err := m.guard.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.First(&match, id).Error; err != nil {
			return notFound(err, "match", id)
		}

		if err := tx.Model(&models.LedgerEntry{}).
			Where("match_id = ?", id).
			Updates(map[string]any{"match_id": nil, "attendance_id": nil}).Error; err != nil {
			return fmt.Errorf("unlink ledger entries: %w", err)
		}
		res := tx.Where("match_id = ?", id).Delete(&models.Attendance{})
		if res.Error != nil {
			return fmt.Errorf("delete attendance: %w", res.Error)
		}
		if err := tx.Delete(&match).Error; err != nil {
			return fmt.Errorf("delete match %d: %w", id, err)
		}

		log.Info().Uint("match_id", id).Int64("attendance_rows", res.RowsAffected).Msg("match deleted")
		return nil
	})
}

// List returns matches, most recent first.
func (m *Matches) List(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	err := m.db.WithContext(ctx).
		Preload("Standout").
		Order("date DESC, kick_off DESC, id DESC").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

func (m *Matches) Get(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	if err := m.db.WithContext(ctx).Preload("Standout").First(&match, id).Error; err != nil {
		return nil, notFound(err, "match", id)
	}
	return &match, nil
}

// RecordScore stores the final result and status.
func (m *Matches) RecordScore(ctx context.Context, actor Actor, id uint, in ScoreInput) (*models.Match, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = models.MatchPlayed
	}
	switch status {
	case models.MatchPlayed:
		if in.Ours == nil || in.Theirs == nil {
			return nil, fmt.Errorf("%w: score required for a played match", ErrInvalidInput)
		}
	case models.MatchCancelled, models.MatchScheduled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if (in.Ours != nil && *in.Ours < 0) || (in.Theirs != nil && *in.Theirs < 0) {
		return nil, fmt.Errorf("%w: score must not be negative", ErrInvalidInput)
	}

	var match models.Match
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&match, id).Error; err != nil {
			return notFound(err, "match", id)
		}
		match.ScoreOurs = in.Ours
		match.ScoreTheirs = in.Theirs
		match.Status = status
		return tx.Model(&match).Select("score_ours", "score_theirs", "status").Updates(&match).Error
	})
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// RecordTechnicalReport stores the summary, the standout and the goals /
// sent-off marks of confirmed players. Invalid goal counts become zero.
func (m *Matches) RecordTechnicalReport(ctx context.Context, actor Actor, id uint, rep TechnicalReport) (*models.Match, []Coercion, error) {
	if !actor.IsAdmin() {
		return nil, nil, ErrNotAuthorized
	}
	unlock, err := m.guard.acquire(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	var (
		match   models.Match
		coerced []Coercion
	)
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&match, id).Error; err != nil {
			return notFound(err, "match", id)
		}
		var rows []models.Attendance
		if err := tx.Where("match_id = ?", id).Order("id").Find(&rows).Error; err != nil {
			return fmt.Errorf("load attendance: %w", err)
		}

		confirmed := make(map[uint]bool, len(rows))
		for _, r := range rows {
			confirmed[r.ID] = r.Confirmed
		}
		for _, tr := range rep.Rows {
			if !confirmed[tr.AttendanceID] {
				continue
			}
			goals, err := util.ParseCount(tr.Goals)
			if err != nil {
				coerced = append(coerced, Coercion{AttendanceID: tr.AttendanceID, Field: "goals", Value: tr.Goals})
				goals = 0
			}
			if err := tx.Model(&models.Attendance{}).Where("id = ?", tr.AttendanceID).Updates(map[string]any{
				"goals":    goals,
				"sent_off": tr.SentOff,
			}).Error; err != nil {
				return fmt.Errorf("update attendance %d: %w", tr.AttendanceID, err)
			}
		}

		if err := tx.Model(&match).Update("summary", strings.TrimSpace(rep.Summary)).Error; err != nil {
			return fmt.Errorf("update summary: %w", err)
		}
		if rep.Standout != nil {
			return setStandout(tx, &match, rows, *rep.Standout)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &match, coerced, nil
}
