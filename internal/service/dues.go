package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultDuesReversalReason = "estorno de mensalidade"

// DuesInput is one monthly charge. Month is the label shown to members,
// e.g. "Março".
type DuesInput struct {
	PlayerID uint
	Month    string
	Year     int
	Amount   decimal.Decimal
}

// DuesFilter narrows ListDues. Zero values match everything.
type DuesFilter struct {
	Month    string
	Year     int
	PlayerID uint
}

// MemberDues groups the dues entries of one player.
type MemberDues struct {
	Player  models.Player        `json:"player"`
	Entries []models.LedgerEntry `json:"entries"`
	Total   decimal.Decimal      `json:"total"`
}

// DuesReport is the result of ListDues.
type DuesReport struct {
	Members []MemberDues    `json:"members"`
	Total   decimal.Decimal `json:"total"`
	Years   []int           `json:"years"`
	Periods []string        `json:"periods"`
}

// Dues posts and lists monthly membership charges.
type Dues struct {
	db     *gorm.DB
	ledger *Ledger
}

func NewDues(db *gorm.DB, ledger *Ledger) *Dues {
	return &Dues{db: db, ledger: ledger}
}

// PostDues records one charge. A second charge for the same player, period
// and year fails with ErrAlreadyExists.
func (d *Dues) PostDues(ctx context.Context, in DuesInput, actor Actor) (*models.LedgerEntry, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	if err := util.ValidateYear(in.Year); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYear, err)
	}
	if err := util.ValidateAmount(in.Amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	month := strings.TrimSpace(in.Month)
	if err := util.ValidateLabel(month, 12); err != nil {
		return nil, fmt.Errorf("%w: month: %v", ErrInvalidInput, err)
	}

	period := fmt.Sprintf("%s/%d", month, in.Year)
	year := in.Year

	var entry *models.LedgerEntry
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.First(&player, in.PlayerID).Error; err != nil {
			return notFound(err, "player", in.PlayerID)
		}

		var n int64
		if err := tx.Model(&models.LedgerEntry{}).
			Where("category = ? AND player_id = ? AND period = ? AND year = ?",
				models.LedgerDues, player.ID, period, year).
			Count(&n).Error; err != nil {
			return fmt.Errorf("count dues: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("dues %s for %s: %w", period, player.Name, ErrAlreadyExists)
		}

		playerID := player.ID
		var err error
		entry, err = d.ledger.PostTx(tx, PostInput{
			Category:    models.LedgerDues,
			Amount:      in.Amount,
			Description: fmt.Sprintf("Mensalidade %s - %s", period, player.Name),
			PlayerID:    &playerID,
			Period:      &period,
			Year:        &year,
			Actor:       actor.Name(),
		})
		if errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("dues %s for %s: %w", period, player.Name, ErrAlreadyExists)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	d.ledger.announce(ctx, entry)
	return entry, nil
}

// ReverseDues reverses a DUES entry; any other category is rejected.
func (d *Dues) ReverseDues(ctx context.Context, entryID uint, reason string, actor Actor) (*models.ReversalAudit, error) {
	if strings.TrimSpace(reason) == "" {
		reason = defaultDuesReversalReason
	}
	return d.ledger.reverse(ctx, entryID, reason, actor, func(e *models.LedgerEntry) error {
		if e.Category != models.LedgerDues {
			return fmt.Errorf("entry %d: %w", e.ID, ErrNotDues)
		}
		return nil
	})
}

// ListDues returns dues grouped per member, newest period first.
func (d *Dues) ListDues(ctx context.Context, f DuesFilter) (*DuesReport, error) {
	db := d.db.WithContext(ctx)

	q := db.Preload("Player").Where("category = ?", models.LedgerDues)
	if m := strings.TrimSpace(f.Month); m != "" {
		q = q.Where("period LIKE ?", "%"+m+"%")
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	if f.PlayerID != 0 {
		q = q.Where("player_id = ?", f.PlayerID)
	}

	var entries []models.LedgerEntry
	if err := q.Order("year DESC, period DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list dues: %w", err)
	}

	report := &DuesReport{Total: decimal.Zero}
	index := make(map[uint]int)
	for _, e := range entries {
		report.Total = report.Total.Add(e.Amount)
		if e.PlayerID == nil || e.Player == nil {
			continue
		}
		i, ok := index[*e.PlayerID]
		if !ok {
			i = len(report.Members)
			index[*e.PlayerID] = i
			report.Members = append(report.Members, MemberDues{Player: *e.Player, Total: decimal.Zero})
		}
		m := &report.Members[i]
		m.Entries = append(m.Entries, e)
		m.Total = m.Total.Add(e.Amount)
	}
	sort.SliceStable(report.Members, func(i, j int) bool {
		return report.Members[i].Player.Name < report.Members[j].Player.Name
	})

	if err := db.Model(&models.LedgerEntry{}).
		Where("category = ? AND year IS NOT NULL", models.LedgerDues).
		Distinct().Order("year DESC").Pluck("year", &report.Years).Error; err != nil {
		return nil, fmt.Errorf("list dues years: %w", err)
	}
	if err := db.Model(&models.LedgerEntry{}).
		Where("category = ? AND period IS NOT NULL", models.LedgerDues).
		Distinct().Order("period").Pluck("period", &report.Periods).Error; err != nil {
		return nil, fmt.Errorf("list dues periods: %w", err)
	}
	return report, nil
}
