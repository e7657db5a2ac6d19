package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SampleMembers are the players SeedMembers registers on a fresh install.
var SampleMembers = []PlayerInput{
	{Name: "João Silva", Phone: "(11) 98765-4321", Category: models.PlayerMember},
	{Name: "Maria Santos", Phone: "(11) 91234-5678", Category: models.PlayerMember, Native: boolRef(true)},
	{Name: "Pedro Oliveira", Phone: "(11) 99876-5432", Category: models.PlayerMember},
	{Name: "Ana Costa", Phone: "(11) 97654-3210", Category: models.PlayerMember, Active: boolRef(false)},
}

func boolRef(b bool) *bool { return &b }

// SeedMembers registers SampleMembers, skipping names already taken.
// It returns how many players were created.
func (p *Players) SeedMembers(ctx context.Context, actor Actor) (int, error) {
	created := 0
	for _, in := range SampleMembers {
		_, err := p.Create(ctx, actor, in)
		switch {
		case errors.Is(err, ErrAlreadyExists):
			log.Info().Str("name", in.Name).Msg("sample member already exists")
		case err != nil:
			return created, err
		default:
			created++
		}
	}
	return created, nil
}

const resetReason = "reset-finance"

// FinanceReset counts what ResetFinance removed.
type FinanceReset struct {
	Entries     int64 `json:"entries"`
	Attendances int64 `json:"attendances"`
}

// ResetFinance reverses every ledger entry and clears the payment state of
// every attendance row, in one transaction. Each removed entry gets its own
// ReversalAudit row; existing audits, players, matches and users are kept.
func (l *Ledger) ResetFinance(ctx context.Context, actor Actor) (*FinanceReset, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	var out FinanceReset
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []models.LedgerEntry
		if err := tx.Order("id").Find(&entries).Error; err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
		for i := range entries {
			if _, err := l.reverseTx(tx, &entries[i], resetReason, actor.Name()); err != nil {
				return err
			}
		}
		out.Entries = int64(len(entries))

		res := tx.Model(&models.Attendance{}).Where("1 = 1").Updates(map[string]interface{}{
			"paid":             false,
			"amount_paid":      0,
			"posted_to_ledger": false,
		})
		if res.Error != nil {
			return fmt.Errorf("reset attendance: %w", res.Error)
		}
		out.Attendances = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Warn().Str("actor", actor.Name()).
		Int64("entries", out.Entries).
		Int64("attendances", out.Attendances).
		Msg("finance reset")
	return &out, nil
}
