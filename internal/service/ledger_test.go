package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Evaldo-hub/associacaoufpa/internal/events"
	"github.com/Evaldo-hub/associacaoufpa/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_PostDefaultsDateToToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.Ledger.Post(ctx, PostInput{
		Category:    models.LedgerIncome,
		Amount:      dec("12.5"),
		Description: "  rifa  ",
		Actor:       "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, date("2024-03-10"), entry.Date)
	assert.Equal(t, "rifa", entry.Description)
	assert.True(t, entry.Amount.Equal(dec("12.50")))
	assert.Equal(t, 1, f.events.Count(events.SubjectLedgerPosted))
}

func TestLedger_PostRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ledger.Post(ctx, PostInput{Category: models.LedgerIncome, Amount: dec("-0.01")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Ledger.Post(ctx, PostInput{Category: "GIFT", Amount: dec("1")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseAmount("dez reais")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Zero(t, f.count(t, &models.LedgerEntry{}, ""))
	assert.Zero(t, f.events.Count(events.SubjectLedgerPosted))
}

func TestLedger_ReverseExpenseWritesAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.Ledger.RecordExpense(ctx, admin, "Arbitragem", "jogo de sábado", dec("80"))
	require.NoError(t, err)
	assert.Equal(t, "Arbitragem: jogo de sábado", entry.Description)

	require.EqualValues(t, 1, f.count(t, &models.LedgerEntry{}, ""))
	require.Zero(t, f.count(t, &models.ReversalAudit{}, ""))

	audit, err := f.svc.Ledger.Reverse(ctx, entry.ID, "duplicate entry", admin)
	require.NoError(t, err)

	assert.Zero(t, f.count(t, &models.LedgerEntry{}, ""))
	assert.EqualValues(t, 1, f.count(t, &models.ReversalAudit{}, ""))
	assert.Equal(t, models.ActionReverseExpense, audit.Action)
	assert.Equal(t, "ledger_entries", audit.AffectedTable)
	assert.Equal(t, entry.ID, audit.RecordID)
	assert.Equal(t, "duplicate entry", audit.Reason)
	assert.Equal(t, "admin", audit.Actor)

	var snap struct {
		ID          uint            `json:"id"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Date        string          `json:"date"`
	}
	require.NoError(t, json.Unmarshal(audit.Snapshot, &snap))
	assert.Equal(t, entry.ID, snap.ID)
	assert.Equal(t, "EXPENSE", snap.Category)
	assert.Equal(t, "Arbitragem: jogo de sábado", snap.Description)
	assert.True(t, snap.Amount.Equal(dec("80")))
	assert.Equal(t, "2024-03-10", snap.Date)

	assert.Equal(t, 1, f.events.Count(events.SubjectLedgerReversed))
}

func TestLedger_ReverseRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	income, err := f.svc.Ledger.RecordIncome(ctx, admin, "Doação", dec("100"))
	require.NoError(t, err)
	payment, err := f.svc.Ledger.Post(ctx, PostInput{Category: models.LedgerMatchPayment, Amount: dec("25")})
	require.NoError(t, err)

	_, err = f.svc.Ledger.Reverse(ctx, payment.ID, "engano", admin)
	assert.ErrorIs(t, err, ErrNotReversible)

	_, err = f.svc.Ledger.Reverse(ctx, income.ID, "   ", admin)
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = f.svc.Ledger.Reverse(ctx, income.ID, "engano", Actor{Username: "ana", Role: models.RolePlayer})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.svc.Ledger.Reverse(ctx, 999, "engano", admin)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.EqualValues(t, 2, f.count(t, &models.LedgerEntry{}, ""))
	assert.Zero(t, f.count(t, &models.ReversalAudit{}, ""))

	audit, err := f.svc.Ledger.Reverse(ctx, income.ID, "engano", admin)
	require.NoError(t, err)
	assert.Equal(t, models.ActionReverseIncome, audit.Action)

	_, err = f.svc.Ledger.Reverse(ctx, income.ID, "engano", admin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_ManualMovementsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := Actor{Username: "viewer", Role: models.RoleViewer}

	_, err := f.svc.Ledger.RecordIncome(ctx, viewer, "Doação", dec("10"))
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = f.svc.Ledger.RecordExpense(ctx, viewer, "Material", "bolas", dec("10"))
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = f.svc.Ledger.RecordExpense(ctx, admin, "", "bolas", dec("10"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLedger_ListAuditsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uint
	for _, desc := range []string{"a", "b", "c"} {
		e, err := f.svc.Ledger.RecordIncome(ctx, admin, desc, dec("1"))
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	for _, id := range ids {
		_, err := f.svc.Ledger.Reverse(ctx, id, "teste", admin)
		require.NoError(t, err)
	}

	audits, err := f.svc.Ledger.ListAudits(ctx, 2)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, ids[2], audits[0].RecordID)
	assert.Equal(t, ids[1], audits[1].RecordID)
}
