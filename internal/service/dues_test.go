package service

import (
	"context"
	"testing"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDues_PostTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.player(t, "Ana", models.PlayerMember)

	in := DuesInput{PlayerID: ana.ID, Month: "March", Year: 2024, Amount: dec("50")}
	entry, err := f.svc.Dues.PostDues(ctx, in, admin)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerDues, entry.Category)
	assert.Equal(t, "Mensalidade March/2024 - Ana", entry.Description)
	require.NotNil(t, entry.Period)
	assert.Equal(t, "March/2024", *entry.Period)
	require.NotNil(t, entry.Year)
	assert.Equal(t, 2024, *entry.Year)

	_, err = f.svc.Dues.PostDues(ctx, in, admin)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	assert.EqualValues(t, 1, f.count(t, &models.LedgerEntry{},
		"category = ? AND player_id = ? AND period = ? AND year = ?", models.LedgerDues, ana.ID, "March/2024", 2024))

	// another month is a different charge
	in.Month = "April"
	_, err = f.svc.Dues.PostDues(ctx, in, admin)
	require.NoError(t, err)
}

func TestDues_UniqueIndexBacksTheCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.player(t, "Ana", models.PlayerMember)

	period, year, pid := "Maio/2024", 2024, ana.ID
	in := PostInput{Category: models.LedgerDues, Amount: dec("50"), PlayerID: &pid, Period: &period, Year: &year}
	_, err := f.svc.Ledger.Post(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.Ledger.Post(ctx, in)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDues_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.player(t, "Ana", models.PlayerMember)

	_, err := f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: ana.ID, Month: "Março", Year: 1999, Amount: dec("50")}, admin)
	assert.ErrorIs(t, err, ErrInvalidYear)
	_, err = f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: ana.ID, Month: "Março", Year: 2101, Amount: dec("50")}, admin)
	assert.ErrorIs(t, err, ErrInvalidYear)
	_, err = f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: ana.ID, Month: "Março", Year: 2024, Amount: dec("-5")}, admin)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: ana.ID, Month: " ", Year: 2024, Amount: dec("5")}, admin)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: 404, Month: "Março", Year: 2024, Amount: dec("5")}, admin)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: ana.ID, Month: "Março", Year: 2024, Amount: dec("5")}, playerActor(ana))
	assert.ErrorIs(t, err, ErrNotAuthorized)

	assert.Zero(t, f.count(t, &models.LedgerEntry{}, ""))
}

func TestDues_Reverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.player(t, "Ana", models.PlayerMember)

	dues, err := f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: ana.ID, Month: "Março", Year: 2024, Amount: dec("50")}, admin)
	require.NoError(t, err)
	expense, err := f.svc.Ledger.RecordExpense(ctx, admin, "Material", "bolas", dec("30"))
	require.NoError(t, err)

	_, err = f.svc.Dues.ReverseDues(ctx, expense.ID, "engano", admin)
	assert.ErrorIs(t, err, ErrNotDues)

	audit, err := f.svc.Dues.ReverseDues(ctx, dues.ID, "", admin)
	require.NoError(t, err)
	assert.Equal(t, models.ActionReverseDues, audit.Action)
	assert.Equal(t, "estorno de mensalidade", audit.Reason)

	// the same period can be charged again after a reversal
	_, err = f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: ana.ID, Month: "Março", Year: 2024, Amount: dec("45")}, admin)
	require.NoError(t, err)
}

func TestDues_ListGroupsPerMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.player(t, "Ana", models.PlayerMember)
	bia := f.player(t, "Bia", models.PlayerMember)

	post := func(p *models.Player, month string, year int, amount string) {
		_, err := f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: p.ID, Month: month, Year: year, Amount: dec(amount)}, admin)
		require.NoError(t, err)
	}
	post(bia, "Janeiro", 2024, "50")
	post(ana, "Janeiro", 2024, "50")
	post(ana, "Fevereiro", 2024, "50")
	post(ana, "Dezembro", 2023, "40")

	report, err := f.svc.Dues.ListDues(ctx, DuesFilter{})
	require.NoError(t, err)
	require.Len(t, report.Members, 2)
	assert.Equal(t, "Ana", report.Members[0].Player.Name)
	assert.Len(t, report.Members[0].Entries, 3)
	assert.True(t, report.Members[0].Total.Equal(dec("140")))
	assert.Equal(t, 2024, *report.Members[0].Entries[0].Year)
	assert.Equal(t, 2023, *report.Members[0].Entries[2].Year)
	assert.True(t, report.Total.Equal(dec("190")))
	assert.Equal(t, []int{2024, 2023}, report.Years)
	assert.Len(t, report.Periods, 3)

	report, err = f.svc.Dues.ListDues(ctx, DuesFilter{Month: "Janeiro", Year: 2024})
	require.NoError(t, err)
	assert.Len(t, report.Members, 2)
	assert.True(t, report.Total.Equal(dec("100")))

	report, err = f.svc.Dues.ListDues(ctx, DuesFilter{PlayerID: bia.ID})
	require.NoError(t, err)
	require.Len(t, report.Members, 1)
	assert.Equal(t, "Bia", report.Members[0].Player.Name)
}
