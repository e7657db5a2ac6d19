package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReports_RunningBalanceFoldsAscending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, in := range []PostInput{
		{Category: models.LedgerDues, Amount: dec("100"), Date: date("2024-01-01")},
		{Category: models.LedgerExpense, Amount: dec("30"), Date: date("2024-01-05")},
		{Category: models.LedgerMatchPayment, Amount: dec("50"), Date: date("2024-01-10")},
	} {
		_, err := f.svc.Ledger.Post(ctx, in)
		require.NoError(t, err)
	}

	st, err := f.svc.Reports.RunningBalance(ctx, StatementFilter{})
	require.NoError(t, err)
	require.Len(t, st.Lines, 3)

	wantDates := []string{"2024-01-10", "2024-01-05", "2024-01-01"}
	wantBalances := []string{"120", "70", "100"}
	for i, line := range st.Lines {
		assert.Equal(t, wantDates[i], line.Entry.Date.Format("2006-01-02"), "line %d", i)
		assert.True(t, line.Balance.Equal(dec(wantBalances[i])), "line %d balance = %s", i, line.Balance)
	}
	assert.True(t, st.TotalIn.Equal(dec("150")))
	assert.True(t, st.TotalOut.Equal(dec("30")))
	assert.True(t, st.Balance.Equal(dec("120")))
}

func TestReports_RunningBalanceSameDayOrdersByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uint
	for _, in := range []PostInput{
		{Category: models.LedgerDues, Amount: dec("100"), Date: date("2024-01-05")},
		{Category: models.LedgerExpense, Amount: dec("30"), Date: date("2024-01-05")},
		{Category: models.LedgerDues, Amount: dec("20"), Date: date("2024-01-05")},
		// inserted last but dated earlier
		{Category: models.LedgerIncome, Amount: dec("10"), Date: date("2024-01-03")},
	} {
		e, err := f.svc.Ledger.Post(ctx, in)
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	st, err := f.svc.Reports.RunningBalance(ctx, StatementFilter{})
	require.NoError(t, err)
	require.Len(t, st.Lines, 4)

	// fold: 10 -> 110 -> 80 -> 100
	wantIDs := []uint{ids[2], ids[1], ids[0], ids[3]}
	wantBalances := []string{"100", "80", "110", "10"}
	for i, line := range st.Lines {
		assert.Equal(t, wantIDs[i], line.Entry.ID, "line %d", i)
		assert.True(t, line.Balance.Equal(dec(wantBalances[i])), "line %d balance = %s", i, line.Balance)
	}

	to := date("2024-01-05")
	st, err = f.svc.Reports.RunningBalance(ctx, StatementFilter{To: &to})
	require.NoError(t, err)
	assert.Len(t, st.Lines, 4, "entries dated on the upper bound are included")

	to = date("2024-01-03")
	st, err = f.svc.Reports.RunningBalance(ctx, StatementFilter{To: &to})
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, ids[3], st.Lines[0].Entry.ID)
	assert.True(t, st.Balance.Equal(dec("10")))
}

func TestReports_RunningBalanceFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, in := range []PostInput{
		{Category: models.LedgerDues, Amount: dec("100"), Date: date("2024-01-01")},
		{Category: models.LedgerExpense, Amount: dec("30"), Date: date("2024-01-05")},
		{Category: models.LedgerIncome, Amount: dec("20"), Date: date("2024-02-01")},
	} {
		_, err := f.svc.Ledger.Post(ctx, in)
		require.NoError(t, err)
	}

	st, err := f.svc.Reports.RunningBalance(ctx, StatementFilter{Kind: KindExpenses})
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	assert.True(t, st.Balance.Equal(dec("-30")))

	st, err = f.svc.Reports.RunningBalance(ctx, StatementFilter{Kind: KindEntries})
	require.NoError(t, err)
	assert.Len(t, st.Lines, 2)

	st, err = f.svc.Reports.RunningBalance(ctx, StatementFilter{Kind: string(models.LedgerIncome)})
	require.NoError(t, err)
	assert.Len(t, st.Lines, 1)

	from, to := date("2024-01-05"), date("2024-01-31")
	st, err = f.svc.Reports.RunningBalance(ctx, StatementFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, models.LedgerExpense, st.Lines[0].Entry.Category)

	_, err = f.svc.Reports.RunningBalance(ctx, StatementFilter{Kind: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReports_Rankings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.player(t, "Ana", models.PlayerMember)
	bia := f.player(t, "Bia", models.PlayerMember)
	f.player(t, "Carla", models.PlayerMember) // never played

	m1 := f.match(t, "2024-03-02")
	m2 := f.match(t, "2024-03-09")
	a1, b1 := f.join(t, m1.ID, ana.ID), f.join(t, m1.ID, bia.ID)
	a2 := f.join(t, m2.ID, ana.ID)
	f.join(t, m2.ID, bia.ID)

	_, err := f.svc.Settlement.UpdateAttendance(ctx, m1.ID, AttendanceBatch{
		Edits: []AttendanceEdit{
			{AttendanceID: a1.ID, Confirmed: true, Paid: true, Amount: "20", Goals: "1"},
			{AttendanceID: b1.ID, Confirmed: true, Paid: true, Amount: "30", Goals: "2", SentOff: true},
		},
		Standout: strPtr(fmt.Sprint(ana.ID)),
	}, admin)
	require.NoError(t, err)
	_, err = f.svc.Settlement.UpdateAttendance(ctx, m2.ID, AttendanceBatch{
		Edits: []AttendanceEdit{{AttendanceID: a2.ID, Confirmed: true, Paid: true, Amount: "20"}},
	}, admin)
	require.NoError(t, err)

	r, err := f.svc.Reports.Rankings(ctx)
	require.NoError(t, err)

	require.Len(t, r.Attendance, 2)
	assert.Equal(t, "Ana", r.Attendance[0].Player.Name)
	assert.Equal(t, 4, r.Attendance[0].Score)
	assert.Equal(t, 100.0, r.Attendance[0].Percent)
	assert.Equal(t, 50.0, r.Attendance[1].Percent)

	require.Len(t, r.Financial, 2)
	assert.Equal(t, "Ana", r.Financial[0].Player.Name)
	assert.True(t, r.Financial[0].Total.Equal(dec("40")))
	assert.True(t, r.Financial[0].Average.Equal(dec("20")))

	// Ana: 1 goal + 1 standout; Bia: 2 goals - 1 sent off
	require.Len(t, r.Technical, 2)
	assert.Equal(t, "Ana", r.Technical[0].Player.Name)
	assert.Equal(t, 2, r.Technical[0].Score)
	assert.Equal(t, 1, r.Technical[1].Score)
}

func TestReports_Dashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.player(t, "Ana", models.PlayerMember)
	f.player(t, "Convidado", models.PlayerGuest)

	past := f.match(t, "2024-03-02")
	f.match(t, "2024-03-20")
	f.match(t, "2024-03-13")

	row := f.join(t, past.ID, ana.ID)
	_, err := f.svc.Settlement.UpdateAttendance(ctx, past.ID, AttendanceBatch{
		Edits: []AttendanceEdit{{AttendanceID: row.ID, Confirmed: true, Paid: true, Amount: "25", Goals: "3"}},
	}, admin)
	require.NoError(t, err)
	_, err = f.svc.Ledger.RecordExpense(ctx, admin, "Campo", "aluguel", dec("40"))
	require.NoError(t, err)
	_, err = f.svc.Dues.PostDues(ctx, DuesInput{PlayerID: ana.ID, Month: "Março", Year: 2024, Amount: dec("50")}, admin)
	require.NoError(t, err)

	d, err := f.svc.Reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, d.Totals[models.LedgerMatchPayment].Equal(dec("25")))
	assert.True(t, d.Totals[models.LedgerDues].Equal(dec("50")))
	assert.True(t, d.Totals[models.LedgerIncome].IsZero())
	assert.True(t, d.Balance.Equal(dec("35")))

	require.NotNil(t, d.NextMatch)
	assert.Equal(t, "2024-03-13", d.NextMatch.Date.Format("2006-01-02"))
	require.NotNil(t, d.DaysUntil)
	assert.Equal(t, 3, *d.DaysUntil)

	require.Len(t, d.Scorers, 1)
	assert.Equal(t, "Ana", d.Scorers[0].Player.Name)
	assert.Equal(t, 3, d.Scorers[0].Goals)
	assert.EqualValues(t, 2, d.Players)
	assert.EqualValues(t, 1, d.Members)
}

func TestReports_ScoreStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	score := func(ours, theirs int, status string) {
		m := f.match(t, "2024-03-02")
		_, err := f.svc.Matches.RecordScore(ctx, admin, m.ID, ScoreInput{Ours: &ours, Theirs: &theirs, Status: status})
		require.NoError(t, err)
	}
	score(3, 1, models.MatchPlayed)
	score(2, 2, models.MatchPlayed)
	score(0, 1, models.MatchPlayed)
	score(5, 0, models.MatchPlayed)
	score(0, 0, models.MatchCancelled)
	f.match(t, "2024-03-30")

	s, err := f.svc.Reports.ScoreStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Matches)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Draws)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 10, s.For)
	assert.Equal(t, 4, s.Against)
	// (3*2 + 1) / 12
	assert.Equal(t, 58.3, s.Percent)
}
