package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Statement kinds besides the explicit categories.
const (
	KindAll      = ""
	KindEntries  = "entries"
	KindExpenses = "expenses"
)

const topScorers = 10

// StatementFilter narrows RunningBalance. Both bounds are inclusive.
type StatementFilter struct {
	From *time.Time
	To   *time.Time
	Kind string
}

// StatementLine is an entry with the balance after it was applied.
type StatementLine struct {
	Entry   models.LedgerEntry `json:"entry"`
	Balance decimal.Decimal    `json:"balance"`
}

// Statement lists lines newest first.
type Statement struct {
	Lines    []StatementLine `json:"lines"`
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
	Balance  decimal.Decimal `json:"balance"`
}

type AttendanceRank struct {
	Player    models.Player `json:"player"`
	Matches   int           `json:"matches"`
	Confirmed int           `json:"confirmed"`
	Paid      int           `json:"paid"`
	Score     int           `json:"score"`
	Percent   float64       `json:"percent"`
}

type FinancialRank struct {
	Player   models.Player   `json:"player"`
	Total    decimal.Decimal `json:"total"`
	Payments int             `json:"payments"`
	Average  decimal.Decimal `json:"average"`
}

type TechnicalRank struct {
	Player   models.Player `json:"player"`
	Goals    int           `json:"goals"`
	Standout int           `json:"standout"`
	SentOff  int           `json:"sent_off"`
	Score    int           `json:"score"`
}

// Rankings holds the three player rankings.
type Rankings struct {
	Attendance []AttendanceRank `json:"attendance"`
	Financial  []FinancialRank  `json:"financial"`
	Technical  []TechnicalRank  `json:"technical"`
}

type Scorer struct {
	Player models.Player `json:"player"`
	Goals  int           `json:"goals"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	Totals    map[models.LedgerCategory]decimal.Decimal `json:"totals"`
	TotalIn   decimal.Decimal                           `json:"total_in"`
	TotalOut  decimal.Decimal                           `json:"total_out"`
	Balance   decimal.Decimal                           `json:"balance"`
	NextMatch *models.Match                             `json:"next_match,omitempty"`
	DaysUntil *int                                      `json:"days_until,omitempty"`
	Scorers   []Scorer                                  `json:"scorers"`
	Players   int64                                     `json:"players"`
	Members   int64                                     `json:"members"`
}

// ScoreStats summarises results of played matches.
type ScoreStats struct {
	Matches int     `json:"matches"`
	Wins    int     `json:"wins"`
	Draws   int     `json:"draws"`
	Losses  int     `json:"losses"`
	For     int     `json:"goals_for"`
	Against int     `json:"goals_against"`
	Percent float64 `json:"percent"`
}

// Reports runs read-only queries over the ledger and attendance.
type Reports struct {
	db    *gorm.DB
	clock clockwork.Clock
}

func NewReports(db *gorm.DB, clock clockwork.Clock) *Reports {
	return &Reports{db: db, clock: clock}
}

// RunningBalance folds the filtered entries oldest first and returns them
// newest first, each carrying the balance after it.
func (r *Reports) RunningBalance(ctx context.Context, f StatementFilter) (*Statement, error) {
	q := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Preload("Player")
	switch f.Kind {
	case KindAll:
	case KindEntries:
		q = q.Where("category <> ?", models.LedgerExpense)
	case KindExpenses:
		q = q.Where("category = ?", models.LedgerExpense)
	default:
		c := models.LedgerCategory(f.Kind)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown statement kind %q", ErrInvalidInput, f.Kind)
		}
		q = q.Where("category = ?", c)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}

	var entries []models.LedgerEntry
	if err := q.Order("date ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}

	st := &Statement{TotalIn: decimal.Zero, TotalOut: decimal.Zero, Balance: decimal.Zero}
	st.Lines = make([]StatementLine, len(entries))
	for i, e := range entries {
		if e.Category.Outflow() {
			st.TotalOut = st.TotalOut.Add(e.Amount)
			st.Balance = st.Balance.Sub(e.Amount)
		} else {
			st.TotalIn = st.TotalIn.Add(e.Amount)
			st.Balance = st.Balance.Add(e.Amount)
		}
		// fill from the back so the result reads newest first
		st.Lines[len(entries)-1-i] = StatementLine{Entry: e, Balance: st.Balance}
	}
	return st, nil
}

// Rankings computes the attendance, financial and technical rankings.
// Players with nothing to rank are left out; ties go by name.
func (r *Reports) Rankings(ctx context.Context) (*Rankings, error) {
	db := r.db.WithContext(ctx)

	var players []models.Player
	if err := db.Order("name").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	var rows []models.Attendance
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	var standouts []struct {
		StandoutID uint
		N          int
	}
	if err := db.Model(&models.Match{}).
		Select("standout_id, COUNT(*) AS n").
		Where("standout_id IS NOT NULL").
		Group("standout_id").
		Scan(&standouts).Error; err != nil {
		return nil, fmt.Errorf("count standouts: %w", err)
	}

	type agg struct {
		matches, confirmed, paid int
		total                    decimal.Decimal
		goals, sentOff, standout int
	}
	byPlayer := make(map[uint]*agg, len(players))
	for _, p := range players {
		byPlayer[p.ID] = &agg{total: decimal.Zero}
	}
	for _, row := range rows {
		a, ok := byPlayer[row.PlayerID]
		if !ok {
			continue
		}
		a.matches++
		if row.Confirmed {
			a.confirmed++
		}
		if row.Paid {
			a.paid++
			a.total = a.total.Add(row.AmountPaid)
		}
		a.goals += row.Goals
		if row.SentOff {
			a.sentOff++
		}
	}
	for _, s := range standouts {
		if a, ok := byPlayer[s.StandoutID]; ok {
			a.standout = s.N
		}
	}

	out := &Rankings{}
	for _, p := range players {
		a := byPlayer[p.ID]
		if a.matches > 0 {
			out.Attendance = append(out.Attendance, AttendanceRank{
				Player:    p,
				Matches:   a.matches,
				Confirmed: a.confirmed,
				Paid:      a.paid,
				Score:     a.confirmed + a.paid,
				Percent:   round1(float64(a.confirmed) / float64(a.matches) * 100),
			})
		}
		if a.total.IsPositive() {
			out.Financial = append(out.Financial, FinancialRank{
				Player:   p,
				Total:    a.total,
				Payments: a.paid,
				Average:  a.total.Div(decimal.NewFromInt(int64(a.paid))).Round(2),
			})
		}
		if a.goals > 0 || a.standout > 0 || a.sentOff > 0 {
			out.Technical = append(out.Technical, TechnicalRank{
				Player:   p,
				Goals:    a.goals,
				Standout: a.standout,
				SentOff:  a.sentOff,
				Score:    a.goals + a.standout - a.sentOff,
			})
		}
	}

	// players are already name-ordered, so stable sorts keep name as tiebreak
	sort.SliceStable(out.Attendance, func(i, j int) bool {
		return out.Attendance[i].Score > out.Attendance[j].Score
	})
	sort.SliceStable(out.Financial, func(i, j int) bool {
		return out.Financial[i].Total.GreaterThan(out.Financial[j].Total)
	})
	sort.SliceStable(out.Technical, func(i, j int) bool {
		return out.Technical[i].Score > out.Technical[j].Score
	})
	return out, nil
}

// Dashboard sums the ledger per category and looks up the next match and
// the top scorers.
func (r *Reports) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := r.db.WithContext(ctx)

	var entries []models.LedgerEntry
	if err := db.Select("category", "amount").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	d := &Dashboard{
		Totals:   make(map[models.LedgerCategory]decimal.Decimal),
		TotalIn:  decimal.Zero,
		TotalOut: decimal.Zero,
	}
	for _, c := range []models.LedgerCategory{models.LedgerDues, models.LedgerMatchPayment, models.LedgerIncome, models.LedgerExpense} {
		d.Totals[c] = decimal.Zero
	}
	for _, e := range entries {
		d.Totals[e.Category] = d.Totals[e.Category].Add(e.Amount)
		if e.Category.Outflow() {
			d.TotalOut = d.TotalOut.Add(e.Amount)
		} else {
			d.TotalIn = d.TotalIn.Add(e.Amount)
		}
	}
	d.Balance = d.TotalIn.Sub(d.TotalOut)

	now := today(r.clock)
	var next []models.Match
	if err := db.Where("date >= ?", now).Order("date ASC, kick_off ASC, id ASC").Limit(1).Find(&next).Error; err != nil {
		return nil, fmt.Errorf("next match: %w", err)
	}
	if len(next) == 1 {
		d.NextMatch = &next[0]
		days := int(next[0].Date.Sub(now).Hours() / 24)
		d.DaysUntil = &days
	}

	var scorers []struct {
		PlayerID uint
		Goals    int
	}
	if err := db.Model(&models.Attendance{}).
		Select("player_id, SUM(goals) AS goals").
		Group("player_id").
		Having("SUM(goals) > 0").
		Order("goals DESC").
		Scan(&scorers).Error; err != nil {
		return nil, fmt.Errorf("top scorers: %w", err)
	}
	if len(scorers) > 0 {
		ids := make([]uint, len(scorers))
		for i, s := range scorers {
			ids[i] = s.PlayerID
		}
		var players []models.Player
		if err := db.Where("id IN ?", ids).Find(&players).Error; err != nil {
			return nil, fmt.Errorf("load scorers: %w", err)
		}
		byID := make(map[uint]models.Player, len(players))
		for _, p := range players {
			byID[p.ID] = p
		}
		for _, s := range scorers {
			d.Scorers = append(d.Scorers, Scorer{Player: byID[s.PlayerID], Goals: s.Goals})
		}
		sort.SliceStable(d.Scorers, func(i, j int) bool {
			if d.Scorers[i].Goals != d.Scorers[j].Goals {
				return d.Scorers[i].Goals > d.Scorers[j].Goals
			}
			return d.Scorers[i].Player.Name < d.Scorers[j].Player.Name
		})
		if len(d.Scorers) > topScorers {
			d.Scorers = d.Scorers[:topScorers]
		}
	}

	if err := db.Model(&models.Player{}).Where("active = ?", true).Count(&d.Players).Error; err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	if err := db.Model(&models.Player{}).
		Where("active = ? AND category = ?", true, models.PlayerMember).
		Count(&d.Members).Error; err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	return d, nil
}

// ScoreStats counts results over played matches that have a score.
func (r *Reports) ScoreStats(ctx context.Context) (*ScoreStats, error) {
	var matches []models.Match
	err := r.db.WithContext(ctx).
		Where("status = ? AND score_ours IS NOT NULL AND score_theirs IS NOT NULL", models.MatchPlayed).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("list played matches: %w", err)
	}

	s := &ScoreStats{}
	for _, m := range matches {
		ours, theirs := *m.ScoreOurs, *m.ScoreTheirs
		s.Matches++
		s.For += ours
		s.Against += theirs
		switch {
		case ours > theirs:
			s.Wins++
		case ours == theirs:
			s.Draws++
		default:
			s.Losses++
		}
	}
	if s.Matches > 0 {
		s.Percent = round1(float64(3*s.Wins+s.Draws) / float64(3*s.Matches) * 100)
	}
	return s, nil
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
