package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Evaldo-hub/associacaoufpa/internal/config"
	"github.com/Evaldo-hub/associacaoufpa/internal/database"
	"github.com/Evaldo-hub/associacaoufpa/internal/events"
	"github.com/Evaldo-hub/associacaoufpa/internal/lock"
	"github.com/Evaldo-hub/associacaoufpa/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var admin = Actor{UserID: 1, Username: "admin", Role: models.RoleAdmin}

type fixture struct {
	db     *gorm.DB
	svc    *Services
	clock  *clockwork.FakeClock
	events *events.Recorder
	locker *lock.KeyedMutex
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "club.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, Options{})
}

func newFixtureWith(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		db:     newTestDB(t),
		clock:  clockwork.NewFakeClockAt(time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)),
		events: &events.Recorder{},
		locker: lock.NewKeyedMutex(),
	}
	opts.Clock = f.clock
	opts.Events = f.events
	opts.Locker = f.locker
	if opts.LockTimeout == 0 {
		opts.LockTimeout = 2 * time.Second
	}
	opts.BcryptCost = 4
	f.svc = New(f.db, opts)
	return f
}

func (f *fixture) player(t *testing.T, name string, cat models.PlayerCategory) *models.Player {
	t.Helper()
	p, err := f.svc.Players.Create(context.Background(), admin, PlayerInput{Name: name, Category: cat})
	require.NoError(t, err)
	return p
}

func (f *fixture) match(t *testing.T, date string) *models.Match {
	t.Helper()
	m, err := f.svc.Matches.Create(context.Background(), admin, MatchInput{Date: date, Opponent: "Rivals"})
	require.NoError(t, err)
	return m
}

func (f *fixture) join(t *testing.T, matchID, playerID uint) *models.Attendance {
	t.Helper()
	row, err := f.svc.Settlement.AddParticipant(context.Background(), matchID, playerID, admin)
	require.NoError(t, err)
	return row
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (f *fixture) attendance(t *testing.T, id uint) models.Attendance {
	t.Helper()
	var row models.Attendance
	require.NoError(t, f.db.First(&row, id).Error)
	return row
}

func playerActor(p *models.Player) Actor {
	id := p.ID
	return Actor{UserID: 100 + p.ID, Username: p.Name, Role: models.RolePlayer, PlayerID: &id}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
