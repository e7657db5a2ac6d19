// Package service holds the club's business workflows: the ledger posting
// engine, match settlement, monthly dues and the reporting queries, plus the
// player, match and user management they depend on.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Evaldo-hub/associacaoufpa/internal/events"
	"github.com/Evaldo-hub/associacaoufpa/internal/lock"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Options wires the shared collaborators of all services.
type Options struct {
	Clock       clockwork.Clock
	Events      events.Publisher
	Locker      lock.Locker
	LockTimeout time.Duration

	DefaultVenue          string
	DefaultFee            decimal.Decimal
	PrepopulateAttendance bool
	BcryptCost            int
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Events == nil {
		o.Events = events.Nop{}
	}
	if o.Locker == nil {
		o.Locker = lock.NewKeyedMutex()
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = 10 * time.Second
	}
	return o
}

// Services bundles every workflow over one database.
type Services struct {
	Ledger     *Ledger
	Settlement *Settlement
	Dues       *Dues
	Reports    *Reports
	Players    *Players
	Matches    *Matches
	Users      *Users
}

// New builds all services. Wiring order follows the dependency graph:
// store → ledger → settlement / dues, store → reports.
func New(db *gorm.DB, opts Options) *Services {
	opts = opts.withDefaults()
	guard := matchGuard{locker: opts.Locker, timeout: opts.LockTimeout}

	ledger := NewLedger(db, opts.Clock, opts.Events)
	return &Services{
		Ledger:     ledger,
		Settlement: NewSettlement(db, ledger, guard, opts.Clock, opts.Events),
		Dues:       NewDues(db, ledger),
		Reports:    NewReports(db, opts.Clock),
		Players:    NewPlayers(db),
		Matches:    NewMatches(db, guard, opts),
		Users:      NewUsers(db, opts.BcryptCost, opts.Clock),
	}
}

// matchGuard takes the per-match lock with a bounded wait.
type matchGuard struct {
	locker  lock.Locker
	timeout time.Duration
}

func (g matchGuard) acquire(ctx context.Context, matchID uint) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	unlock, err := g.locker.Lock(waitCtx, fmt.Sprintf("match:%d", matchID))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, fmt.Errorf("match %d: %w", matchID, ErrLocked)
		}
		return nil, fmt.Errorf("lock match %d: %w", matchID, err)
	}
	return unlock, nil
}

func today(clock clockwork.Clock) time.Time {
	return util.DateOnly(clock.Now())
}

// ParseAmount parses raw monetary input, wrapping failures in ErrInvalidAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := util.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}

// ParseDate parses a YYYY-MM-DD date, wrapping failures in ErrInvalidDate.
func ParseDate(raw string) (time.Time, error) {
	t, err := util.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return t, nil
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}

func publish(ctx context.Context, pub events.Publisher, subject string, payload any) {
	if err := pub.Publish(ctx, subject, payload); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("publish event failed")
	}
}
