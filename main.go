package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Evaldo-hub/associacaoufpa/internal/config"
	"github.com/Evaldo-hub/associacaoufpa/internal/database"
	"github.com/Evaldo-hub/associacaoufpa/internal/events"
	"github.com/Evaldo-hub/associacaoufpa/internal/lock"
	"github.com/Evaldo-hub/associacaoufpa/internal/logging"
	"github.com/Evaldo-hub/associacaoufpa/internal/router"
	"github.com/Evaldo-hub/associacaoufpa/internal/service"

	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log)

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("init database")
	}

	// run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	opts := service.Options{
		Clock:                 clockwork.NewRealClock(),
		LockTimeout:           time.Duration(cfg.Club.LockTimeoutSeconds) * time.Second,
		DefaultVenue:          cfg.Club.DefaultVenue,
		DefaultFee:            decimal.NewFromFloat(cfg.Club.DefaultMatchFee),
		PrepopulateAttendance: cfg.Club.PrepopulateAttendance,
		BcryptCost:            cfg.Security.BcryptCost,
	}

	if cfg.Redis.Addr != "" {
		client := lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()
		opts.Locker = lock.NewRedisLocker(client, "associacao", lock.LeaseFor(opts.LockTimeout))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis match locks")
	}

	if cfg.NATS.URL != "" {
		pub, err := events.ConnectNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer pub.Close()
		opts.Events = pub
		log.Info().Str("url", cfg.NATS.URL).Msg("publishing events to nats")
	}

	svc := service.New(db, opts)

	generated, err := svc.Users.EnsureAdmin(context.Background(), cfg.Security.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("ensure admin")
	}
	if generated != "" {
		log.Warn().Str("username", service.AdminUsername).Str("password", generated).
			Msg("admin account created with a generated password, change it after the first login")
	}

	// setup router
	r := router.SetupRouter(cfg, db, svc, opts.Clock)
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("run server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
