// Command clubadmin runs one-off maintenance tasks against the club
// database.
//
//	clubadmin [-config config.yaml] seed-members
//	clubadmin [-config config.yaml] reset-finance -yes
//	clubadmin [-config config.yaml] create-admin -username tesoureiro -password ...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Evaldo-hub/associacaoufpa/internal/config"
	"github.com/Evaldo-hub/associacaoufpa/internal/database"
	"github.com/Evaldo-hub/associacaoufpa/internal/logging"
	"github.com/Evaldo-hub/associacaoufpa/internal/service"

	"github.com/rs/zerolog/log"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config file] <seed-members|reset-finance|create-admin> [flags]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log)

	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("init database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	svc := service.New(db, service.Options{BcryptCost: cfg.Security.BcryptCost})

	ctx := context.Background()
	cmd, args := flag.Arg(0), flag.Args()[1:]

	switch cmd {
	case "seed-members":
		n, err := svc.Players.SeedMembers(ctx, service.System)
		if err != nil {
			log.Fatal().Err(err).Msg("seed members")
		}
		log.Info().Int("created", n).Msg("sample members ready")

	case "reset-finance":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		yes := fs.Bool("yes", false, "confirm reversing every ledger entry")
		_ = fs.Parse(args)
		if !*yes {
			log.Fatal().Msg("refusing to reset finance without -yes")
		}
		out, err := svc.Ledger.ResetFinance(ctx, service.System)
		if err != nil {
			log.Fatal().Err(err).Msg("reset finance")
		}
		log.Info().Int64("entries", out.Entries).
			Int64("attendances", out.Attendances).
			Msg("finance data cleared")

	case "create-admin":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		username := fs.String("username", "", "login of the new administrator")
		password := fs.String("password", "", "initial password")
		_ = fs.Parse(args)
		u, err := svc.Users.CreateAdmin(ctx, *username, *password)
		if err != nil {
			log.Fatal().Err(err).Msg("create admin")
		}
		log.Info().Str("username", u.Username).Uint("id", u.ID).Msg("administrator created")

	default:
		usage()
		os.Exit(2)
	}
}
