// Command chargebee-sync is the operator diagnostic for single-member
// membership-tier reconciliation. It is never invoked automatically.
//
// Usage:
//
//	chargebee-sync -member 5417
//	chargebee-sync -member 5417 -apply
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
	zerologadapter "github.com/makehaven/chargebee-status-sync/pkg/membersync/logger/zerolog"
	"github.com/makehaven/chargebee-status-sync/storage/postgres"
)

type config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
}

func main() {
	memberID := flag.String("member", "", "member id to check")
	apply := flag.Bool("apply", false, "apply the membership tier change")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *memberID == "" {
		logger.Error().Msg("please provide a valid -member id")
		os.Exit(1)
	}

	if err := run(logger, *memberID, *apply); err != nil {
		logger.Error().Err(err).Msg("membership sync check failed")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger, memberID string, apply bool) error {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pgConfig := postgres.DefaultConfig()
	pgConfig.ConnectionString = cfg.DatabaseURL
	store, err := postgres.New(ctx, pgConfig)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	registry := membersync.NewRegistry(store, store, zerologadapter.NewLogger(logger))

	diagnosis, err := registry.DiagnoseMembership(ctx, store, memberID, apply)
	if err != nil {
		return err
	}

	switch {
	case diagnosis.InSync:
		logger.Info().
			Str("member", diagnosis.MemberID).
			Str("tier", diagnosis.TargetTierID).
			Msg("no change needed, membership tier already in sync")
	case diagnosis.Applied:
		logger.Info().
			Str("member", diagnosis.MemberID).
			Str("from", orNone(diagnosis.CurrentTierID)).
			Str("to", diagnosis.TargetTierID).
			Msg("membership tier updated")
	default:
		logger.Info().
			Str("member", diagnosis.MemberID).
			Str("from", orNone(diagnosis.CurrentTierID)).
			Str("to", diagnosis.TargetTierID).
			Msg("dry run: would update membership tier (re-run with -apply)")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
