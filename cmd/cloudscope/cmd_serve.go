package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/cloudscope/cloudscope/config"
	"github.com/cloudscope/cloudscope/internal/aws"
	"github.com/cloudscope/cloudscope/internal/cache"
	"github.com/cloudscope/cloudscope/internal/inventory"
	"github.com/cloudscope/cloudscope/internal/server"
	"github.com/cloudscope/cloudscope/internal/store"
	"github.com/cloudscope/cloudscope/telemetry"
	"github.com/cloudscope/cloudscope/types"
)

var serveListen string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API server",
	Long: `Run the CloudScope API server.

The server manages stored AWS profiles and serves the resource
inventory of the active one: cached reads, explicit refresh, per
category views. Prometheus metrics are exposed on /metrics and traces
are pushed over OTLP when an endpoint is configured.`,
	Example: `  cloudscope serve                         # Defaults, port 8080
  cloudscope serve --config cloudscope.yaml
  cloudscope serve --listen :9000          # Override the listen address`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	ctx := cmd.Context()
	log := telemetry.NewLogger("cloudscope")

	otelShutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "cloudscope",
		ServiceVersion: version,
		OTELEndpoint:   cfg.Telemetry.OTELEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	profileStore, err := store.NewProfileStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = profileStore.Close() }()
	if err := profileStore.Init(ctx); err != nil {
		return err
	}

	resourceCache := openCache(cfg, log)
	defer func() { _ = resourceCache.Close() }()

	resolver := aws.NewResolver()
	factory := func(ctx context.Context, profile *types.Profile) (inventory.Aggregator, error) {
		provider, err := aws.New(ctx, profile, log, cfg.AWS.ScanWorkers)
		if err != nil {
			return nil, err
		}
		return provider, nil
	}

	inv := inventory.NewService(resourceCache, factory)
	srv := server.New(profileStore, inv, resolver.AccountID, log,
		cfg.Server.Listen, cfg.Server.CORSOrigin, cfg.AWS.DefaultRegion, !cfg.Cache.Disabled)

	var g run.Group
	g.Add(func() error {
		return srv.Start()
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()

	var sig run.SignalError
	if errors.As(err, &sig) {
		log.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
		return nil
	}
	return err
}

// openCache opens the bbolt resource cache, falling back to a disabled
// one when the file cannot be opened: the dashboard still works, every
// read just goes to AWS.
func openCache(cfg *config.Config, log *telemetry.Logger) cache.ResourceCache {
	if cfg.Cache.Disabled {
		return cache.Disabled()
	}
	c, err := cache.NewBoltCache(cfg.Cache.Path, cfg.CacheTTL(), log)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Cache.Path).Msg("resource cache unavailable, continuing without")
		return cache.Disabled()
	}
	return c
}
