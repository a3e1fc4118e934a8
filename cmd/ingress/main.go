// cmd/ingress/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/geodir/ingress/pkg/config"
	"github.com/geodir/ingress/pkg/fetch"
	"github.com/geodir/ingress/pkg/geocode"
	"github.com/geodir/ingress/pkg/importer"
	"github.com/geodir/ingress/pkg/model"
	"github.com/geodir/ingress/pkg/scheduler"
	"github.com/geodir/ingress/pkg/store"
)

func main() {
	root := &cobra.Command{
		Use:           "ingress",
		Short:         "Import external directory datasets into the document store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newCollectCmd(), newRefreshCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <import-id>",
		Short: "Run a full import of the given source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *environment) error {
				imp, err := loadImport(ctx, env.store, args[0])
				if err != nil {
					return err
				}

				summary, err := env.orchestrator.Run(ctx, imp)
				if err != nil {
					return err
				}

				env.logger.Info("Run summary",
					zap.String("state", string(summary.State)),
					zap.String("level", string(summary.Level)),
					zap.Int64("elements", summary.Data.ElementsCount),
					zap.Int64("errors", summary.Data.ElementsErrorsCount))
				return nil
			})
		},
	}
}

func newCollectCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "collect <import-id>",
		Short: "Fetch and normalize the source without importing, for mapping preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *environment) error {
				imp, err := loadImport(ctx, env.store, args[0])
				if err != nil {
					return err
				}

				rows, err := env.orchestrator.CollectData(ctx, imp)
				if err != nil {
					return err
				}
				if limit > 0 && len(rows) > limit {
					rows = rows[:limit]
				}

				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of normalized rows to print (0 for all)")
	return cmd
}

func newRefreshCmd() *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh every dynamic import whose schedule is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *environment) error {
				sched := scheduler.NewScheduler(env.store, env.orchestrator, env.logger).
					WithInterval(interval)

				if watch {
					err := sched.Start(ctx)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}

				results, err := sched.RunDue(ctx)
				if err != nil {
					return err
				}
				env.logger.Info("Refresh sweep finished", zap.Int("refreshed", len(results)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep polling instead of running a single sweep")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Polling interval in watch mode")
	return cmd
}

// environment bundles the wired dependencies shared by the commands.
type environment struct {
	logger       *zap.Logger
	store        store.Store
	orchestrator *importer.Orchestrator
}

// withEnv loads configuration, connects the store and runs fn with a fully
// wired environment, tearing everything down afterwards.
func withEnv(ctx context.Context, fn func(context.Context, *environment) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	st, disconnect, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to document store: %w", err)
	}
	defer func() {
		if err := disconnect(context.Background()); err != nil {
			logger.Warn("Document store disconnect failed", zap.Error(err))
		}
	}()

	geocoder := geocode.NewNominatimClient(cfg.GeocoderEndpoint, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, logger)

	orchestrator := importer.NewOrchestrator(st, fetch.NewFetcher(logger), geocoder, logger).
		WithBatchSize(cfg.BatchSize).
		WithPrivateFields(cfg.PrivateCustomFields)

	return fn(ctx, &environment{logger: logger, store: st, orchestrator: orchestrator})
}

func loadImport(ctx context.Context, st store.Store, id string) (*model.Import, error) {
	imp, err := st.Imports().Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load import %s: %w", id, err)
	}
	if imp == nil {
		return nil, fmt.Errorf("import %s not found", id)
	}
	return imp, nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zc zap.Config
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
