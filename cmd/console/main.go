package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jwebster45206/wired-engine/internal/config"
	"github.com/jwebster45206/wired-engine/internal/logger"
	"github.com/jwebster45206/wired-engine/internal/storage"
	"github.com/jwebster45206/wired-engine/internal/telemetry"
	"github.com/jwebster45206/wired-engine/pkg/keyedmap"
	"github.com/jwebster45206/wired-engine/pkg/scenario"
	"github.com/jwebster45206/wired-engine/pkg/state"
	"github.com/spf13/cobra"
)

// consoleOptions holds the command-line flags. Empty values fall back to the
// environment configuration.
type consoleOptions struct {
	catalog string
	tuning  string
	load    string
	logFile string
	hash    string
	noClock bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &consoleOptions{}

	cmd := &cobra.Command{
		Use:           "wired-console",
		Short:         "Play a wired-engine catalog in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := hashFunc(opts.hash); err != nil {
				return err
			}
			if opts.load != "" {
				if _, err := uuid.Parse(opts.load); err != nil {
					return fmt.Errorf("invalid save id %q: %w", opts.load, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "catalog file (default $CATALOG_PATH)")
	cmd.Flags().StringVar(&opts.tuning, "tuning", "", "tuning file (default $TUNING_PATH)")
	cmd.Flags().StringVar(&opts.load, "load", "", "saved game id to resume")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "wired-engine.log", "log output file")
	cmd.Flags().StringVar(&opts.hash, "hash", "djb2", "keyed map hash (djb2|xxhash)")
	cmd.Flags().BoolVar(&opts.noClock, "no-clock", false, "do not advance the clock in real time")

	return cmd
}

func hashFunc(name string) (keyedmap.HashFunc, error) {
	switch name {
	case "", "djb2":
		return keyedmap.HashDJB2, nil
	case "xxhash":
		return keyedmap.HashXX, nil
	}
	return nil, fmt.Errorf("invalid hash %q: must be djb2 or xxhash", name)
}

func run(ctx context.Context, opts *consoleOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.catalog != "" {
		cfg.CatalogPath = opts.catalog
	}
	if opts.tuning != "" {
		cfg.TuningPath = opts.tuning
		if cfg.Tuning, err = config.LoadTuning(cfg.TuningPath); err != nil {
			return err
		}
	}

	// The terminal belongs to the UI, so logs go to a file.
	logOut, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		_ = logOut.Close()
	}()
	log := logger.SetupTo(logOut, cfg)

	tracer := telemetry.NoopTracer()
	if cfg.OTelEnabled {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("Telemetry shutdown failed", "error", err)
			}
		}()
		tracer = telemetry.Tracer("console")
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close storage", "error", err)
		}
	}()

	cat, err := scenario.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := checkCatalog(cat); err != nil {
		return err
	}

	hash, _ := hashFunc(opts.hash)
	start := cfg.Tuning.StartUnits()
	session, err := state.NewSession(cat, state.Options{
		FlagBuckets:     cfg.Tuning.FlagBuckets,
		LocationBuckets: cfg.Tuning.LocationBuckets,
		Hash:            hash,
		StartUnits:      &start,
		Logger:          log,
		Tracer:          tracer,
	})
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	g := &game{
		session: session,
		store:   store,
		copyFn:  clipboard.WriteAll,
		logger:  logger.WithSession(log, session.World.ID.String()),
	}
	if opts.load != "" {
		if err := g.restore(ctx, uuid.MustParse(opts.load)); err != nil {
			return err
		}
	}

	log.Info("Console started",
		"catalog", cfg.CatalogPath,
		"world_id", session.World.ID,
		"hash", opts.hash,
		"clock", !opts.noClock)

	p := tea.NewProgram(NewConsoleUI(ctx, g),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx))

	if !opts.noClock {
		ticker := session.StartClock(ctx, cfg.Tuning.TickInterval(), cfg.Tuning.UnitsPerTick, tickForwarder(p))
		defer ticker.Stop()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// checkCatalog rejects a catalog with dangling ids before play starts.
func checkCatalog(cat *scenario.Catalog) error {
	if errs := cat.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}

// openStorage picks Redis when REDIS_URL is set and the save directory
// otherwise.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.RedisURL == "" {
		fs, err := storage.NewFileStorage(cfg.SaveDir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open save directory: %w", err)
		}
		return fs, nil
	}

	rs, err := storage.NewRedisStorage(cfg.RedisURL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis storage: %w", err)
	}
	if err := rs.WaitForConnection(ctx, 5, 2*time.Second); err != nil {
		_ = rs.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rs, nil
}
