package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"taskpulse/internal/calendar"
	"taskpulse/internal/config"
	"taskpulse/internal/docstore"
	"taskpulse/internal/repository"
	"taskpulse/internal/service"
)

// Set with -ldflags "-X main.version=...".
var (
	version   = "dev"
	gitCommit = "unknown"
)

func newRootCommand() *cobra.Command {
	var configFile string

	load := func() (config.Config, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		return cfg, nil
	}

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg)
	}

	rootCmd := &cobra.Command{
		Use:           "taskpulse",
		Short:         "Task management API with completion analytics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default: $CONFIG_FILE)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduler and Telegram bot",
		RunE:  serve,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, nil)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := repository.Migrate(db); err != nil {
				return err
			}
			cmd.Println("schema up to date")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sync-mongo",
		Short: "Copy every task into the MongoDB analytics store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runMirrorOnce(cmd.Context(), cfg, func(n int64) {
				cmd.Printf("mirrored %d tasks\n", n)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("taskpulse version %s\n", version)
			cmd.Printf("  Git commit: %s\n", gitCommit)
			cmd.Printf("  Go version: %s\n", runtime.Version())
		},
	})

	return rootCmd
}

func runMirrorOnce(ctx context.Context, cfg config.Config, report func(int64)) error {
	if cfg.Mongo.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, nil)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	client, err := docstore.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("[warn] mongo disconnect: %v", err)
		}
	}()

	store := docstore.Open(client, cfg.Mongo.Database)
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	mirror := service.NewMirrorService(repository.NewTaskRepository(db), store, calendar.SystemClock{Location: cfg.Location})
	n, err := mirror.Sync(ctx)
	if err != nil {
		return err
	}
	report(n)
	return nil
}
