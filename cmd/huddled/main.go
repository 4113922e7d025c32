package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"huddled/internal/config"
	internaldb "huddled/internal/db"
	"huddled/internal/handlers"
	"huddled/internal/store"
	"huddled/pkg/bus"
	"huddled/pkg/db"
	"huddled/pkg/render"
	"huddled/pkg/telemetry"
)

const serviceName = "huddled"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "huddled",
		Short:         "Group invitation and membership service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newEventsCommand())
	return cmd
}

func newLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_ = godotenv.Load()
			logger := newLogger()

			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			shutdownTelemetry, requestMiddleware, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint, logger)
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTelemetry(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("shutdown telemetry")
				}
			}()

			database, err := internaldb.Connect(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer func() {
				if err := internaldb.Close(database); err != nil {
					logger.Error().Err(err).Msg("close database")
				}
			}()

			if err := internaldb.Migrate(ctx, database); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			pool, err := db.Open(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("open database pool: %w", err)
			}
			defer pool.Close()

			var eventBus *bus.Bus
			if cfg.NATSURL != "" {
				eventBus, err = bus.New(cfg.NATSURL)
				if err != nil {
					return fmt.Errorf("connect nats: %w", err)
				}
				defer eventBus.Close()
			}

			renderer, err := render.New()
			if err != nil {
				return fmt.Errorf("init renderer: %w", err)
			}

			api, err := handlers.New(store.New(database, pool), renderer, eventBus, handlers.Config{
				BaseURL:        cfg.BaseURL,
				AllowedOrigins: cfg.AllowedOrigins,
			}, logger)
			if err != nil {
				return fmt.Errorf("init api: %w", err)
			}

			routes, err := api.Routes()
			if err != nil {
				return fmt.Errorf("build routes: %w", err)
			}

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           requestMiddleware(routes),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.Addr).Msg("starting huddled")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply versioned schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_ = godotenv.Load()
			logger := newLogger()

			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			pool, err := db.Open(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("open database pool: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			logger.Info().Msg("migrations applied")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and groups from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_ = godotenv.Load()
			logger := newLogger()

			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			file, err := internaldb.LoadSeedFile(seedFile)
			if err != nil {
				return fmt.Errorf("load seed file: %w", err)
			}

			database, err := internaldb.Connect(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer func() {
				_ = internaldb.Close(database)
			}()

			if err := internaldb.Migrate(ctx, database); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			if err := internaldb.Seed(ctx, database, file); err != nil {
				return fmt.Errorf("seed database: %w", err)
			}

			logger.Info().Int("users", len(file.Users)).Int("groups", len(file.Groups)).Msg("seed applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&seedFile, "file", "", "YAML file with seed users and groups")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Tail domain events from NATS to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_ = godotenv.Load()
			logger := newLogger()

			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.NATSURL == "" {
				return fmt.Errorf("NATS_URL is required for the events command")
			}

			eventBus, err := bus.New(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connect nats: %w", err)
			}
			defer eventBus.Close()

			print := func(_ context.Context, data []byte) error {
				_, err := fmt.Fprintln(os.Stdout, string(data))
				return err
			}

			for _, subject := range []string{bus.SubjectGroupCreated, bus.SubjectMemberJoined} {
				durable := "huddled-events-" + strings.ReplaceAll(subject, ".", "-")
				sub, err := eventBus.Subscribe(ctx, subject, durable, print)
				if err != nil {
					return fmt.Errorf("subscribe %s: %w", subject, err)
				}
				defer sub.Close()
			}

			logger.Info().Msg("tailing events, ctrl-c to stop")
			<-ctx.Done()
			return nil
		},
	}
}
