// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/movienight/auth"
	"github.com/danielhkuo/movienight/cliparse"
	"github.com/danielhkuo/movienight/db"
	"github.com/danielhkuo/movienight/events"
	"github.com/danielhkuo/movienight/invites"
	"github.com/danielhkuo/movienight/ledger"
	"github.com/danielhkuo/movienight/metrics"
	"github.com/danielhkuo/movienight/router"
	"github.com/danielhkuo/movienight/sessions"
	"github.com/danielhkuo/movienight/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		slog.Error("movienight failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "movienight",
		Short:         "Invite-only movie night voting server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	cliparse.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newCodesCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			conn, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			slog.Info("Database schema ready")
			return nil
		},
	}
}

func newCodesCommand() *cobra.Command {
	var (
		slug    string
		count   int
		label   string
		maxUses int
	)

	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Generate root invite codes for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			conn, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			st := store.New(conn)
			sess, err := st.GetSessionBySlug(ctx, slug)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no session with slug %q", slug)
			}
			if err != nil {
				return err
			}

			var lbl *string
			if label != "" {
				lbl = &label
			}
			svc := invites.NewService(st, auth.NewTokenIssuer(cfg.VoterTokenSecret, cfg.VoterTokenTTL), nil, nil)
			codes, err := svc.GenerateRootCodes(ctx, sess.ID, count, lbl, maxUses)
			if err != nil {
				return err
			}
			for _, c := range codes {
				fmt.Fprintln(cmd.OutOrStdout(), c.Code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "session", "", "Session slug")
	cmd.Flags().IntVar(&count, "count", 1, "Number of codes to generate")
	cmd.Flags().StringVar(&label, "label", "", "Optional label for every code")
	cmd.Flags().IntVar(&maxUses, "max-uses", 1, "Claims allowed per code")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireSecrets(); err != nil {
		return err
	}

	conn, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		bus, err := events.Connect(cfg.NATSURL, nats.MaxReconnects(-1))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer bus.Close()
		pub = bus
		slog.Info("Publishing events", "nats_url", cfg.NATSURL)
	}

	m := metrics.New()
	st := store.New(conn)
	sweeper, err := sessions.NewSweeper(sessions.NewService(st, ledger.New(st, pub, m), pub, m), cfg.SweepSchedule, m)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Handler:           router.NewRouter(conn, cfg, pub, m),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server closed")
	return nil
}

// loadConfig reads flags, .env and the environment, then installs the
// logger the config asks for.
func loadConfig(cmd *cobra.Command) (cliparse.Config, error) {
	cfg, err := cliparse.Load(cmd.Context(), cmd.Flags())
	if err != nil {
		return cfg, err
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}

func openDatabase(ctx context.Context, cfg cliparse.Config) (*sql.DB, error) {
	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, cfg.DatabaseType); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
