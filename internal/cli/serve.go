package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/karibu-campus/karibu/internal/checkout"
	"github.com/karibu-campus/karibu/internal/config"
	"github.com/karibu-campus/karibu/internal/escalation"
	"github.com/karibu-campus/karibu/internal/event"
	"github.com/karibu-campus/karibu/internal/invite"
	"github.com/karibu-campus/karibu/internal/logging"
	"github.com/karibu-campus/karibu/internal/notification"
	"github.com/karibu-campus/karibu/internal/visit"
	"github.com/karibu-campus/karibu/internal/web"
)

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the karibu API server",
		Long:  "Start the HTTP API server and, unless SWEEP_INTERVAL is 0, the scheduled escalation sweep.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(listenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides LISTEN_ADDR)")

	return cmd
}

func runServe(listenAddr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.DevMode)
	if listenAddr == "" {
		listenAddr = cfg.ListenAddr
	}

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	app := buildApp(database, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SweepInterval > 0 {
		go app.sweeper.RunEvery(ctx, cfg.SweepInterval)
		slog.Info("scheduled sweep started", "interval", cfg.SweepInterval.String())
	}

	srv := &http.Server{Addr: listenAddr, Handler: app.server}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("listening", "addr", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// app bundles the wired services so serve, sweep, and seed share one
// construction path.
type app struct {
	invites   *invite.Service
	visits    *visit.Service
	checkouts *checkout.Service
	sweeper   *escalation.Sweeper
	server    *web.Server
}

// buildApp wires repositories and services on top of the open database.
// now may be nil, defaulting to time.Now.
func buildApp(database *sql.DB, cfg config.Config, now func() time.Time) *app {
	inviteRepo := invite.NewRepository(database)
	visitRepo := visit.NewRepository(database)
	checkoutRepo := checkout.NewRepository(database)
	eventRepo := event.NewRepository(database)
	notificationRepo := notification.NewRepository(database)

	var relay escalation.Deliverer
	smtp := notification.SMTPConfig{
		Host: cfg.SMTPHost, Port: cfg.SMTPPort, User: cfg.SMTPUser,
		Pass: cfg.SMTPPass, From: cfg.SMTPFrom,
	}
	if smtp.IsConfigured() {
		relay = notification.NewRelay(smtp, cfg.SecurityEmail, cfg.AdminEmail)
	}

	invites := invite.NewService(inviteRepo, visitRepo, now)
	visits := visit.NewService(visitRepo, inviteRepo, now)
	checkouts := checkout.NewService(checkoutRepo, visitRepo, now)
	sweeper := escalation.NewSweeper(escalation.NewRepository(database), relay)

	server := web.NewServer(invites, visits, visitRepo, checkouts, eventRepo, notificationRepo, sweeper, now)

	return &app{
		invites:   invites,
		visits:    visits,
		checkouts: checkouts,
		sweeper:   sweeper,
		server:    server,
	}
}
