package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/acquisim/internal/auth"
	"github.com/josh-kwaku/acquisim/internal/bank"
	"github.com/josh-kwaku/acquisim/internal/config"
	"github.com/josh-kwaku/acquisim/internal/handler"
	"github.com/josh-kwaku/acquisim/internal/middleware"
	"github.com/josh-kwaku/acquisim/internal/service"
	"github.com/josh-kwaku/acquisim/internal/session"
)

const shutdownTimeout = 30 * time.Second

// App is the assembled acquirer: ledger, session registry, services and the
// HTTP server in front of them.
type App struct {
	Bank      *bank.Bank
	Sessions  *session.Registry
	Acquiring *service.AcquiringService
	Handler   http.Handler

	cfg    *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	b := bank.New(cfg.TerminalPassword, cfg.BankUsername, bank.Config{
		LockTimeout:  cfg.LedgerLockTimeout,
		LockAttempts: cfg.LedgerLockAttempts,
		HashCost:     cfg.BcryptCost,
	})
	sessions := session.NewRegistry(session.Config{
		TTL:           cfg.SessionTTL,
		SweepInterval: cfg.SessionSweepInterval,
	}, logger)
	notifier := service.NewNotifier(service.NotifierConfig{
		Timeout:  cfg.NotifyTimeout,
		Attempts: cfg.NotifyAttempts,
	})
	signer := auth.NewCardTokenSigner(cfg.TerminalPassword, cfg.CardTokenTTL)

	acquiring := service.NewAcquiringService(b, sessions, signer, notifier, cfg.TerminalPassword, cfg.PublicBaseURL)
	accounts := service.NewAccountService(b)

	router := NewRouter(Handlers{
		Merchant: handler.NewMerchantHandler(acquiring),
		Pages:    handler.NewPageHandler(acquiring, cfg.PublicBaseURL),
		System:   handler.NewSystemHandler(accounts),
		Health:   handler.NewHealthHandler(sessions, b),
	}, Options{
		Logger:      logger,
		SystemAuth:  middleware.SystemAuth(b),
		Idempotency: middleware.NewIdempotencyStore(0),
	})

	return &App{
		Bank:      b,
		Sessions:  sessions,
		Acquiring: acquiring,
		Handler:   router,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run serves HTTP and sweeps expired sessions until ctx is cancelled, then
// shuts both down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr(),
		Handler:           a.Handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server started", "addr", srv.Addr, "public_base_url", a.cfg.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("Run: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.Sessions.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("Run: shutdown server: %w", err))
		}
		if err := a.Acquiring.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("Run: drain notifications: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
