// Command mock-merchant is a stand-in merchant backend. It records the
// outcome notifications sent by the acquirer and serves the success and fail
// landing pages customers are redirected to.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/josh-kwaku/acquisim/internal/auth"
	"github.com/josh-kwaku/acquisim/internal/handler"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/middleware"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

type memorySink struct {
	mu   sync.Mutex
	list []handler.ReceivedNotification
}

func (s *memorySink) Record(_ context.Context, n handler.ReceivedNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, n)
	return nil
}

func (s *memorySink) snapshot() []handler.ReceivedNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]handler.ReceivedNotification, len(s.list))
	copy(out, s.list)
	return out
}

func main() {
	logger := logging.Init("mock-merchant", "info", os.Getenv("APP_ENV"))

	addr := os.Getenv("MERCHANT_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	sink := &memorySink{}
	var notifications *handler.NotificationHandler
	if pw := os.Getenv("TERMINAL_PASSWORD"); pw != "" {
		notifications = handler.NewNotificationHandler(sink, auth.NewCardTokenSigner(secret.New(pw), 0))
	} else {
		notifications = handler.NewNotificationHandler(sink, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery, middleware.Tracing, middleware.Logging(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handler.RespondSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/notifications", notifications.Receive)
	r.Get("/notifications", func(w http.ResponseWriter, r *http.Request) {
		handler.RespondSuccess(w, http.StatusOK, sink.snapshot())
	})
	r.Get("/success", landing("Payment accepted"))
	r.Get("/fail", landing("Payment declined"))

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("mock merchant started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func landing(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handler.RespondText(w, http.StatusOK, message)
	}
}
