package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josh-kwaku/acquisim/internal/handler"
	"github.com/josh-kwaku/acquisim/internal/middleware"
)

type Handlers struct {
	Merchant *handler.MerchantHandler
	Pages    *handler.PageHandler
	System   *handler.SystemHandler
	Health   *handler.HealthHandler
}

type Options struct {
	Logger      *slog.Logger
	SystemAuth  func(http.Handler) http.Handler
	Idempotency *middleware.IdempotencyStore
}

// NewRouter mounts the merchant API, hosted pages, operator API and the
// probe endpoints.
func NewRouter(h Handlers, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery, middleware.Tracing, middleware.Logging(opts.Logger), middleware.Metrics)

	r.Get("/health", h.Health.Liveness)
	r.Get("/health/ready", h.Health.Readiness)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs", handler.ServeDocs())
	r.Get("/docs/openapi.yaml", handler.ServeSpec())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(opts.Idempotency))
		r.Post("/InitPayment", h.Merchant.InitPayment)
		r.Post("/RegisterCardToken", h.Merchant.RegisterCardToken)
	})

	r.Get("/payment_page/{id}", h.Pages.PaymentPage)
	r.Post("/payment/{id}", h.Pages.SubmitPayment)
	r.Get("/register_card_token_page/{id}", h.Pages.CardTokenPage)
	r.Post("/card_token/{id}", h.Pages.SubmitCardToken)

	r.Route("/system", func(r chi.Router) {
		r.Use(opts.SystemAuth)
		r.Get("/accounts", h.System.ListAccounts)
		r.Post("/accounts", h.System.CreateAccount)
		r.Get("/accounts/{card}", h.System.GetAccount)
		r.Delete("/accounts/{card}", h.System.DeleteAccount)
		r.Post("/accounts/{card}/credit", h.System.Credit)
		r.Get("/transactions", h.System.ListTransactions)
		r.Get("/store", h.System.StoreAccount)
	})

	return r
}
