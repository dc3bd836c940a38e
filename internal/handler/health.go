package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/logging"
)

type sessionCounter interface {
	Len() int
}

type ledgerProbe interface {
	StoreAccount(ctx context.Context) (domain.Account, error)
}

type HealthHandler struct {
	sessions sessionCounter
	ledger   ledgerProbe
}

func NewHealthHandler(sessions sessionCounter, ledger ledgerProbe) *HealthHandler {
	return &HealthHandler{sessions: sessions, ledger: ledger}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness reports ready while the ledger lock can be taken.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ledgerStatus := "ok"
	httpStatus := http.StatusOK

	if _, err := h.ledger.StoreAccount(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("readiness check failed: ledger unavailable", "error", err)
		ledgerStatus = "down"
		httpStatus = http.StatusServiceUnavailable
	}

	overallStatus := "ok"
	if httpStatus != http.StatusOK {
		overallStatus = "down"
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":        overallStatus,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"live_sessions": h.sessions.Len(),
		"checks": map[string]string{
			"ledger": ledgerStatus,
		},
	})
}
