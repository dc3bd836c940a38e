package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/acquisim/internal/domain"
)

type stubSessions int

func (s stubSessions) Len() int { return int(s) }

type stubLedgerProbe struct{ err error }

func (s stubLedgerProbe) StoreAccount(context.Context) (domain.Account, error) {
	return domain.Account{}, s.err
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		ledgerErr  error
		wantStatus int
		wantLedger string
	}{
		{name: "ready", wantStatus: http.StatusOK, wantLedger: "ok"},
		{name: "ledger busy", ledgerErr: domain.ErrLockUnavailable, wantStatus: http.StatusServiceUnavailable, wantLedger: "down"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(stubSessions(3), stubLedgerProbe{err: tc.ledgerErr})

			rr := httptest.NewRecorder()
			h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tc.wantStatus, rr.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, float64(3), body["live_sessions"])
			assert.Equal(t, tc.wantLedger, body["checks"].(map[string]any)["ledger"])
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(stubSessions(0), stubLedgerProbe{}).Liveness(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
