package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/secret"
	"github.com/josh-kwaku/acquisim/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const maxCardBody = 256

type pageService interface {
	PaymentPage(ctx context.Context, id uuid.UUID) (session.Descriptor, error)
	CardTokenPage(ctx context.Context, id uuid.UUID) (session.Descriptor, error)
	SubmitPayment(ctx context.Context, id uuid.UUID, card domain.CardNumber, password secret.Secret) (string, error)
	SubmitCardToken(ctx context.Context, id uuid.UUID, rawCard string) (string, error)
}

// PageHandler serves the customer-facing hosted pages and their submit
// triggers. Triggers answer with the redirect URL as plain text.
type PageHandler struct {
	pages         pageService
	publicBaseURL string
}

func NewPageHandler(pages pageService, publicBaseURL string) *PageHandler {
	return &PageHandler{pages: pages, publicBaseURL: publicBaseURL}
}

type paymentPageData struct {
	Amount    int64
	SubmitURL string
}

type cardTokenPageData struct {
	SubmitURL string
}

type paymentCredentials struct {
	CardNumber domain.CardNumber `json:"card_number"`
	Password   secret.Secret     `json:"password"`
}

func (h *PageHandler) PaymentPage(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id, ok := sessionIDFromPath(r)
	if !ok {
		RespondText(w, http.StatusNotFound, "payment not found")
		return
	}

	d, err := h.pages.PaymentPage(r.Context(), id)
	if err != nil {
		log.Warn("payment page unavailable", "session_id", id, "error", err)
		RespondText(w, http.StatusNotFound, "payment not found")
		return
	}

	h.render(w, r, "payment_page.html", paymentPageData{
		Amount:    d.Amount,
		SubmitURL: fmt.Sprintf("%s/payment/%s", h.publicBaseURL, id),
	})
}

func (h *PageHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id, ok := sessionIDFromPath(r)
	if !ok {
		RespondText(w, http.StatusBadRequest, "payment not found")
		return
	}

	var creds paymentCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.CardNumber.IsZero() {
		log.Warn("payment credentials rejected", "session_id", id, "error", err)
		RespondText(w, http.StatusBadRequest, "invalid credentials body")
		return
	}

	redirect, err := h.pages.SubmitPayment(r.Context(), id, creds.CardNumber, creds.Password)
	if err != nil {
		h.respondTriggerError(w, r, id, err)
		return
	}
	RespondText(w, http.StatusOK, redirect)
}

func (h *PageHandler) CardTokenPage(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id, ok := sessionIDFromPath(r)
	if !ok {
		RespondText(w, http.StatusNotFound, "request not found")
		return
	}

	if _, err := h.pages.CardTokenPage(r.Context(), id); err != nil {
		log.Warn("card token page unavailable", "session_id", id, "error", err)
		RespondText(w, http.StatusNotFound, "request not found")
		return
	}

	h.render(w, r, "card_token_page.html", cardTokenPageData{
		SubmitURL: fmt.Sprintf("%s/card_token/%s", h.publicBaseURL, id),
	})
}

func (h *PageHandler) SubmitCardToken(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromPath(r)
	if !ok {
		RespondText(w, http.StatusBadRequest, "request not found")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCardBody))
	if err != nil {
		RespondText(w, http.StatusBadRequest, "unreadable body")
		return
	}

	redirect, err := h.pages.SubmitCardToken(r.Context(), id, string(body))
	if err != nil {
		h.respondTriggerError(w, r, id, err)
		return
	}
	RespondText(w, http.StatusOK, redirect)
}

func (h *PageHandler) respondTriggerError(w http.ResponseWriter, r *http.Request, id uuid.UUID, err error) {
	log := logging.FromContext(r.Context())

	if errors.Is(err, domain.ErrSessionNotFound) {
		log.Warn("trigger for unknown session", "session_id", id)
		RespondText(w, http.StatusBadRequest, "session not found")
		return
	}
	log.Error("trigger failed", "session_id", id, "error", err)
	RespondText(w, http.StatusInternalServerError, "internal error")
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.FromContext(r.Context()).Error("failed to render page", "template", name, "error", err)
		RespondText(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("failed to write page", "error", err)
	}
}
