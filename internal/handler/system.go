package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

type systemService interface {
	CreateAccount(ctx context.Context, password secret.Secret) (domain.CardNumber, error)
	DeleteAccount(ctx context.Context, card domain.CardNumber) error
	GetAccount(ctx context.Context, card domain.CardNumber) (domain.AccountSummary, error)
	ListAccounts(ctx context.Context) ([]domain.AccountSummary, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	StoreCard(ctx context.Context) (domain.CardNumber, error)
	Credit(ctx context.Context, card domain.CardNumber, amount int64) error
}

// SystemHandler is the operator API over the ledger. Routes sit behind
// middleware.SystemAuth.
type SystemHandler struct {
	system systemService
}

func NewSystemHandler(system systemService) *SystemHandler {
	return &SystemHandler{system: system}
}

type createAccountRequest struct {
	Password secret.Secret `json:"password"`
}

func (r createAccountRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Password.IsEmpty() {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type creditRequest struct {
	Amount int64 `json:"amount"`
}

func (r creditRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type cardDTO struct {
	CardNumber domain.CardNumber `json:"card_number"`
}

func (h *SystemHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	card, err := h.system.CreateAccount(r.Context(), req.Password)
	if err != nil {
		log.Error("account creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/system/accounts/"+card.String())
	RespondSuccess(w, http.StatusCreated, cardDTO{CardNumber: card})
}

func (h *SystemHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.system.ListAccounts(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, list)
}

func (h *SystemHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	card, appErr := cardFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	sum, err := h.system.GetAccount(r.Context(), card)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, sum)
}

func (h *SystemHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	card, appErr := cardFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.system.DeleteAccount(r.Context(), card); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, cardDTO{CardNumber: card})
}

func (h *SystemHandler) Credit(w http.ResponseWriter, r *http.Request) {
	card, appErr := cardFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := h.system.Credit(r.Context(), card, req.Amount); err != nil {
		RespondDomainError(w, err)
		return
	}

	sum, err := h.system.GetAccount(r.Context(), card)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, sum)
}

func (h *SystemHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	log, err := h.system.ListTransactions(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, log)
}

func (h *SystemHandler) StoreAccount(w http.ResponseWriter, r *http.Request) {
	card, err := h.system.StoreCard(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, cardDTO{CardNumber: card})
}
