package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/service"
)

type merchantService interface {
	InitPayment(ctx context.Context, req service.InitPaymentRequest) (string, error)
	RegisterCardToken(ctx context.Context, req service.RegisterCardTokenRequest) (string, error)
}

// MerchantHandler serves the terminal API. Its bodies are bare JSON objects
// rather than the APIResponse envelope so existing merchant clients decode
// them directly; on failure the body is {}.
type MerchantHandler struct {
	merchant merchantService
}

func NewMerchantHandler(merchant merchantService) *MerchantHandler {
	return &MerchantHandler{merchant: merchant}
}

type initPaymentRequest struct {
	NotificationURL string `json:"notification_url"`
	SuccessURL      string `json:"success_url"`
	FailURL         string `json:"fail_url"`
	Amount          int64  `json:"amount"`
	Token           string `json:"token"`
}

func (r initPaymentRequest) Validate() []FieldError {
	errs := validateMerchantURLs(r.NotificationURL, r.SuccessURL, r.FailURL, r.Token)
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type initPaymentResponse struct {
	PaymentURL string `json:"payment_url,omitempty"`
}

type registerCardTokenRequest struct {
	NotificationURL string `json:"notification_url"`
	SuccessURL      string `json:"success_url"`
	FailURL         string `json:"fail_url"`
	Token           string `json:"token"`
}

func (r registerCardTokenRequest) Validate() []FieldError {
	return validateMerchantURLs(r.NotificationURL, r.SuccessURL, r.FailURL, r.Token)
}

type registerCardTokenResponse struct {
	RegisterCardTokenURL string `json:"register_card_token_url,omitempty"`
}

func validateMerchantURLs(notificationURL, successURL, failURL, token string) []FieldError {
	var errs []FieldError
	if notificationURL == "" {
		errs = append(errs, FieldError{Field: "notification_url", Message: "required"})
	}
	if successURL == "" {
		errs = append(errs, FieldError{Field: "success_url", Message: "required"})
	}
	if failURL == "" {
		errs = append(errs, FieldError{Field: "fail_url", Message: "required"})
	}
	if token == "" {
		errs = append(errs, FieldError{Field: "token", Message: "required"})
	}
	return errs
}

func (h *MerchantHandler) InitPayment(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req initPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("init payment rejected", "error", err)
		RespondJSON(w, http.StatusBadRequest, initPaymentResponse{})
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		log.Warn("init payment rejected", "fields", fields)
		RespondJSON(w, http.StatusBadRequest, initPaymentResponse{})
		return
	}

	paymentURL, err := h.merchant.InitPayment(r.Context(), service.InitPaymentRequest{
		NotificationURL: req.NotificationURL,
		SuccessURL:      req.SuccessURL,
		FailURL:         req.FailURL,
		Amount:          req.Amount,
		Token:           req.Token,
	})
	if err != nil {
		log.Warn("init payment failed", "error", err)
		RespondJSON(w, merchantStatus(err), initPaymentResponse{})
		return
	}

	RespondJSON(w, http.StatusOK, initPaymentResponse{PaymentURL: paymentURL})
}

func (h *MerchantHandler) RegisterCardToken(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req registerCardTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("register card token rejected", "error", err)
		RespondJSON(w, http.StatusBadRequest, registerCardTokenResponse{})
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		log.Warn("register card token rejected", "fields", fields)
		RespondJSON(w, http.StatusBadRequest, registerCardTokenResponse{})
		return
	}

	pageURL, err := h.merchant.RegisterCardToken(r.Context(), service.RegisterCardTokenRequest{
		NotificationURL: req.NotificationURL,
		SuccessURL:      req.SuccessURL,
		FailURL:         req.FailURL,
		Token:           req.Token,
	})
	if err != nil {
		log.Warn("register card token failed", "error", err)
		RespondJSON(w, merchantStatus(err), registerCardTokenResponse{})
		return
	}

	RespondJSON(w, http.StatusOK, registerCardTokenResponse{RegisterCardTokenURL: pageURL})
}

func merchantStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrTokenMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLockUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
