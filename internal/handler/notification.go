package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/acquisim/internal/auth"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/session"
)

// ReceivedNotification is what a merchant endpoint records for each outcome
// delivered by the acquirer.
type ReceivedNotification struct {
	ID              uuid.UUID               `json:"id"`
	OperationStatus session.OperationStatus `json:"operation_status"`
	CardToken       string                  `json:"card_token,omitempty"`
	MaskedCard      string                  `json:"masked_card,omitempty"`
	ReceivedAt      time.Time               `json:"received_at"`
}

type notificationSink interface {
	Record(ctx context.Context, n ReceivedNotification) error
}

type cardTokenVerifier interface {
	Validate(token string) (*auth.CardTokenClaims, error)
}

// NotificationHandler is the merchant side of the notification protocol,
// used by the mock merchant. Card tokens are verified when a verifier is set.
type NotificationHandler struct {
	sink       notificationSink
	cardTokens cardTokenVerifier
}

func NewNotificationHandler(sink notificationSink, cardTokens cardTokenVerifier) *NotificationHandler {
	return &NotificationHandler{sink: sink, cardTokens: cardTokens}
}

type notificationPayload struct {
	OperationStatus session.OperationStatus `json:"operation_status"`
	CardToken       string                  `json:"card_token,omitempty"`
}

func (p notificationPayload) validate() []FieldError {
	var errs []FieldError

	switch p.OperationStatus {
	case session.StatusSuccess, session.StatusFail:
	case "":
		errs = append(errs, FieldError{Field: "operation_status", Message: "required"})
	default:
		errs = append(errs, FieldError{Field: "operation_status", Message: "must be Success or Fail"})
	}

	if p.OperationStatus == session.StatusFail && p.CardToken != "" {
		errs = append(errs, FieldError{Field: "card_token", Message: "must be empty for a failed operation"})
	}

	return errs
}

var ErrInvalidCardToken = &AppError{http.StatusUnprocessableEntity, "INVALID_CARD_TOKEN", "Card token is invalid or expired"}

func (h *NotificationHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read notification body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var payload notificationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse notification", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := payload.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	received := ReceivedNotification{
		ID:              uuid.New(),
		OperationStatus: payload.OperationStatus,
		CardToken:       payload.CardToken,
		ReceivedAt:      time.Now().UTC(),
	}

	if payload.CardToken != "" && h.cardTokens != nil {
		claims, err := h.cardTokens.Validate(payload.CardToken)
		if err != nil {
			log.Warn("card token verification failed", "error", err)
			RespondAppError(w, ErrInvalidCardToken, nil)
			return
		}
		received.MaskedCard = claims.CardNumber.Masked()
	}

	if err := h.sink.Record(r.Context(), received); err != nil {
		log.Error("failed to record notification", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("notification received",
		"notification_id", received.ID,
		"operation_status", received.OperationStatus,
		"card", received.MaskedCard,
	)

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "received"})
}
