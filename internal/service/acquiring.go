package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/secret"
	"github.com/josh-kwaku/acquisim/internal/session"
	"github.com/josh-kwaku/acquisim/internal/token"
)

type acquiringLedger interface {
	AuthorizeAccount(ctx context.Context, card domain.CardNumber, password secret.Secret) (domain.Account, error)
	FindAccount(ctx context.Context, card domain.CardNumber) (domain.Account, error)
	StoreAccount(ctx context.Context) (domain.Account, error)
	Transfer(ctx context.Context, sender, recipient domain.CardNumber, amount int64) error
}

type sessionRegistry interface {
	Create(d session.Descriptor) (uuid.UUID, <-chan session.Outcome)
	Lookup(id uuid.UUID) (session.Descriptor, error)
	Claim(id uuid.UUID) (session.Descriptor, error)
	Resolve(id uuid.UUID, out session.Outcome) bool
}

type cardTokenIssuer interface {
	Generate(card domain.CardNumber) (string, error)
}

type merchantNotifier interface {
	Notify(ctx context.Context, url string, n Notification) error
}

type InitPaymentRequest struct {
	NotificationURL string
	SuccessURL      string
	FailURL         string
	Amount          int64
	Token           string
}

type RegisterCardTokenRequest struct {
	NotificationURL string
	SuccessURL      string
	FailURL         string
	Token           string
}

// AcquiringService runs the merchant-facing flows: it accepts merchant
// requests, serves hosted-page sessions, settles them against the ledger and
// relays each outcome to the merchant.
type AcquiringService struct {
	ledger        acquiringLedger
	sessions      sessionRegistry
	cardTokens    cardTokenIssuer
	notifier      merchantNotifier
	terminal      secret.Secret
	publicBaseURL string

	relays sync.WaitGroup
	quit   chan struct{}
	once   sync.Once
}

func NewAcquiringService(
	ledger acquiringLedger,
	sessions sessionRegistry,
	cardTokens cardTokenIssuer,
	notifier merchantNotifier,
	terminal secret.Secret,
	publicBaseURL string,
) *AcquiringService {
	return &AcquiringService{
		ledger:        ledger,
		sessions:      sessions,
		cardTokens:    cardTokens,
		notifier:      notifier,
		terminal:      terminal,
		publicBaseURL: publicBaseURL,
		quit:          make(chan struct{}),
	}
}

func (s *AcquiringService) InitPayment(ctx context.Context, req InitPaymentRequest) (string, error) {
	log := logging.FromContext(ctx)

	urls, err := canonicalURLs(req.NotificationURL, req.SuccessURL, req.FailURL)
	if err != nil {
		return "", fmt.Errorf("InitPayment: %w", err)
	}

	fields := token.InitPaymentFields(urls[0], urls[1], urls[2], req.Amount)
	if err := token.Validate(fields, req.Token, s.terminal); err != nil {
		return "", fmt.Errorf("InitPayment: %w", err)
	}

	if req.Amount <= 0 {
		return "", fmt.Errorf("InitPayment: amount must be positive: %w", domain.ErrInvalidRequest)
	}

	store, err := s.ledger.StoreAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("InitPayment: %w", err)
	}

	id, done := s.sessions.Create(session.Descriptor{
		Kind:            session.KindPayment,
		Amount:          req.Amount,
		NotificationURL: urls[0],
		SuccessURL:      urls[1],
		FailURL:         urls[2],
		StoreCard:       store.CardNumber,
	})
	s.relay(ctx, id, urls[0], done)

	log.Info("payment session created", "session_id", id, "amount", req.Amount)
	return fmt.Sprintf("%s/payment_page/%s", s.publicBaseURL, id), nil
}

func (s *AcquiringService) RegisterCardToken(ctx context.Context, req RegisterCardTokenRequest) (string, error) {
	log := logging.FromContext(ctx)

	urls, err := canonicalURLs(req.NotificationURL, req.SuccessURL, req.FailURL)
	if err != nil {
		return "", fmt.Errorf("RegisterCardToken: %w", err)
	}

	fields := token.RegisterCardTokenFields(urls[0], urls[1], urls[2])
	if err := token.Validate(fields, req.Token, s.terminal); err != nil {
		return "", fmt.Errorf("RegisterCardToken: %w", err)
	}

	store, err := s.ledger.StoreAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("RegisterCardToken: %w", err)
	}

	id, done := s.sessions.Create(session.Descriptor{
		Kind:            session.KindRegisterCardToken,
		NotificationURL: urls[0],
		SuccessURL:      urls[1],
		FailURL:         urls[2],
		StoreCard:       store.CardNumber,
	})
	s.relay(ctx, id, urls[0], done)

	log.Info("card token session created", "session_id", id)
	return fmt.Sprintf("%s/register_card_token_page/%s", s.publicBaseURL, id), nil
}

func (s *AcquiringService) PaymentPage(ctx context.Context, id uuid.UUID) (session.Descriptor, error) {
	d, err := s.lookup(id, session.KindPayment)
	if err != nil {
		return session.Descriptor{}, fmt.Errorf("PaymentPage: %w", err)
	}
	return d, nil
}

func (s *AcquiringService) CardTokenPage(ctx context.Context, id uuid.UUID) (session.Descriptor, error) {
	d, err := s.lookup(id, session.KindRegisterCardToken)
	if err != nil {
		return session.Descriptor{}, fmt.Errorf("CardTokenPage: %w", err)
	}
	return d, nil
}

// SubmitPayment settles a payment session and returns the URL the customer is
// redirected to. Business failures resolve the session as failed and return
// the fail URL with a nil error; only a missing session or an infrastructure
// fault is returned as an error.
func (s *AcquiringService) SubmitPayment(ctx context.Context, id uuid.UUID, card domain.CardNumber, password secret.Secret) (string, error) {
	log := logging.FromContext(ctx).With("session_id", id, "card", card.Masked())

	d, err := s.claim(id, session.KindPayment)
	if err != nil {
		return "", fmt.Errorf("SubmitPayment: %w", err)
	}

	if err := s.settlePayment(ctx, d, card, password); err != nil {
		s.sessions.Resolve(id, session.Fail(err.Error()))
		if errors.Is(err, domain.ErrLockUnavailable) || ctx.Err() != nil {
			log.Error("payment aborted", "error", err)
			return "", fmt.Errorf("SubmitPayment: %w", err)
		}
		log.Warn("payment declined", "error", err)
		return d.FailURL, nil
	}

	s.sessions.Resolve(id, session.Success())
	log.Info("payment completed", "amount", d.Amount)
	return d.SuccessURL, nil
}

func (s *AcquiringService) settlePayment(ctx context.Context, d session.Descriptor, card domain.CardNumber, password secret.Secret) error {
	account, err := s.ledger.AuthorizeAccount(ctx, card, password)
	if err != nil {
		return err
	}
	if err := s.checkStore(ctx, d); err != nil {
		return err
	}
	return s.ledger.Transfer(ctx, account.CardNumber, d.StoreCard, d.Amount)
}

// SubmitCardToken binds a card to the merchant by issuing a card token. The
// raw card number arrives as typed on the hosted page.
func (s *AcquiringService) SubmitCardToken(ctx context.Context, id uuid.UUID, rawCard string) (string, error) {
	log := logging.FromContext(ctx).With("session_id", id)

	d, err := s.claim(id, session.KindRegisterCardToken)
	if err != nil {
		return "", fmt.Errorf("SubmitCardToken: %w", err)
	}

	cardToken, err := s.issueCardToken(ctx, d, rawCard)
	if err != nil {
		s.sessions.Resolve(id, session.Fail(err.Error()))
		if errors.Is(err, domain.ErrLockUnavailable) || ctx.Err() != nil {
			log.Error("card token registration aborted", "error", err)
			return "", fmt.Errorf("SubmitCardToken: %w", err)
		}
		log.Warn("card token registration declined", "error", err)
		return d.FailURL, nil
	}

	s.sessions.Resolve(id, session.Outcome{Status: session.StatusSuccess, CardToken: cardToken})
	log.Info("card token registered")
	return d.SuccessURL, nil
}

func (s *AcquiringService) issueCardToken(ctx context.Context, d session.Descriptor, rawCard string) (string, error) {
	card, err := domain.ParseCardNumber(rawCard)
	if err != nil {
		return "", err
	}
	if card == d.StoreCard {
		return "", fmt.Errorf("store account cannot hold a card token: %w", domain.ErrNotAuthorized)
	}
	if _, err := s.ledger.FindAccount(ctx, card); err != nil {
		return "", err
	}
	if err := s.checkStore(ctx, d); err != nil {
		return "", err
	}
	return s.cardTokens.Generate(card)
}

func (s *AcquiringService) checkStore(ctx context.Context, d session.Descriptor) error {
	store, err := s.ledger.StoreAccount(ctx)
	if err != nil {
		return err
	}
	if store.CardNumber != d.StoreCard {
		return domain.ErrWrongStoreAccount
	}
	return nil
}

// lookup and claim treat a session of the wrong kind as missing.
func (s *AcquiringService) lookup(id uuid.UUID, kind session.Kind) (session.Descriptor, error) {
	d, err := s.sessions.Lookup(id)
	if err != nil {
		return session.Descriptor{}, err
	}
	if d.Kind != kind {
		return session.Descriptor{}, domain.ErrSessionNotFound
	}
	return d, nil
}

func (s *AcquiringService) claim(id uuid.UUID, kind session.Kind) (session.Descriptor, error) {
	if _, err := s.lookup(id, kind); err != nil {
		return session.Descriptor{}, err
	}
	return s.sessions.Claim(id)
}

// relay waits for the session outcome in the background and forwards it to
// the merchant. It outlives the request that created the session.
func (s *AcquiringService) relay(ctx context.Context, id uuid.UUID, notificationURL string, done <-chan session.Outcome) {
	ctx = logging.With(context.WithoutCancel(ctx), "session_id", id)

	s.relays.Add(1)
	go func() {
		defer s.relays.Done()
		log := logging.FromContext(ctx)

		var out session.Outcome
		select {
		case o, ok := <-done:
			if !ok {
				return
			}
			out = o
		case <-s.quit:
			log.Info("notification relay stopped before outcome")
			return
		}

		n := Notification{OperationStatus: out.Status, CardToken: out.CardToken}
		if err := s.notifier.Notify(ctx, notificationURL, n); err != nil {
			log.Error("merchant notification failed", "status", out.Status, "error", err)
			return
		}
		log.Info("merchant notified", "status", out.Status, "reason", out.Reason)
	}()
}

// Shutdown stops relays still waiting for an outcome and waits for in-flight
// notifications until ctx expires.
func (s *AcquiringService) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.quit) })

	waited := make(chan struct{})
	go func() {
		s.relays.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Shutdown: %w", ctx.Err())
	}
}

func canonicalURLs(raw ...string) ([]string, error) {
	out := make([]string, len(raw))
	for i, r := range raw {
		u, err := token.CanonicalURL(r)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}
