package testutil

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/acquisim/internal/bank"
	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/secret"
	"github.com/josh-kwaku/acquisim/internal/session"
	"github.com/josh-kwaku/acquisim/internal/token"
)

const (
	BankUsername     = "bank"
	TerminalPassword = "terminal-pass"
	CustomerPassword = "customer-pass"

	NotificationURL = "http://shop.test/notify"
	SuccessURL      = "http://shop.test/success"
	FailURL         = "http://shop.test/fail"
)

func TerminalSecret() secret.Secret { return secret.New(TerminalPassword) }

// NewBank returns a ledger with fast hashing and a short lock budget.
func NewBank(t *testing.T) *bank.Bank {
	t.Helper()
	return bank.New(TerminalSecret(), BankUsername, bank.Config{
		LockTimeout:  50 * time.Millisecond,
		LockAttempts: 2,
		HashCost:     bcrypt.MinCost,
	})
}

// SeedAccount opens an account with CustomerPassword and credits it.
func SeedAccount(t *testing.T, b *bank.Bank, balance int64) domain.CardNumber {
	t.Helper()

	card, err := b.AddAccount(t.Context(), secret.New(CustomerPassword))
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if balance > 0 {
		if err := b.Credit(t.Context(), card, balance); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	return card
}

func NewRegistry(t *testing.T) *session.Registry {
	t.Helper()
	return session.NewRegistry(session.Config{TTL: time.Minute, SweepInterval: time.Minute}, logging.Discard())
}

// InitPaymentToken signs the fixture URLs and amount the way a merchant does.
func InitPaymentToken(amount int64) string {
	return token.Generate(token.InitPaymentFields(NotificationURL, SuccessURL, FailURL, amount), TerminalSecret())
}

func RegisterCardTokenToken() string {
	return token.Generate(token.RegisterCardTokenFields(NotificationURL, SuccessURL, FailURL), TerminalSecret())
}
