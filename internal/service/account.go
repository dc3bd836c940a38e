package service

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

type accountLedger interface {
	AddAccount(ctx context.Context, password secret.Secret) (domain.CardNumber, error)
	DeleteAccount(ctx context.Context, card domain.CardNumber) error
	Summary(ctx context.Context, card domain.CardNumber) (domain.AccountSummary, error)
	ListAccounts(ctx context.Context) ([]domain.AccountSummary, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	StoreAccount(ctx context.Context) (domain.Account, error)
	Credit(ctx context.Context, card domain.CardNumber, amount int64) error
}

// AccountService is the operator's view of the ledger.
type AccountService struct {
	ledger accountLedger
}

func NewAccountService(ledger accountLedger) *AccountService {
	return &AccountService{ledger: ledger}
}

func (s *AccountService) CreateAccount(ctx context.Context, password secret.Secret) (domain.CardNumber, error) {
	if password.IsEmpty() {
		return domain.CardNumber{}, fmt.Errorf("CreateAccount: empty password: %w", domain.ErrInvalidRequest)
	}

	card, err := s.ledger.AddAccount(ctx, password)
	if err != nil {
		return domain.CardNumber{}, fmt.Errorf("CreateAccount: %w", err)
	}

	logging.FromContext(ctx).Info("account created", "card", card.Masked())
	return card, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, card domain.CardNumber) error {
	if err := s.ledger.DeleteAccount(ctx, card); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}

	logging.FromContext(ctx).Info("account deleted", "card", card.Masked())
	return nil
}

// GetAccount returns balance and history of an account, deleted or not.
func (s *AccountService) GetAccount(ctx context.Context, card domain.CardNumber) (domain.AccountSummary, error) {
	sum, err := s.ledger.Summary(ctx, card)
	if err != nil {
		return domain.AccountSummary{}, fmt.Errorf("GetAccount: %w", err)
	}
	return sum, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.AccountSummary, error) {
	list, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return list, nil
}

func (s *AccountService) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	log, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return log, nil
}

func (s *AccountService) StoreCard(ctx context.Context) (domain.CardNumber, error) {
	store, err := s.ledger.StoreAccount(ctx)
	if err != nil {
		return domain.CardNumber{}, fmt.Errorf("StoreCard: %w", err)
	}
	return store.CardNumber, nil
}

// Credit tops up an account from the store account.
func (s *AccountService) Credit(ctx context.Context, card domain.CardNumber, amount int64) error {
	if err := s.ledger.Credit(ctx, card, amount); err != nil {
		return fmt.Errorf("Credit: %w", err)
	}

	logging.FromContext(ctx).Info("account credited", "card", card.Masked(), "amount", amount)
	return nil
}
