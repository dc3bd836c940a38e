// Package bank is the in-memory ledger: accounts, the append-only transaction
// log and the privileged store account. All state sits behind one lock; balances
// are folded from the log on every read.
package bank

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/metrics"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

type Config struct {
	// LockTimeout bounds a single attempt to take the ledger lock.
	LockTimeout time.Duration
	// LockAttempts is the number of lock attempts before ErrLockUnavailable.
	LockAttempts int
	HashCost     int
	Now          func() time.Time
}

func (c Config) withDefaults() Config {
	if c.LockTimeout <= 0 {
		c.LockTimeout = 2 * time.Second
	}
	if c.LockAttempts <= 0 {
		c.LockAttempts = 3
	}
	if c.HashCost == 0 {
		c.HashCost = bcrypt.DefaultCost
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type Bank struct {
	sem *semaphore.Weighted
	cfg Config

	// guarded by sem
	accounts     []domain.Account
	index        map[domain.CardNumber]int
	transactions []domain.Transaction
	system       domain.Account
	systemSecret secret.Secret
	username     string
}

func New(systemSecret secret.Secret, username string, cfg Config) *Bank {
	return &Bank{
		sem:   semaphore.NewWeighted(1),
		cfg:   cfg.withDefaults(),
		index: make(map[domain.CardNumber]int),
		system: domain.Account{
			CardNumber: domain.GenerateCardNumber(),
			Exists:     true,
		},
		systemSecret: systemSecret,
		username:     username,
	}
}

func (b *Bank) lock(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 0

	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, b.cfg.LockTimeout)
		defer cancel()
		if err := b.sem.Acquire(attemptCtx, 1); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(b.cfg.LockAttempts-1)), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("lock: %w", ctx.Err())
		}
		return fmt.Errorf("lock: %w: %w", domain.ErrLockUnavailable, err)
	}
	return nil
}

func (b *Bank) unlock() {
	b.sem.Release(1)
}

// AuthorizeSystem checks privileged credentials. Username and password are both
// compared so a mismatch in either looks the same to the caller.
func (b *Bank) AuthorizeSystem(ctx context.Context, creds domain.Credentials) (err error) {
	defer func() { observe("authorize_system", err) }()

	if err := b.lock(ctx); err != nil {
		return fmt.Errorf("AuthorizeSystem: %w", err)
	}
	userOK := subtle.ConstantTimeCompare([]byte(b.username), []byte(creds.Username)) == 1
	passOK := b.systemSecret.Equal(creds.Password)
	b.unlock()

	if !userOK || !passOK {
		return fmt.Errorf("AuthorizeSystem: %w", domain.ErrNotAuthorized)
	}
	return nil
}

func (b *Bank) AddAccount(ctx context.Context, password secret.Secret) (card domain.CardNumber, err error) {
	defer func() { observe("add_account", err) }()

	hash, err := bcrypt.GenerateFromPassword([]byte(password.Expose()), b.cfg.HashCost)
	if err != nil {
		return domain.CardNumber{}, fmt.Errorf("AddAccount: hash secret: %w", err)
	}

	if err := b.lock(ctx); err != nil {
		return domain.CardNumber{}, fmt.Errorf("AddAccount: %w", err)
	}
	defer b.unlock()

	card = domain.GenerateCardNumber()
	for b.known(card) {
		card = domain.GenerateCardNumber()
	}

	b.index[card] = len(b.accounts)
	b.accounts = append(b.accounts, domain.Account{
		CardNumber: card,
		SecretHash: hash,
		Exists:     true,
	})
	return card, nil
}

// DeleteAccount marks the account deleted. History stays in the log.
func (b *Bank) DeleteAccount(ctx context.Context, card domain.CardNumber) (err error) {
	defer func() { observe("delete_account", err) }()

	if err := b.lock(ctx); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	defer b.unlock()

	i, ok := b.index[card]
	if !ok {
		return fmt.Errorf("DeleteAccount: %w", domain.ErrAccountNotFound)
	}
	b.accounts[i].Exists = false
	return nil
}

func (b *Bank) FindAccount(ctx context.Context, card domain.CardNumber) (acc domain.Account, err error) {
	defer func() { observe("find_account", err) }()

	if err := b.lock(ctx); err != nil {
		return domain.Account{}, fmt.Errorf("FindAccount: %w", err)
	}
	defer b.unlock()

	acc, err = b.findExisting(card)
	if err != nil {
		return domain.Account{}, fmt.Errorf("FindAccount: %w", err)
	}
	return acc, nil
}

func (b *Bank) AuthorizeAccount(ctx context.Context, card domain.CardNumber, password secret.Secret) (domain.Account, error) {
	acc, err := b.FindAccount(ctx, card)
	if err != nil {
		observe("authorize_account", err)
		return domain.Account{}, fmt.Errorf("AuthorizeAccount: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(acc.SecretHash, []byte(password.Expose())); err != nil {
		observe("authorize_account", domain.ErrNotAuthorized)
		return domain.Account{}, fmt.Errorf("AuthorizeAccount: %w", domain.ErrNotAuthorized)
	}
	observe("authorize_account", nil)
	return acc, nil
}

// StoreAccount returns the system account that receives customer payments.
func (b *Bank) StoreAccount(ctx context.Context) (domain.Account, error) {
	if err := b.lock(ctx); err != nil {
		return domain.Account{}, fmt.Errorf("StoreAccount: %w", err)
	}
	defer b.unlock()
	return b.system, nil
}

func (b *Bank) Balance(ctx context.Context, card domain.CardNumber) (balance int64, err error) {
	defer func() { observe("balance", err) }()

	if err := b.lock(ctx); err != nil {
		return 0, fmt.Errorf("Balance: %w", err)
	}
	defer b.unlock()

	if !b.known(card) {
		return 0, fmt.Errorf("Balance: %w", domain.ErrAccountNotFound)
	}
	return b.balance(card), nil
}

func (b *Bank) History(ctx context.Context, card domain.CardNumber) (history []domain.Transaction, err error) {
	defer func() { observe("history", err) }()

	if err := b.lock(ctx); err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	defer b.unlock()

	if !b.known(card) {
		return nil, fmt.Errorf("History: %w", domain.ErrAccountNotFound)
	}
	return b.history(card), nil
}

// Summary returns balance and history of card from one snapshot of the log.
// Deleted accounts are still summarized.
func (b *Bank) Summary(ctx context.Context, card domain.CardNumber) (sum domain.AccountSummary, err error) {
	defer func() { observe("summary", err) }()

	if err := b.lock(ctx); err != nil {
		return domain.AccountSummary{}, fmt.Errorf("Summary: %w", err)
	}
	defer b.unlock()

	if !b.known(card) {
		return domain.AccountSummary{}, fmt.Errorf("Summary: %w", domain.ErrAccountNotFound)
	}
	return domain.AccountSummary{
		CardNumber:   card,
		Balance:      b.balance(card),
		Transactions: b.history(card),
	}, nil
}

// ListAccounts summarizes every customer account against one snapshot of the log.
func (b *Bank) ListAccounts(ctx context.Context) (list []domain.AccountSummary, err error) {
	defer func() { observe("list_accounts", err) }()

	if err := b.lock(ctx); err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	defer b.unlock()

	list = make([]domain.AccountSummary, len(b.accounts))
	for i, acc := range b.accounts {
		list[i] = domain.AccountSummary{
			CardNumber:   acc.CardNumber,
			Transactions: []domain.Transaction{},
		}
	}

	for _, tx := range b.transactions {
		if i, ok := b.index[tx.Sender]; ok {
			list[i].Balance -= tx.Amount
			list[i].Transactions = append(list[i].Transactions, tx)
		}
		if i, ok := b.index[tx.Recipient]; ok {
			list[i].Balance += tx.Amount
			list[i].Transactions = append(list[i].Transactions, tx)
		}
	}
	return list, nil
}

func (b *Bank) ListTransactions(ctx context.Context) (log []domain.Transaction, err error) {
	defer func() { observe("list_transactions", err) }()

	if err := b.lock(ctx); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	defer b.unlock()

	log = make([]domain.Transaction, len(b.transactions))
	copy(log, b.transactions)
	return log, nil
}

// Transfer moves amount from sender to recipient. The funds check and the append
// happen under the same lock hold.
func (b *Bank) Transfer(ctx context.Context, sender, recipient domain.CardNumber, amount int64) (err error) {
	defer func() { observe("transfer", err) }()

	if sender == recipient || amount <= 0 {
		return fmt.Errorf("Transfer: %w", domain.ErrBadTransaction)
	}

	if err := b.lock(ctx); err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}
	defer b.unlock()

	if _, err := b.findExisting(sender); err != nil {
		return fmt.Errorf("Transfer: sender: %w", err)
	}
	if _, err := b.findExisting(recipient); err != nil {
		return fmt.Errorf("Transfer: recipient: %w", err)
	}

	if b.balance(sender) < amount {
		return fmt.Errorf("Transfer: %w", domain.ErrNotEnoughFunds)
	}

	b.append(sender, recipient, amount)
	return nil
}

// Credit mints amount from the system account to card without a funds check.
func (b *Bank) Credit(ctx context.Context, card domain.CardNumber, amount int64) (err error) {
	defer func() { observe("credit", err) }()

	if amount <= 0 {
		return fmt.Errorf("Credit: %w", domain.ErrBadTransaction)
	}

	if err := b.lock(ctx); err != nil {
		return fmt.Errorf("Credit: %w", err)
	}
	defer b.unlock()

	i, ok := b.index[card]
	if !ok {
		return fmt.Errorf("Credit: %w", domain.ErrAccountNotFound)
	}
	if !b.accounts[i].Exists {
		return fmt.Errorf("Credit: %w", domain.ErrAccountDeleted)
	}

	b.append(b.system.CardNumber, card, amount)
	return nil
}

// The helpers below expect the caller to hold the lock.

func (b *Bank) known(card domain.CardNumber) bool {
	if card == b.system.CardNumber {
		return true
	}
	_, ok := b.index[card]
	return ok
}

func (b *Bank) findExisting(card domain.CardNumber) (domain.Account, error) {
	if card == b.system.CardNumber {
		return b.system, nil
	}
	i, ok := b.index[card]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if !b.accounts[i].Exists {
		return domain.Account{}, domain.ErrAccountDeleted
	}
	return b.accounts[i], nil
}

func (b *Bank) balance(card domain.CardNumber) int64 {
	var balance int64
	for _, tx := range b.transactions {
		switch card {
		case tx.Sender:
			balance -= tx.Amount
		case tx.Recipient:
			balance += tx.Amount
		}
	}
	return balance
}

func (b *Bank) history(card domain.CardNumber) []domain.Transaction {
	history := []domain.Transaction{}
	for _, tx := range b.transactions {
		if tx.Involves(card) {
			history = append(history, tx)
		}
	}
	return history
}

func (b *Bank) append(sender, recipient domain.CardNumber, amount int64) {
	b.transactions = append(b.transactions, domain.Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Datetime:  b.cfg.Now().UTC(),
	})
}

func observe(operation string, err error) {
	metrics.LedgerOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrAccountDeleted):
		return "account_deleted"
	case errors.Is(err, domain.ErrNotEnoughFunds):
		return "not_enough_funds"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, domain.ErrBadTransaction):
		return "bad_transaction"
	case errors.Is(err, domain.ErrLockUnavailable):
		return "lock_unavailable"
	default:
		return "error"
	}
}
