package bank

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

const testUsername = "bank"

var testSystemSecret = secret.New("terminal-pass")

func newTestBank(t *testing.T) *Bank {
	t.Helper()
	return New(testSystemSecret, testUsername, Config{
		LockTimeout:  50 * time.Millisecond,
		LockAttempts: 2,
		HashCost:     bcrypt.MinCost,
	})
}

func addFunded(t *testing.T, b *Bank, password string, amount int64) domain.CardNumber {
	t.Helper()
	ctx := t.Context()
	card, err := b.AddAccount(ctx, secret.New(password))
	require.NoError(t, err)
	if amount > 0 {
		require.NoError(t, b.Credit(ctx, card, amount))
	}
	return card
}

func TestTransfer_Scenario(t *testing.T) {
	b := newTestBank(t)
	ctx := t.Context()

	a := addFunded(t, b, "p1", 1000)
	c := addFunded(t, b, "p2", 0)

	require.NoError(t, b.Transfer(ctx, a, c, 1000))

	balA, err := b.Balance(ctx, a)
	require.NoError(t, err)
	balC, err := b.Balance(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balA)
	assert.Equal(t, int64(1000), balC)

	err = b.Transfer(ctx, a, c, 1)
	require.ErrorIs(t, err, domain.ErrNotEnoughFunds)
}

func TestAuthorizeAccount(t *testing.T) {
	b := newTestBank(t)
	ctx := t.Context()
	a := addFunded(t, b, "p1", 1000)

	_, err := b.AuthorizeAccount(ctx, a, secret.New("wrong"))
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	acc, err := b.AuthorizeAccount(ctx, a, secret.New("p1"))
	require.NoError(t, err)
	assert.Equal(t, a, acc.CardNumber)
	assert.True(t, acc.Exists)

	_, err = b.AuthorizeAccount(ctx, domain.GenerateCardNumber(), secret.New("p1"))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, b.DeleteAccount(ctx, a))
	_, err = b.AuthorizeAccount(ctx, a, secret.New("p1"))
	require.ErrorIs(t, err, domain.ErrAccountDeleted)
}

func TestAuthorizeSystem(t *testing.T) {
	b := newTestBank(t)

	tests := []struct {
		name    string
		creds   domain.Credentials
		wantErr bool
	}{
		{name: "valid", creds: domain.Credentials{Username: testUsername, Password: testSystemSecret}},
		{name: "wrong password", creds: domain.Credentials{Username: testUsername, Password: secret.New("x")}, wantErr: true},
		{name: "wrong username", creds: domain.Credentials{Username: "other", Password: testSystemSecret}, wantErr: true},
		{name: "empty", creds: domain.Credentials{}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := b.AuthorizeSystem(t.Context(), tc.creds)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrNotAuthorized)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransfer_Rejections(t *testing.T) {
	b := newTestBank(t)
	ctx := t.Context()
	a := addFunded(t, b, "p1", 100)
	c := addFunded(t, b, "p2", 0)

	tests := []struct {
		name      string
		sender    domain.CardNumber
		recipient domain.CardNumber
		amount    int64
		wantErr   error
	}{
		{name: "self transfer", sender: a, recipient: a, amount: 10, wantErr: domain.ErrBadTransaction},
		{name: "self transfer with zero", sender: a, recipient: a, amount: 0, wantErr: domain.ErrBadTransaction},
		{name: "zero amount", sender: a, recipient: c, amount: 0, wantErr: domain.ErrBadTransaction},
		{name: "negative amount", sender: a, recipient: c, amount: -5, wantErr: domain.ErrBadTransaction},
		{name: "unknown sender", sender: domain.GenerateCardNumber(), recipient: c, amount: 1, wantErr: domain.ErrAccountNotFound},
		{name: "unknown recipient", sender: a, recipient: domain.GenerateCardNumber(), amount: 1, wantErr: domain.ErrAccountNotFound},
		{name: "insufficient", sender: c, recipient: a, amount: 1, wantErr: domain.ErrNotEnoughFunds},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := b.Transfer(ctx, tc.sender, tc.recipient, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	log, err := b.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, log, 1, "only the seeding credit is recorded")
}

func TestTransfer_ToStoreAccount(t *testing.T) {
	b := newTestBank(t)
	ctx := t.Context()
	a := addFunded(t, b, "p1", 700)

	store, err := b.StoreAccount(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Transfer(ctx, a, store.CardNumber, 500))

	storeBalance, err := b.Balance(ctx, store.CardNumber)
	require.NoError(t, err)
	// -700 minted, +500 received
	assert.Equal(t, int64(-200), storeBalance)
}

func TestTransfer_NoDoubleSpend(t *testing.T) {
	b := newTestBank(t)
	b.cfg.LockTimeout = 5 * time.Second
	ctx := t.Context()

	sender := addFunded(t, b, "p1", 1000)
	recipient := addFunded(t, b, "p2", 0)

	const workers = 50
	var succeeded atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := b.Transfer(ctx, sender, recipient, 70); err == nil {
				succeeded.Add(70)
			} else {
				assert.ErrorIs(t, err, domain.ErrNotEnoughFunds)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(980), succeeded.Load())

	bal, err := b.Balance(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(20), bal)
	assert.GreaterOrEqual(t, bal, int64(0))
}

func TestBalance_MatchesIndependentFold(t *testing.T) {
	b := newTestBank(t)
	b.cfg.LockTimeout = 5 * time.Second
	ctx := t.Context()

	cards := make([]domain.CardNumber, 5)
	for i := range cards {
		cards[i] = addFunded(t, b, "p", int64(100*(i+1)))
	}

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			from := cards[i%len(cards)]
			to := cards[(i+1)%len(cards)]
			_ = b.Transfer(ctx, from, to, int64(10+i))
		}()
	}
	wg.Wait()

	log, err := b.ListTransactions(ctx)
	require.NoError(t, err)

	for _, card := range cards {
		var want int64
		for _, tx := range log {
			if tx.Recipient == card {
				want += tx.Amount
			}
			if tx.Sender == card {
				want -= tx.Amount
			}
		}
		got, err := b.Balance(ctx, card)
		require.NoError(t, err)
		assert.Equal(t, want, got, "card %s", card.Masked())
		assert.GreaterOrEqual(t, got, int64(0))
	}
}

func TestDeleteAccount_PreservesHistory(t *testing.T) {
	b := newTestBank(t)
	ctx := t.Context()
	a := addFunded(t, b, "p1", 300)
	c := addFunded(t, b, "p2", 0)
	require.NoError(t, b.Transfer(ctx, a, c, 100))

	require.NoError(t, b.DeleteAccount(ctx, a))

	_, err := b.FindAccount(ctx, a)
	require.ErrorIs(t, err, domain.ErrAccountDeleted)

	history, err := b.History(ctx, a)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(300), history[0].Amount)
	assert.Equal(t, a, history[1].Sender)
	assert.Equal(t, c, history[1].Recipient)

	require.ErrorIs(t, b.Credit(ctx, a, 1), domain.ErrAccountDeleted)
	require.ErrorIs(t, b.Transfer(ctx, c, a, 1), domain.ErrAccountDeleted)
	require.ErrorIs(t, b.DeleteAccount(ctx, domain.GenerateCardNumber()), domain.ErrAccountNotFound)
}

func TestCredit(t *testing.T) {
	b := newTestBank(t)
	ctx := t.Context()
	a := addFunded(t, b, "p1", 0)

	require.ErrorIs(t, b.Credit(ctx, domain.GenerateCardNumber(), 10), domain.ErrAccountNotFound)
	require.ErrorIs(t, b.Credit(ctx, a, 0), domain.ErrBadTransaction)

	require.NoError(t, b.Credit(ctx, a, 10))
	require.NoError(t, b.Credit(ctx, a, 15))

	history, err := b.History(ctx, a)
	require.NoError(t, err)
	require.Len(t, history, 2)

	store, err := b.StoreAccount(ctx)
	require.NoError(t, err)
	for _, tx := range history {
		assert.Equal(t, store.CardNumber, tx.Sender)
	}
}

func TestListAccounts_ConsistentSnapshot(t *testing.T) {
	b := newTestBank(t)
	ctx := t.Context()
	a := addFunded(t, b, "p1", 500)
	c := addFunded(t, b, "p2", 0)
	d := addFunded(t, b, "p3", 0)
	require.NoError(t, b.Transfer(ctx, a, c, 200))
	require.NoError(t, b.DeleteAccount(ctx, d))

	list, err := b.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, a, list[0].CardNumber)
	assert.Equal(t, int64(300), list[0].Balance)
	assert.Len(t, list[0].Transactions, 2)

	assert.Equal(t, c, list[1].CardNumber)
	assert.Equal(t, int64(200), list[1].Balance)
	assert.Len(t, list[1].Transactions, 1)

	assert.Equal(t, d, list[2].CardNumber)
	assert.Equal(t, int64(0), list[2].Balance)
	assert.Empty(t, list[2].Transactions)

	var total int64
	for _, s := range list {
		total += s.Balance
	}
	assert.Equal(t, int64(500), total, "customer balances sum to minted credit")
}

func TestLock_Unavailable(t *testing.T) {
	b := newTestBank(t)
	require.NoError(t, b.sem.Acquire(context.Background(), 1))
	defer b.sem.Release(1)

	_, err := b.AddAccount(t.Context(), secret.New("p"))
	require.ErrorIs(t, err, domain.ErrLockUnavailable)

	err = b.Transfer(t.Context(), domain.GenerateCardNumber(), domain.GenerateCardNumber(), 1)
	require.ErrorIs(t, err, domain.ErrLockUnavailable)
}

func TestLock_CallerCancelled(t *testing.T) {
	b := newTestBank(t)
	b.cfg.LockTimeout = time.Second
	require.NoError(t, b.sem.Acquire(context.Background(), 1))
	defer b.sem.Release(1)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := b.FindAccount(ctx, domain.GenerateCardNumber())
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrLockUnavailable)
}

func TestAccount_SameByCardNumberOnly(t *testing.T) {
	card := domain.GenerateCardNumber()
	a := domain.Account{CardNumber: card, SecretHash: []byte("x"), Exists: true}
	b := domain.Account{CardNumber: card, SecretHash: []byte("y"), Exists: false}
	assert.True(t, a.Same(b))
	assert.False(t, a.Same(domain.Account{CardNumber: domain.GenerateCardNumber()}))
}

func TestSummary(t *testing.T) {
	b := newTestBank(t)
	ctx := t.Context()

	a := addFunded(t, b, "p1", 300)
	c := addFunded(t, b, "p2", 0)
	require.NoError(t, b.Transfer(ctx, a, c, 100))
	require.NoError(t, b.DeleteAccount(ctx, a))

	sum, err := b.Summary(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a, sum.CardNumber)
	assert.Equal(t, int64(200), sum.Balance)
	assert.Len(t, sum.Transactions, 2)

	_, err = b.Summary(ctx, domain.GenerateCardNumber())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
