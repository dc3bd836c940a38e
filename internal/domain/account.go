package domain

import (
	"github.com/josh-kwaku/acquisim/internal/secret"
)

// Account is a snapshot of a ledger account. SecretHash is a bcrypt hash of the
// account password and is never serialized.
type Account struct {
	CardNumber CardNumber `json:"card_number"`
	SecretHash []byte     `json:"-"`
	Exists     bool       `json:"is_existing"`
}

// Same reports whether both snapshots describe the same account. Only the card
// number takes part; secret and existence flag may differ between snapshots.
func (a Account) Same(other Account) bool {
	return a.CardNumber == other.CardNumber
}

// Credentials authenticate the privileged system account.
type Credentials struct {
	Username string
	Password secret.Secret
}

type AccountSummary struct {
	CardNumber   CardNumber    `json:"card_number"`
	Balance      int64         `json:"balance"`
	Transactions []Transaction `json:"transactions"`
}
