package domain

import (
	"encoding/json"
	"time"
)

// Transaction is an immutable ledger record. Accounts are referenced by card
// number so later changes to an account never alter recorded history.
type Transaction struct {
	Sender    CardNumber
	Recipient CardNumber
	Amount    int64
	Datetime  time.Time
}

// Involves reports whether card is the sender or the recipient.
func (t Transaction) Involves(card CardNumber) bool {
	return t.Sender == card || t.Recipient == card
}

type transactionJSON struct {
	Sender    CardNumber `json:"sender"`
	Recipient CardNumber `json:"recipient"`
	Amount    int64      `json:"amount"`
	Datetime  string     `json:"datetime"`
}

// MarshalJSON renders the timestamp as second-precision ISO 8601 in UTC.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		Sender:    t.Sender,
		Recipient: t.Recipient,
		Amount:    t.Amount,
		Datetime:  t.Datetime.UTC().Truncate(time.Second).Format(time.RFC3339),
	})
}
