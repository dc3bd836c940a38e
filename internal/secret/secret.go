// Package secret holds credentials that must never reach logs or response bodies.
package secret

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
)

const redacted = "[REDACTED]"

type Secret struct {
	value string
}

func New(value string) Secret {
	return Secret{value: value}
}

// Expose returns the raw value. Callers must not log or serialize it.
func (s Secret) Expose() string { return s.value }

func (s Secret) IsEmpty() bool { return s.value == "" }

func (s Secret) Equal(other Secret) bool {
	return subtle.ConstantTimeCompare([]byte(s.value), []byte(other.value)) == 1
}

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }

func (s Secret) LogValue() slog.Value { return slog.StringValue(redacted) }

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

func (s *Secret) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s.value = v
	return nil
}

func (s *Secret) UnmarshalText(b []byte) error {
	s.value = string(b)
	return nil
}
