// Package token implements the request-integrity token shared between the bank
// and merchant terminals.
//
// The token is sha256(concat(values sorted by field name)) where the terminal
// password is one of the fields under the "password" key. This is not an HMAC;
// the construction is kept byte-for-byte so existing merchant clients interoperate.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

const passwordField = "password"

// Fields are the request values covered by a token, keyed by wire field name.
type Fields map[string]string

func Generate(fields Fields, password secret.Secret) string {
	keys := make([]string, 0, len(fields)+1)
	for k := range fields {
		if k == passwordField {
			continue
		}
		keys = append(keys, k)
	}
	keys = append(keys, passwordField)
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if k == passwordField {
			b.WriteString(password.Expose())
			continue
		}
		b.WriteString(fields[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func Validate(fields Fields, candidate string, password secret.Secret) error {
	expected := Generate(fields, password)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(candidate))) != 1 {
		return fmt.Errorf("Validate: %w", domain.ErrTokenMismatch)
	}
	return nil
}

func InitPaymentFields(notificationURL, successURL, failURL string, amount int64) Fields {
	return Fields{
		"notification_url": notificationURL,
		"success_url":      successURL,
		"fail_url":         failURL,
		"amount":           strconv.FormatInt(amount, 10),
	}
}

func RegisterCardTokenFields(notificationURL, successURL, failURL string) Fields {
	return Fields{
		"notification_url": notificationURL,
		"success_url":      successURL,
		"fail_url":         failURL,
	}
}

// CanonicalURL renders an absolute URL the way merchant clients serialize it
// before hashing: an empty path becomes "/".
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("CanonicalURL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("CanonicalURL: %q is not absolute: %w", raw, domain.ErrInvalidRequest)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
