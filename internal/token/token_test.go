package token

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

var testPassword = secret.New("terminal-pass")

func TestGenerate_MatchesSortedConcatenation(t *testing.T) {
	fields := InitPaymentFields("http://shop.test/notify", "http://shop.test/ok", "http://shop.test/fail", 500)

	// amount, fail_url, notification_url, password, success_url
	concat := "500" + "http://shop.test/fail" + "http://shop.test/notify" + "terminal-pass" + "http://shop.test/ok"
	sum := sha256.Sum256([]byte(concat))

	assert.Equal(t, hex.EncodeToString(sum[:]), Generate(fields, testPassword))
}

func TestGenerate_OrderIndependent(t *testing.T) {
	a := Fields{"b": "2", "a": "1", "c": "3"}
	b := Fields{"c": "3", "b": "2", "a": "1"}
	assert.Equal(t, Generate(a, testPassword), Generate(b, testPassword))
}

func TestGenerate_PasswordFieldCannotBeSpoofed(t *testing.T) {
	fields := Fields{"amount": "1", "password": "attacker"}
	assert.Equal(t, Generate(Fields{"amount": "1"}, testPassword), Generate(fields, testPassword))
}

func TestValidate_RoundTrip(t *testing.T) {
	sets := []Fields{
		{},
		InitPaymentFields("http://a/", "http://b/", "http://c/", 1),
		RegisterCardTokenFields("http://a/", "http://b/", "http://c/"),
		{"x": "", "y": "ünïcode"},
	}
	for _, fields := range sets {
		tok := Generate(fields, testPassword)
		require.NoError(t, Validate(fields, tok, testPassword))
	}
}

func TestValidate_DetectsTampering(t *testing.T) {
	base := InitPaymentFields("http://shop.test/notify", "http://shop.test/ok", "http://shop.test/fail", 500)
	tok := Generate(base, testPassword)

	tests := []struct {
		name     string
		fields   Fields
		password secret.Secret
	}{
		{name: "amount changed", fields: InitPaymentFields("http://shop.test/notify", "http://shop.test/ok", "http://shop.test/fail", 501), password: testPassword},
		{name: "success url changed", fields: InitPaymentFields("http://shop.test/notify", "http://evil.test/ok", "http://shop.test/fail", 500), password: testPassword},
		{name: "fail url changed", fields: InitPaymentFields("http://shop.test/notify", "http://shop.test/ok", "http://shop.test/x", 500), password: testPassword},
		{name: "notification url changed", fields: InitPaymentFields("http://evil.test/", "http://shop.test/ok", "http://shop.test/fail", 500), password: testPassword},
		{name: "wrong password", fields: base, password: secret.New("other")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.fields, tok, tc.password)
			require.ErrorIs(t, err, domain.ErrTokenMismatch)
		})
	}

	require.ErrorIs(t, Validate(base, "", testPassword), domain.ErrTokenMismatch)
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "adds root path", in: "http://shop.test", want: "http://shop.test/"},
		{name: "keeps path", in: "https://shop.test/pay/ok?x=1", want: "https://shop.test/pay/ok?x=1"},
		{name: "keeps port", in: "http://localhost:9000", want: "http://localhost:9000/"},
		{name: "relative rejected", in: "/ok", wantErr: true},
		{name: "garbage rejected", in: "::not a url", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalURL(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
