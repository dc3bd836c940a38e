package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

var testKey = secret.New("terminal-pass")

func TestGenerateAndValidateCardToken(t *testing.T) {
	signer := NewCardTokenSigner(testKey, 24*time.Hour)
	card := domain.GenerateCardNumber()

	token, err := signer.Generate(card)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.NotContains(t, token, card.String())

	claims, err := signer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, card, claims.CardNumber)
	assert.NotEqual(t, uuid.Nil, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestValidateCardToken(t *testing.T) {
	card := domain.GenerateCardNumber()

	valid, err := NewCardTokenSigner(testKey, time.Hour).Generate(card)
	require.NoError(t, err)

	expired, err := NewCardTokenSigner(testKey, -time.Hour).Generate(card)
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		key       secret.Secret
		wantErrIs error
	}{
		{name: "expired token", token: expired, key: testKey, wantErrIs: jwt.ErrTokenExpired},
		{name: "wrong key", token: valid, key: secret.New("other"), wantErrIs: jwt.ErrTokenSignatureInvalid},
		{name: "malformed token", token: "not.a.valid.jwt", key: testKey, wantErrIs: jwt.ErrTokenMalformed},
		{name: "empty token", token: "", key: testKey, wantErrIs: jwt.ErrTokenMalformed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCardTokenSigner(tc.key, time.Hour).Validate(tc.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErrIs)
		})
	}
}

func TestValidateCardToken_RejectsNonHMAC(t *testing.T) {
	claims := cardTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		CardNumber: domain.GenerateCardNumber().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewCardTokenSigner(testKey, time.Hour).Validate(signed)
	require.Error(t, err)
}

func TestOperatorContext(t *testing.T) {
	_, ok := OperatorFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithOperator(context.Background(), "bank")
	name, ok := OperatorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "bank", name)
}
