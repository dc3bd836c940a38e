package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

type CardTokenClaims struct {
	CardNumber domain.CardNumber
	TokenID    uuid.UUID
	ExpiresAt  time.Time
}

type cardTokenClaims struct {
	jwt.RegisteredClaims
	CardNumber string `json:"card_number"`
}

// CardTokenSigner issues merchant-held tokens that stand in for a card number.
type CardTokenSigner struct {
	key    secret.Secret
	expiry time.Duration
}

func NewCardTokenSigner(key secret.Secret, expiry time.Duration) *CardTokenSigner {
	return &CardTokenSigner{key: key, expiry: expiry}
}

func (s *CardTokenSigner) Generate(card domain.CardNumber) (string, error) {
	now := time.Now()
	claims := cardTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CardNumber: card.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.key.Expose()))
	if err != nil {
		return "", fmt.Errorf("Generate: %w", err)
	}
	return signed, nil
}

func (s *CardTokenSigner) Validate(tokenString string) (*CardTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &cardTokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.key.Expose()), nil
	})
	if err != nil {
		return nil, fmt.Errorf("Validate: %w", err)
	}

	tc, ok := token.Claims.(*cardTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("Validate: invalid card token claims")
	}

	card, err := domain.ParseCardNumber(tc.CardNumber)
	if err != nil {
		return nil, fmt.Errorf("Validate: %w", err)
	}
	tokenID, err := uuid.Parse(tc.ID)
	if err != nil {
		return nil, fmt.Errorf("Validate: invalid jti: %w", err)
	}

	return &CardTokenClaims{
		CardNumber: card,
		TokenID:    tokenID,
		ExpiresAt:  tc.ExpiresAt.Time,
	}, nil
}
