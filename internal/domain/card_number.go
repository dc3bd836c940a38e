package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	cardNumberLength = 16
	cardIssuerPrefix = '4'
)

// CardNumber is a 16-digit primary account number with a valid Luhn check digit.
// The zero value is not a valid card number.
type CardNumber struct {
	digits [cardNumberLength]byte
}

// GenerateCardNumber returns a random card number that always passes ParseCardNumber.
// Uniqueness is not checked here.
func GenerateCardNumber() CardNumber {
	var c CardNumber
	c.digits[0] = cardIssuerPrefix
	for i := 1; i < cardNumberLength-1; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			panic(fmt.Sprintf("GenerateCardNumber: crypto/rand failed: %v", err))
		}
		c.digits[i] = '0' + byte(n.Int64())
	}
	c.digits[cardNumberLength-1] = luhnCheckDigit(c.digits[:cardNumberLength-1])
	return c
}

// ParseCardNumber accepts 16 digits, optionally grouped with spaces.
func ParseCardNumber(s string) (CardNumber, error) {
	var c CardNumber

	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if len(s) != cardNumberLength {
		return c, fmt.Errorf("ParseCardNumber: want %d digits, got %d: %w", cardNumberLength, len(s), ErrInvalidCardNumber)
	}
	for i := 0; i < cardNumberLength; i++ {
		if s[i] < '0' || s[i] > '9' {
			return c, fmt.Errorf("ParseCardNumber: non-digit at position %d: %w", i, ErrInvalidCardNumber)
		}
		c.digits[i] = s[i]
	}
	if luhnCheckDigit(c.digits[:cardNumberLength-1]) != c.digits[cardNumberLength-1] {
		return CardNumber{}, fmt.Errorf("ParseCardNumber: checksum mismatch: %w", ErrInvalidCardNumber)
	}
	return c, nil
}

// MustParseCardNumber is for tests and constants.
func MustParseCardNumber(s string) CardNumber {
	c, err := ParseCardNumber(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CardNumber) IsZero() bool { return c == CardNumber{} }

func (c CardNumber) String() string {
	if c.IsZero() {
		return ""
	}
	return string(c.digits[:])
}

// Masked keeps the first six and last four digits.
func (c CardNumber) Masked() string {
	if c.IsZero() {
		return ""
	}
	return string(c.digits[:6]) + "******" + string(c.digits[12:])
}

func (c CardNumber) Compare(other CardNumber) int {
	return strings.Compare(string(c.digits[:]), string(other.digits[:]))
}

func (c CardNumber) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CardNumber) UnmarshalText(b []byte) error {
	parsed, err := ParseCardNumber(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// luhnCheckDigit computes the digit that makes payload+digit pass the Luhn check.
func luhnCheckDigit(payload []byte) byte {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return '0' + byte((10-sum%10)%10)
}
