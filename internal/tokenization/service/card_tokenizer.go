// Package service implements card validation and token synthesis.
package service

import (
	"math/rand/v2"

	"github.com/tokenvault/tokenvault/internal/tokenization/domain"
)

// Tokenizer validates card identifiers and synthesizes surrogate token ids.
// It is pure apart from the random source and safe for concurrent use.
type Tokenizer struct{}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// MakeToken validates the card id and builds a token for it: a synthesized
// body followed by the card's last four digits verbatim. Returns
// domain.ErrInvalidCardID when the card id fails validation. The result is
// not checked for registry uniqueness; callers retry on collision.
func (t *Tokenizer) MakeToken(cardID string) (string, error) {
	if err := t.ValidateCardID(cardID); err != nil {
		return "", err
	}
	suffix := cardID[len(cardID)-domain.TokenSuffixLength:]
	return buildTokenBody(cardID) + suffix, nil
}

// ValidateCardID checks that the card id is exactly 16 decimal digits, does
// not start with a reserved brand-prefix digit, and passes the Luhn checksum.
func (t *Tokenizer) ValidateCardID(cardID string) error {
	if len(cardID) != domain.CardIDLength {
		return domain.ErrInvalidCardID
	}
	for _, c := range cardID {
		if c < '0' || c > '9' {
			return domain.ErrInvalidCardID
		}
	}
	if isReservedStartDigit(int(cardID[0] - '0')) {
		return domain.ErrInvalidCardID
	}
	if !luhnCheck(cardID) {
		return domain.ErrInvalidCardID
	}
	return nil
}

// buildTokenBody synthesizes the token body: one digit per card position
// (excluding the four-digit suffix), each drawn from [1,9] and different from
// the card digit at that position. The first digit additionally avoids the
// reserved prefixes, and the digit sum over positions 1..end is kept off
// multiples of 10 by redrawing the last digit.
func buildTokenBody(cardID string) string {
	body := make([]int, len(cardID)-domain.TokenSuffixLength)

	for {
		body[0] = drawDigit(cardID[0])
		if !isReservedStartDigit(body[0]) {
			break
		}
	}

	sum := 0
	for i := 1; i < len(body); i++ {
		body[i] = drawDigit(cardID[i])
		sum += body[i]
	}

	last := len(body) - 1
	for sum%10 == 0 {
		sum -= body[last]
		body[last] = drawDigit(cardID[last])
		sum += body[last]
	}

	out := make([]byte, len(body))
	for i, d := range body {
		out[i] = byte('0' + d)
	}
	return string(out)
}

// drawDigit draws a digit in [1,9] that differs from the card digit at the
// same position. Rejection sampling keeps the remaining digits uniform.
func drawDigit(cardDigit byte) int {
	for {
		d := rand.IntN(9) + 1
		if d != int(cardDigit-'0') {
			return d
		}
	}
}

// isReservedStartDigit reports whether the digit is one of the brand prefixes
// excluded from both card ids and token ids.
func isReservedStartDigit(digit int) bool {
	return digit == 3 || digit == 4 || digit == 5 || digit == 6
}

// luhnCheck runs the checksum over the full digit string: every second digit
// from the start is doubled, doubled values above 9 collapse by subtracting 9,
// and the total must be a multiple of 10.
func luhnCheck(cardID string) bool {
	sum := 0
	for i := 0; i < len(cardID); i++ {
		d := int(cardID[i] - '0')
		if i%2 != 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}
