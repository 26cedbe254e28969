package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenvault/tokenvault/internal/tokenization/domain"
)

// completeLuhn appends the check digit that makes the 15-digit prefix pass
// the checksum.
func completeLuhn(t *testing.T, prefix string) string {
	t.Helper()
	require.Len(t, prefix, domain.CardIDLength-1)
	for d := byte('0'); d <= '9'; d++ {
		candidate := prefix + string(rune(d))
		if luhnCheck(candidate) {
			return candidate
		}
	}
	t.Fatalf("no check digit completes %q", prefix)
	return ""
}

func TestTokenizer_ValidateCardID(t *testing.T) {
	tokenizer := NewTokenizer()

	tests := []struct {
		name        string
		cardID      string
		expectError bool
	}{
		{
			name:        "Valid_SixteenDigitLuhn",
			cardID:      "1111111111111114",
			expectError: false,
		},
		{
			name:        "Valid_GeneratedCheckDigit",
			cardID:      completeLuhn(t, "798765432112345"),
			expectError: false,
		},
		{
			name:        "Invalid_FifteenDigits",
			cardID:      "111111111111114",
			expectError: true,
		},
		{
			name:        "Invalid_SeventeenDigits",
			cardID:      "11111111111111140",
			expectError: true,
		},
		{
			name:        "Invalid_Empty",
			cardID:      "",
			expectError: true,
		},
		{
			name:        "Invalid_FailsChecksum",
			cardID:      "1111111111111111",
			expectError: true,
		},
		{
			name:        "Invalid_NonDigitCharacters",
			cardID:      "11111111111111ab",
			expectError: true,
		},
		{
			name:        "Invalid_ReservedFirstDigit4",
			cardID:      "4111111111111111",
			expectError: true,
		},
		{
			name:        "Invalid_ReservedFirstDigit3",
			cardID:      completeLuhn(t, "311111111111111"),
			expectError: true,
		},
		{
			name:        "Invalid_ReservedFirstDigit5",
			cardID:      completeLuhn(t, "511111111111111"),
			expectError: true,
		},
		{
			name:        "Invalid_ReservedFirstDigit6",
			cardID:      completeLuhn(t, "611111111111111"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tokenizer.ValidateCardID(tt.cardID)
			if tt.expectError {
				assert.ErrorIs(t, err, domain.ErrInvalidCardID)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenizer_MakeToken_Properties(t *testing.T) {
	tokenizer := NewTokenizer()
	cardID := "1111111111111114"

	// The generator is randomized; verify the structural guarantees hold for
	// every produced token.
	for i := 0; i < 200; i++ {
		token, err := tokenizer.MakeToken(cardID)
		require.NoError(t, err)

		require.Len(t, token, len(cardID))
		assert.Equal(t, cardID[len(cardID)-4:], token[len(token)-4:], "suffix must be the card's last four digits")

		first := int(token[0] - '0')
		assert.False(t, isReservedStartDigit(first), "token %q starts with a reserved digit", token)

		bodyLen := len(cardID) - domain.TokenSuffixLength
		sum := 0
		for pos := 0; pos < bodyLen; pos++ {
			digit := int(token[pos] - '0')
			assert.GreaterOrEqual(t, digit, 1, "body digits are drawn from [1,9]")
			assert.NotEqual(t, int(cardID[pos]-'0'), digit, "body digit must differ from the card digit at position %d", pos)
			if pos > 0 {
				sum += digit
			}
		}
		assert.NotZero(t, sum%10, "token %q body digit sum is a multiple of 10", token)
	}
}

func TestTokenizer_MakeToken_InvalidCard(t *testing.T) {
	tokenizer := NewTokenizer()

	token, err := tokenizer.MakeToken("123456789012345")
	assert.ErrorIs(t, err, domain.ErrInvalidCardID)
	assert.Empty(t, token)
}

func TestLuhnCheck(t *testing.T) {
	tests := []struct {
		name   string
		cardID string
		valid  bool
	}{
		{
			name:   "Valid_AllOnesWithFour",
			cardID: "1111111111111114",
			valid:  true,
		},
		{
			name:   "Invalid_AllOnes",
			cardID: "1111111111111111",
			valid:  false,
		},
		{
			name:   "Invalid_OffByOne",
			cardID: "1111111111111115",
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, luhnCheck(tt.cardID))
		})
	}
}
