package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenvault/tokenvault/internal/tokenization/domain"
)

func testCards() []domain.BankCard {
	return []domain.BankCard{
		{
			ID: "2222222222222225",
			Tokens: []domain.Token{
				{ID: "9121212121212225", Owner: "2222222222222225"},
			},
		},
		{
			ID: "1111111111111114",
			Tokens: []domain.Token{
				{ID: "2121212121211114", Owner: "1111111111111114"},
				{ID: "1212121212121114", Owner: "1111111111111114"},
			},
		},
	}
}

func TestWrite(t *testing.T) {
	t.Run("Success_ByCard", func(t *testing.T) {
		var sb strings.Builder
		require.NoError(t, Write(&sb, testCards(), ByCard))

		// Cards are ordered by id; each card's tokens keep issuance order.
		want := "Card: 1111111111111114 < - > 2121212121211114 :Token\n" +
			"Card: 1111111111111114 < - > 1212121212121114 :Token\n" +
			"Card: 2222222222222225 < - > 9121212121212225 :Token\n"
		assert.Equal(t, want, sb.String())
	})

	t.Run("Success_ByToken", func(t *testing.T) {
		var sb strings.Builder
		require.NoError(t, Write(&sb, testCards(), ByToken))

		want := "Token: 1212121212121114 < - > 1111111111111114 :Card\n" +
			"Token: 2121212121211114 < - > 1111111111111114 :Card\n" +
			"Token: 9121212121212225 < - > 2222222222222225 :Card\n"
		assert.Equal(t, want, sb.String())
	})

	t.Run("Success_EmptyRegistry", func(t *testing.T) {
		var sb strings.Builder
		require.NoError(t, Write(&sb, nil, ByCard))
		assert.Empty(t, sb.String())
	})

	t.Run("Error_UnknownOrientation", func(t *testing.T) {
		var sb strings.Builder
		err := Write(&sb, testCards(), Orientation("csv"))
		assert.Error(t, err)
	})
}
