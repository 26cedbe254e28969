// Package export renders the card registry as human-readable text reports
// for operators, in both card-to-token and token-to-card orientations.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/tokenvault/tokenvault/internal/tokenization/domain"
)

// Orientation selects the report layout.
type Orientation string

const (
	// ByCard lists every card-token pair grouped by card id.
	ByCard Orientation = "card"
	// ByToken lists every token-card pair ordered by token id.
	ByToken Orientation = "token"
)

// Write renders the registry snapshot to w in the requested orientation.
// Cards and tokens-by-id are sorted; a card's own tokens keep issuance order.
func Write(w io.Writer, cards []domain.BankCard, orientation Orientation) error {
	switch orientation {
	case ByCard:
		return writeByCard(w, cards)
	case ByToken:
		return writeByToken(w, cards)
	default:
		return fmt.Errorf("unknown export orientation %q", orientation)
	}
}

func writeByCard(w io.Writer, cards []domain.BankCard) error {
	sorted := make([]domain.BankCard, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, card := range sorted {
		for _, token := range card.Tokens {
			if _, err := fmt.Fprintf(w, "Card: %s < - > %s :Token\n", card.ID, token.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeByToken(w io.Writer, cards []domain.BankCard) error {
	tokens := make([]domain.Token, 0)
	for _, card := range cards {
		tokens = append(tokens, card.Tokens...)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })

	for _, token := range tokens {
		if _, err := fmt.Fprintf(w, "Token: %s < - > %s :Card\n", token.ID, token.Owner); err != nil {
			return err
		}
	}
	return nil
}
