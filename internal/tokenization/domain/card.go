// Package domain defines the bank card and token entities of the
// tokenization registry.
package domain

import (
	"github.com/tokenvault/tokenvault/internal/errors"
)

// CardIDLength is the only accepted length for a card identifier.
const CardIDLength = 16

// TokenSuffixLength is the number of trailing card digits carried verbatim at
// the end of every token.
const TokenSuffixLength = 4

// Token is a surrogate identifier standing in for a card id. The id is unique
// across the whole registry; Owner is the back-reference to the card it was
// issued for.
type Token struct {
	ID    string
	Owner string
}

// BankCard holds a card id together with every token issued for it, in
// insertion order. A card exists only once its first token is issued.
type BankCard struct {
	ID     string
	Tokens []Token
}

// Domain-specific errors for tokenization operations.
var (
	// ErrInvalidCardID indicates the card identifier failed validation.
	ErrInvalidCardID = errors.Wrap(errors.ErrInvalidInput, "the id of the card is not valid")

	// ErrTokenCreateFailed indicates token generation could not find an
	// unused token id within the attempt budget.
	ErrTokenCreateFailed = errors.Wrap(errors.ErrExhausted, "could not create token")

	// ErrTokenNotFound indicates no card is associated with the token.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "no card associated to this token")

	// ErrTokenTaken indicates the token id is already in use by some card.
	ErrTokenTaken = errors.Wrap(errors.ErrConflict, "token id already in use")
)
