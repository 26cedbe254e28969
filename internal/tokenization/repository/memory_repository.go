// Package repository provides the in-memory card and token registry.
package repository

import (
	"context"
	"sync"

	"github.com/tokenvault/tokenvault/internal/tokenization/domain"
)

// MemoryRepository is the in-memory card registry: a list of bank cards, each
// holding its tokens in issuance order. Token ids are unique across every
// card in the registry.
//
// Issue runs entirely under the write lock, so the card-exists check, the
// global uniqueness re-check and the append are one critical section. Lookups
// take the read lock. IsTokenTaken is a pre-flight probe for the generation
// retry loop; racing it against Issue costs at most an extra retry, never a
// duplicate.
type MemoryRepository struct {
	mu    sync.RWMutex
	cards []*domain.BankCard
	index map[string]*domain.BankCard
}

// NewMemoryRepository builds an empty in-memory card registry.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{index: make(map[string]*domain.BankCard)}
}

// Issue records a new token for the card. The card is created with this
// token as its sole member when it does not exist yet. Returns
// domain.ErrTokenTaken when the token id is already in use anywhere in the
// registry.
func (r *MemoryRepository) Issue(_ context.Context, cardID, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ownerOfLocked(tokenID) != "" {
		return domain.ErrTokenTaken
	}

	token := domain.Token{ID: tokenID, Owner: cardID}
	if card, ok := r.index[cardID]; ok {
		card.Tokens = append(card.Tokens, token)
		return nil
	}

	card := &domain.BankCard{ID: cardID, Tokens: []domain.Token{token}}
	r.cards = append(r.cards, card)
	r.index[cardID] = card
	return nil
}

// OwnerOf returns the card id the token was issued for. Returns
// domain.ErrTokenNotFound when no card owns the token.
func (r *MemoryRepository) OwnerOf(_ context.Context, tokenID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if owner := r.ownerOfLocked(tokenID); owner != "" {
		return owner, nil
	}
	return "", domain.ErrTokenNotFound
}

// IsTokenTaken reports whether any card already owns the token id.
func (r *MemoryRepository) IsTokenTaken(_ context.Context, tokenID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ownerOfLocked(tokenID) != ""
}

// ownerOfLocked scans every card's token list. Callers hold the lock.
func (r *MemoryRepository) ownerOfLocked(tokenID string) string {
	for _, card := range r.cards {
		for _, token := range card.Tokens {
			if token.ID == tokenID {
				return card.ID
			}
		}
	}
	return ""
}

// Len reports the number of cards in the registry.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cards)
}

// Snapshot returns a deep copy of every card in insertion order.
func (r *MemoryRepository) Snapshot() []domain.BankCard {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cards := make([]domain.BankCard, 0, len(r.cards))
	for _, card := range r.cards {
		copied := domain.BankCard{ID: card.ID, Tokens: make([]domain.Token, len(card.Tokens))}
		copy(copied.Tokens, card.Tokens)
		cards = append(cards, copied)
	}
	return cards
}

// Restore replaces the registry content with the given cards. Later
// duplicates of the same card id are dropped.
func (r *MemoryRepository) Restore(cards []domain.BankCard) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cards = r.cards[:0]
	r.index = make(map[string]*domain.BankCard, len(cards))
	for _, card := range cards {
		if _, exists := r.index[card.ID]; exists {
			continue
		}
		copied := &domain.BankCard{ID: card.ID, Tokens: make([]domain.Token, len(card.Tokens))}
		copy(copied.Tokens, card.Tokens)
		r.cards = append(r.cards, copied)
		r.index[card.ID] = copied
	}
}
