// Package usecase implements the tokenization business logic.
package usecase

import (
	"context"
	"time"

	"github.com/tokenvault/tokenvault/internal/errors"
	"github.com/tokenvault/tokenvault/internal/metrics"
	"github.com/tokenvault/tokenvault/internal/tokenization/domain"
)

// DefaultMaxAttempts is the token generation retry budget used when no
// explicit value is configured.
const DefaultMaxAttempts = 100000

// UseCase defines the tokenization business logic operations.
type UseCase interface {
	IssueToken(ctx context.Context, cardID string) (string, error)
	LookupCard(ctx context.Context, tokenID string) (string, error)
}

// Tokenizer generates candidate token ids for a card.
type Tokenizer interface {
	MakeToken(cardID string) (string, error)
}

// CardRepository defines the registry operations the use case depends on.
type CardRepository interface {
	Issue(ctx context.Context, cardID, tokenID string) error
	OwnerOf(ctx context.Context, tokenID string) (string, error)
	IsTokenTaken(ctx context.Context, tokenID string) bool
}

// TokenizationUseCase issues tokens for cards and reverse-maps tokens back to
// their cards.
type TokenizationUseCase struct {
	tokenizer   Tokenizer
	cardRepo    CardRepository
	maxAttempts int
	metrics     metrics.BusinessMetrics
}

// NewTokenizationUseCase creates a new TokenizationUseCase. maxAttempts
// bounds the generation retry loop; values below 1 fall back to
// DefaultMaxAttempts.
func NewTokenizationUseCase(
	tokenizer Tokenizer,
	cardRepo CardRepository,
	maxAttempts int,
	businessMetrics metrics.BusinessMetrics,
) *TokenizationUseCase {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &TokenizationUseCase{
		tokenizer:   tokenizer,
		cardRepo:    cardRepo,
		maxAttempts: maxAttempts,
		metrics:     businessMetrics,
	}
}

// IssueToken generates a token for the card and records it in the registry.
// Generation retries while the candidate token id is already in use, up to
// the attempt budget; running out of attempts is reported as
// domain.ErrTokenCreateFailed, distinct from an invalid card id. The final
// insert re-checks uniqueness inside the registry's critical section, so a
// probe raced by a concurrent issuance costs one more attempt instead of
// producing a duplicate.
func (uc *TokenizationUseCase) IssueToken(ctx context.Context, cardID string) (string, error) {
	start := time.Now()

	for attempt := 0; attempt < uc.maxAttempts; attempt++ {
		tokenID, err := uc.tokenizer.MakeToken(cardID)
		if err != nil {
			uc.record(ctx, "issue_token", start, err)
			return "", err
		}

		if uc.cardRepo.IsTokenTaken(ctx, tokenID) {
			continue
		}

		err = uc.cardRepo.Issue(ctx, cardID, tokenID)
		if errors.Is(err, domain.ErrTokenTaken) {
			continue
		}
		if err != nil {
			uc.record(ctx, "issue_token", start, err)
			return "", err
		}

		uc.record(ctx, "issue_token", start, nil)
		return tokenID, nil
	}

	uc.record(ctx, "issue_token", start, domain.ErrTokenCreateFailed)
	return "", domain.ErrTokenCreateFailed
}

// LookupCard returns the card id the token was issued for.
func (uc *TokenizationUseCase) LookupCard(ctx context.Context, tokenID string) (string, error) {
	start := time.Now()

	cardID, err := uc.cardRepo.OwnerOf(ctx, tokenID)
	uc.record(ctx, "lookup_card", start, err)
	if err != nil {
		return "", err
	}
	return cardID, nil
}

func (uc *TokenizationUseCase) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	uc.metrics.RecordOperation(ctx, "tokenization", operation, status)
	uc.metrics.RecordDuration(ctx, "tokenization", operation, time.Since(start), status)
}
