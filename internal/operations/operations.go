package operations

import (
	"context"
	"fmt"

	"github.com/dvloznov/bank-operations/internal/domain"
	"github.com/dvloznov/bank-operations/internal/session"
)

// Fetch retrieves the operations of an account between startDate and
// endDate (YYYY-MM-DD). Without options it asks for DefaultCount
// operations, DefaultPageSize per page, with no pause between pages.
func Fetch(ctx context.Context, sess *session.Context, accountIdx, familyCode, startDate, endDate string, opts ...Option) (*domain.Operations, error) {
	req, err := NewRetrievalRequest(accountIdx, familyCode, startDate, endDate, opts...)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	ops, err := NewEngine(NewFetcher(sess)).Retrieve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	return domain.NewOperations(ops), nil
}

// FetchDeferred retrieves the pending deferred-debit operations of a card.
// The endpoint is not paginated: exactly one request is made.
func FetchDeferred(ctx context.Context, sess *session.Context, accountIdx, familyCode, cardIdx string) (*domain.Operations, error) {
	req := CardRequest{AccountIdx: accountIdx, FamilyCode: familyCode, CardIdx: cardIdx}

	ops, err := NewEngine(NewFetcher(sess)).RetrieveCard(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("FetchDeferred: %w", err)
	}
	return domain.NewOperations(ops), nil
}
