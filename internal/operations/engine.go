package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/bank-operations/internal/domain"
	"github.com/dvloznov/bank-operations/internal/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine drives a PageFetcher through a retrieval, one page at a time.
type Engine struct {
	fetcher PageFetcher
	planner Planner
	sleep   func(ctx context.Context, d time.Duration) error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPlanner replaces the default planner (local time zone).
func WithPlanner(p Planner) EngineOption {
	return func(e *Engine) { e.planner = p }
}

// WithSleep replaces the pause used between pages.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) EngineOption {
	return func(e *Engine) { e.sleep = sleep }
}

// NewEngine creates an engine around fetcher.
func NewEngine(fetcher PageFetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher: fetcher,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// fetchState is what the next page request depends on.
type fetchState struct {
	remaining int
	cursor    string
	hasCursor bool
}

// Retrieve walks the windowed pages of req and returns every entry in
// server order. Each page lowers the remaining count by the page size,
// whatever the number of entries it actually held. Retrieval stops when
// that count reaches zero, when the server reports no further page, or
// when it sends no cursor. On error nothing is returned.
func (e *Engine) Retrieve(ctx context.Context, req RetrievalRequest) ([]*domain.Operation, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("Retrieve: %w", err)
	}

	ctx, log := withRetrievalLogger(ctx, map[string]interface{}{
		"account_idx": req.AccountIdx,
		"family_code": req.FamilyCode,
	})
	log.Info().
		Str("start", req.Start.String()).
		Str("end", req.End.String()).
		Int("count", req.Count).
		Msg("Retrieving operations")

	var ops []*domain.Operation
	state := fetchState{remaining: req.Count}

	for pageNo := 1; ; pageNo++ {
		spec := e.planner.Windowed(req, state.cursor, state.hasCursor)
		page, err := e.fetcher.FetchPage(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("Retrieve: page %d: %w", pageNo, err)
		}

		decoded, err := decodeEntries(page)
		if err != nil {
			return nil, fmt.Errorf("Retrieve: page %d: %w", pageNo, err)
		}
		ops = append(ops, decoded...)

		remaining := state.remaining - req.PageSize
		log.Debug().
			Int("page", pageNo).
			Int("entries", len(decoded)).
			Int("remaining", remaining).
			Bool("has_next", page.More).
			Msg("Page fetched")

		if remaining <= 0 || !page.More || !page.HasCursor {
			break
		}
		state = fetchState{remaining: remaining, cursor: page.Cursor, hasCursor: true}

		if req.Delay > 0 {
			if err := e.sleep(ctx, req.Delay); err != nil {
				return nil, fmt.Errorf("Retrieve: wait before page %d: %w", pageNo+1, err)
			}
		}
	}

	log.Info().Int("operations", len(ops)).Msg("Operations retrieved")
	return ops, nil
}

// RetrieveCard fetches the single page of deferred-card operations.
func (e *Engine) RetrieveCard(ctx context.Context, req CardRequest) ([]*domain.Operation, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("RetrieveCard: %w", err)
	}

	ctx, log := withRetrievalLogger(ctx, map[string]interface{}{
		"account_idx": req.AccountIdx,
		"family_code": req.FamilyCode,
		"card_idx":    req.CardIdx,
	})
	log.Info().Msg("Retrieving card operations")

	page, err := e.fetcher.FetchPage(ctx, e.planner.Card(req))
	if err != nil {
		return nil, fmt.Errorf("RetrieveCard: %w", err)
	}
	ops, err := decodeEntries(page)
	if err != nil {
		return nil, fmt.Errorf("RetrieveCard: %w", err)
	}

	log.Info().Int("operations", len(ops)).Msg("Card operations retrieved")
	return ops, nil
}

func decodeEntries(page *Page) ([]*domain.Operation, error) {
	ops := make([]*domain.Operation, 0, len(page.Entries))
	for i, raw := range page.Entries {
		op, err := domain.NewOperation(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrMalformedResponse, i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// withRetrievalLogger tags the context logger with a fresh retrieval id
// and the given request fields.
func withRetrievalLogger(ctx context.Context, fields map[string]interface{}) (context.Context, zerolog.Logger) {
	fields[logger.RetrievalIDField] = uuid.NewString()
	log := logger.WithFields(logger.FromContext(ctx), fields)
	return logger.WithContext(ctx, log), log
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
