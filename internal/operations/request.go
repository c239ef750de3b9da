package operations

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Defaults of a windowed retrieval.
const (
	DefaultCount    = 100
	DefaultPageSize = 30
)

// RetrievalRequest describes one windowed retrieval.
type RetrievalRequest struct {
	AccountIdx string
	FamilyCode string
	Start      civil.Date
	End        civil.Date
	// Count is the number of operations wanted. It decides whether another
	// page is requested; a page is never cut short to match it.
	Count int
	// PageSize caps the entries asked for per page.
	PageSize int
	// Delay is waited between consecutive page requests. Zero disables it.
	Delay time.Duration
}

// Option adjusts a RetrievalRequest built by Fetch.
type Option func(*RetrievalRequest)

// WithCount sets the requested number of operations.
func WithCount(n int) Option {
	return func(r *RetrievalRequest) { r.Count = n }
}

// WithPageSize sets the per-page cap.
func WithPageSize(n int) Option {
	return func(r *RetrievalRequest) { r.PageSize = n }
}

// WithDelay sets the pause between page requests.
func WithDelay(d time.Duration) Option {
	return func(r *RetrievalRequest) { r.Delay = d }
}

// NewRetrievalRequest parses YYYY-MM-DD dates and applies defaults and options.
func NewRetrievalRequest(accountIdx, familyCode, startDate, endDate string, opts ...Option) (RetrievalRequest, error) {
	start, err := civil.ParseDate(startDate)
	if err != nil {
		return RetrievalRequest{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidRequest, startDate, err)
	}
	end, err := civil.ParseDate(endDate)
	if err != nil {
		return RetrievalRequest{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidRequest, endDate, err)
	}

	req := RetrievalRequest{
		AccountIdx: accountIdx,
		FamilyCode: familyCode,
		Start:      start,
		End:        end,
		Count:      DefaultCount,
		PageSize:   DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req, req.Validate()
}

// Validate checks the request invariants.
func (r RetrievalRequest) Validate() error {
	switch {
	case r.AccountIdx == "":
		return fmt.Errorf("%w: account index is required", ErrInvalidRequest)
	case r.FamilyCode == "":
		return fmt.Errorf("%w: family code is required", ErrInvalidRequest)
	case !r.Start.IsValid():
		return fmt.Errorf("%w: start date is missing or invalid", ErrInvalidRequest)
	case !r.End.IsValid():
		return fmt.Errorf("%w: end date is missing or invalid", ErrInvalidRequest)
	case r.Start.After(r.End):
		return fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidRequest, r.Start, r.End)
	case r.Count <= 0:
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRequest, r.Count)
	case r.PageSize <= 0:
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidRequest, r.PageSize)
	case r.Delay < 0:
		return fmt.Errorf("%w: delay must not be negative, got %s", ErrInvalidRequest, r.Delay)
	}
	return nil
}

// CardRequest describes one deferred-card retrieval.
type CardRequest struct {
	AccountIdx string
	FamilyCode string
	CardIdx    string
}

// Validate checks that all identifiers are present.
func (r CardRequest) Validate() error {
	switch {
	case r.AccountIdx == "":
		return fmt.Errorf("%w: account index is required", ErrInvalidRequest)
	case r.FamilyCode == "":
		return fmt.Errorf("%w: family code is required", ErrInvalidRequest)
	case r.CardIdx == "":
		return fmt.Errorf("%w: card index is required", ErrInvalidRequest)
	}
	return nil
}
