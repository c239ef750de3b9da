package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dvloznov/bank-operations/internal/logger"
	"github.com/dvloznov/bank-operations/internal/session"
)

// PageFetcher executes exactly one page request.
type PageFetcher interface {
	FetchPage(ctx context.Context, spec PageSpec) (*Page, error)
}

// Fetcher fetches pages for a session, replaying fixtures when the session
// has a replay source and recording pages when it has a record sink.
type Fetcher struct {
	sess *session.Context
}

// NewFetcher returns a fetcher bound to sess.
func NewFetcher(sess *session.Context) *Fetcher {
	return &Fetcher{sess: sess}
}

// FetchPage replays or fetches one page, then records it if asked to.
func (f *Fetcher) FetchPage(ctx context.Context, spec PageSpec) (*Page, error) {
	var (
		page *Page
		err  error
	)
	if f.sess.UseMocks() {
		page, err = f.replay(ctx, spec)
	} else {
		page, err = f.live(ctx, spec)
	}
	if err != nil {
		return nil, err
	}

	if f.sess.WriteMocks() {
		if err := f.record(ctx, spec, page); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func (f *Fetcher) replay(ctx context.Context, spec PageSpec) (*Page, error) {
	set := f.sess.Fixtures()
	name := spec.FixtureName(set.UseMockSuffix)

	data, err := set.ReadJSONMock(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: replay %s: %w", name, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("fixture", name).
		Str("kind", spec.Kind.String()).
		Msg("Replaying fixture")

	if spec.Kind == KindWindowed {
		data = wrapEnvelope(data)
	}
	page, err := decoderFor(spec.Kind)(data)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: fixture %s: %w", name, err)
	}
	return page, nil
}

// URL builds the live URL of spec.
func (f *Fetcher) URL(spec PageSpec) (string, error) {
	u, err := url.Parse(f.sess.BaseURL())
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	u = u.JoinPath(f.sess.RegionalBank(), detailPath, spec.Resource)
	u.RawQuery = spec.Params.Encode()
	return u.String(), nil
}

func (f *Fetcher) live(ctx context.Context, spec PageSpec) (*Page, error) {
	target, err := f.URL(spec)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	f.sess.AddCookies(req)

	log := logger.FromContext(ctx)
	log.Debug().
		Str("kind", spec.Kind.String()).
		Str("url", target).
		Msg("Fetching page")

	resp, err := f.sess.HTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("kind", spec.Kind.String()).
			Msg("Bank returned an error status")
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	page, err := decoderFor(spec.Kind)(body)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: %w", err)
	}
	return page, nil
}

// record stores the entries of page, never the envelope, under the write suffix.
func (f *Fetcher) record(ctx context.Context, spec PageSpec, page *Page) error {
	set := f.sess.Fixtures()
	name := spec.FixtureName(set.WriteMockSuffix)

	entries := page.Entries
	if entries == nil {
		entries = []json.RawMessage{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("FetchPage: encode fixture %s: %w", name, err)
	}
	if err := set.WriteJSONMock(ctx, name, data); err != nil {
		return fmt.Errorf("FetchPage: record %s: %w", name, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("fixture", name).
		Int("entries", len(entries)).
		Msg("Recorded fixture")
	return nil
}

var _ PageFetcher = (*Fetcher)(nil)
