package session

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvloznov/bank-operations/internal/fixtures"
)

// DefaultBaseURL is the public host of the bank's web interface.
const DefaultBaseURL = "https://www.credit-agricole.fr"

// Context is what an authenticated session hands to the retrieval code.
// It is a read-only value: fetches never modify it, and one Context may be
// reused for any number of retrievals.
type Context struct {
	baseURL      string
	regionalBank string
	cookies      []*http.Cookie
	sslVerify    bool
	fixtures     *fixtures.Set
	client       *http.Client
}

// Options configures New.
type Options struct {
	BaseURL      string
	RegionalBank string
	Cookies      []*http.Cookie
	// SSLVerify disables certificate checks when false.
	SSLVerify bool
	Timeout   time.Duration
	// Fixtures enables replay and/or recording. Nil means live only.
	Fixtures *fixtures.Set
	// HTTPClient overrides the client built from SSLVerify and Timeout.
	HTTPClient *http.Client
}

// New builds a session context. The base URL must be an absolute http(s) URL.
func New(opts Options) (*Context, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("New: parse base URL: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("New: base URL %q must be an absolute http(s) URL", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(opts.SSLVerify, opts.Timeout)
	}

	cookies := make([]*http.Cookie, 0, len(opts.Cookies))
	for _, c := range opts.Cookies {
		if c == nil {
			continue
		}
		cp := *c
		cookies = append(cookies, &cp)
	}

	return &Context{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		regionalBank: strings.Trim(opts.RegionalBank, "/"),
		cookies:      cookies,
		sslVerify:    opts.SSLVerify,
		fixtures:     opts.Fixtures,
		client:       client,
	}, nil
}

func newHTTPClient(sslVerify bool, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	if !sslVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// BaseURL returns the base host without trailing slash.
func (c *Context) BaseURL() string { return c.baseURL }

// RegionalBank returns the regional-bank path segment.
func (c *Context) RegionalBank() string { return c.regionalBank }

// SSLVerify reports whether TLS certificates are verified.
func (c *Context) SSLVerify() bool { return c.sslVerify }

// HTTPClient returns the client used for live fetches.
func (c *Context) HTTPClient() *http.Client { return c.client }

// Fixtures returns the fixture set, possibly nil.
func (c *Context) Fixtures() *fixtures.Set { return c.fixtures }

// UseMocks reports whether fetches are replayed from fixtures.
func (c *Context) UseMocks() bool { return c.fixtures.UseMocks() }

// WriteMocks reports whether fetched pages are recorded as fixtures.
func (c *Context) WriteMocks() bool { return c.fixtures.WriteMocks() }

// Cookies returns copies of the session cookies.
func (c *Context) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(c.cookies))
	for _, ck := range c.cookies {
		cp := *ck
		out = append(out, &cp)
	}
	return out
}

// AddCookies attaches the session cookies to req.
func (c *Context) AddCookies(req *http.Request) {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
}

// ParseCookieHeader parses a "name=value; name2=value2" header as captured
// from a logged-in browser or an authentication step.
func ParseCookieHeader(header string) ([]*http.Cookie, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return nil, fmt.Errorf("ParseCookieHeader: %w", err)
	}
	return cookies, nil
}
