package fixtures

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// DefaultSuffix is used when no suffix is configured.
const DefaultSuffix = "mock"

// Config describes where fixtures are replayed from and recorded to.
// A location is a local directory or a gs://bucket/prefix URI; an empty
// location disables that side.
type Config struct {
	UseMocksDir     string
	WriteMocksDir   string
	UseMockSuffix   string
	WriteMockSuffix string
}

func (c Config) String() string {
	return fmt.Sprintf("MockConfig[useMocksDir=%q, writeMocksDir=%q, useMockSuffix=%q, writeMockSuffix=%q]",
		c.UseMocksDir, c.WriteMocksDir, c.UseMockSuffix, c.WriteMockSuffix)
}

// Enabled reports whether either side is configured.
func (c Config) Enabled() bool {
	return c.UseMocksDir != "" || c.WriteMocksDir != ""
}

// Set is the fixture capability handed to a session: an optional replay
// source and an optional record sink, each with its own suffix.
type Set struct {
	Reader          Store
	Writer          Store
	UseMockSuffix   string
	WriteMockSuffix string

	closers []func() error
}

// NewSet builds a set from explicit stores. Either store may be nil.
func NewSet(reader, writer Store, useSuffix, writeSuffix string) *Set {
	if useSuffix == "" {
		useSuffix = DefaultSuffix
	}
	if writeSuffix == "" {
		writeSuffix = DefaultSuffix
	}
	return &Set{
		Reader:          reader,
		Writer:          writer,
		UseMockSuffix:   useSuffix,
		WriteMockSuffix: writeSuffix,
	}
}

// Open resolves the configured locations into stores. A GCS client is
// created only when a location is a gs:// URI; opts are passed to it.
func Open(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Set, error) {
	set := NewSet(nil, nil, cfg.UseMockSuffix, cfg.WriteMockSuffix)

	var client *storage.Client
	open := func(location string) (Store, error) {
		if !IsGCSURI(location) {
			return NewDirStore(location), nil
		}
		bucket, prefix, err := ParseGCSURI(location)
		if err != nil {
			return nil, err
		}
		if client == nil {
			client, err = storage.NewClient(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("create storage client: %w", err)
			}
			set.closers = append(set.closers, client.Close)
		}
		return NewGCSStore(client, bucket, prefix), nil
	}

	if cfg.UseMocksDir != "" {
		reader, err := open(cfg.UseMocksDir)
		if err != nil {
			_ = set.Close()
			return nil, fmt.Errorf("Open: replay source: %w", err)
		}
		set.Reader = reader
	}
	if cfg.WriteMocksDir != "" {
		writer, err := open(cfg.WriteMocksDir)
		if err != nil {
			_ = set.Close()
			return nil, fmt.Errorf("Open: record sink: %w", err)
		}
		set.Writer = writer
	}
	return set, nil
}

// UseMocks reports whether fetches are replayed from fixtures.
func (s *Set) UseMocks() bool {
	return s != nil && s.Reader != nil
}

// WriteMocks reports whether fetched pages are recorded.
func (s *Set) WriteMocks() bool {
	return s != nil && s.Writer != nil
}

// ReadJSONMock reads fixture name from the replay source.
func (s *Set) ReadJSONMock(ctx context.Context, name string) ([]byte, error) {
	if !s.UseMocks() {
		return nil, fmt.Errorf("ReadJSONMock: no replay source configured")
	}
	return s.Reader.ReadJSONMock(ctx, name)
}

// WriteJSONMock writes fixture name to the record sink.
func (s *Set) WriteJSONMock(ctx context.Context, name string, data []byte) error {
	if !s.WriteMocks() {
		return fmt.Errorf("WriteJSONMock: no record sink configured")
	}
	return s.Writer.WriteJSONMock(ctx, name, data)
}

// Close releases clients created by Open.
func (s *Set) Close() error {
	if s == nil {
		return nil
	}
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
