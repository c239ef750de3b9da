package fixtures

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore keeps fixtures as files in a local directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a store rooted at dir. The directory is created on first write.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Dir returns the root directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// ReadJSONMock reads dir/name.
func (s *DirStore) ReadJSONMock(ctx context.Context, name string) ([]byte, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ReadJSONMock: %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ReadJSONMock: read %q: %w", path, err)
	}
	return data, nil
}

// WriteJSONMock writes data to dir/name, indented with two spaces when it is valid JSON.
func (s *DirStore) WriteJSONMock(ctx context.Context, name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("WriteJSONMock: create dir %q: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, indentJSON(data), 0o644); err != nil {
		return fmt.Errorf("WriteJSONMock: write %q: %w", path, err)
	}
	return nil
}

func indentJSON(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return data
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

var _ Store = (*DirStore)(nil)
