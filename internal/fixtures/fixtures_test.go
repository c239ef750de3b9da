package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "account-1-0_operations_mock.json", AccountKey("1", "0", "mock"))
	assert.Equal(t, "account-3-12_operations_v2.json", AccountKey("3", "12", "v2"))
	assert.Equal(t, "card-4_operations_mock.json", CardKey("4", "mock"))

	// Same identifying attributes and suffix resolve to the same name.
	assert.Equal(t, AccountKey("1", "0", "a"), AccountKey("1", "0", "a"))
	assert.NotEqual(t, AccountKey("1", "0", "a"), AccountKey("1", "0", "b"))
}

func TestDirStore_ReadMissing(t *testing.T) {
	store := NewDirStore(t.TempDir())

	_, err := store.ReadJSONMock(context.Background(), "card-0_operations_mock.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirStore_WriteThenRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "mocks")
	store := NewDirStore(dir)
	ctx := context.Background()

	data := []byte(`[{"libelleOperation":"A","montant":1.10}]`)
	require.NoError(t, store.WriteJSONMock(ctx, "card-1_operations_mock.json", data))

	onDisk, err := os.ReadFile(filepath.Join(dir, "card-1_operations_mock.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(onDisk), "[\n  {"), "expected indented JSON, got %s", onDisk)

	got, err := store.ReadJSONMock(ctx, "card-1_operations_mock.json")
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(got))
}

func TestDirStore_WriteNonJSONVerbatim(t *testing.T) {
	store := NewDirStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.WriteJSONMock(ctx, "x.json", []byte("not json")))
	got, err := store.ReadJSONMock(ctx, "x.json")
	require.NoError(t, err)
	assert.Equal(t, "not json", string(got))
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"gs://fixtures", "fixtures", "", false},
		{"gs://fixtures/", "fixtures", "", false},
		{"gs://fixtures/ca/mocks/", "fixtures", "ca/mocks", false},
		{"gs:///nobucket", "", "", true},
		{"/tmp/mocks", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, prefix, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantPrefix, prefix)
		})
	}
}

func TestGCSStore_ObjectName(t *testing.T) {
	assert.Equal(t, "card-1_operations_mock.json", NewGCSStore(nil, "b", "").ObjectName("card-1_operations_mock.json"))
	assert.Equal(t, "ca/mocks/card-1_operations_mock.json", NewGCSStore(nil, "b", "/ca/mocks/").ObjectName("card-1_operations_mock.json"))
}

func TestOpen_LocalDirs(t *testing.T) {
	useDir := t.TempDir()
	writeDir := t.TempDir()

	set, err := Open(context.Background(), Config{
		UseMocksDir:     useDir,
		WriteMocksDir:   writeDir,
		UseMockSuffix:   "baseline",
		WriteMockSuffix: "",
	})
	require.NoError(t, err)
	defer set.Close()

	assert.True(t, set.UseMocks())
	assert.True(t, set.WriteMocks())
	assert.Equal(t, "baseline", set.UseMockSuffix)
	assert.Equal(t, DefaultSuffix, set.WriteMockSuffix)

	ctx := context.Background()
	require.NoError(t, set.WriteJSONMock(ctx, "a.json", []byte(`[]`)))
	_, err = os.Stat(filepath.Join(writeDir, "a.json"))
	require.NoError(t, err)

	_, err = set.ReadJSONMock(ctx, "a.json")
	require.ErrorIs(t, err, ErrNotFound, "reads must come from the replay source only")
}

func TestOpen_Disabled(t *testing.T) {
	set, err := Open(context.Background(), Config{})
	require.NoError(t, err)

	assert.False(t, set.UseMocks())
	assert.False(t, set.WriteMocks())
	assert.Error(t, set.WriteJSONMock(context.Background(), "a.json", nil))
	assert.NoError(t, set.Close())
}

func TestOpen_BadGCSURI(t *testing.T) {
	_, err := Open(context.Background(), Config{UseMocksDir: "gs://"})
	require.Error(t, err)
}

func TestConfig_String(t *testing.T) {
	cfg := Config{UseMocksDir: "mocks", UseMockSuffix: "mock"}
	assert.Contains(t, cfg.String(), `useMocksDir="mocks"`)
	assert.True(t, cfg.Enabled())
	assert.False(t, Config{}.Enabled())
}

func TestGCSStore_Emulator(t *testing.T) {
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" {
		t.Skip("STORAGE_EMULATOR_HOST not set")
	}
	ctx := context.Background()

	set, err := Open(ctx, Config{
		UseMocksDir:   "gs://fixtures/roundtrip",
		WriteMocksDir: "gs://fixtures/roundtrip",
	})
	require.NoError(t, err)
	defer set.Close()

	require.NoError(t, set.WriteJSONMock(ctx, CardKey("9", "mock"), []byte(`[{"a":1}]`)))
	got, err := set.ReadJSONMock(ctx, CardKey("9", "mock"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"a":1}]`, string(got))

	_, err = set.ReadJSONMock(ctx, CardKey("missing", "mock"))
	require.ErrorIs(t, err, ErrNotFound)
}
