package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureEntries = `[
	{"libelleOperation":"CB CARREFOUR","dateOperation":"2024-01-03","montant":-42.10},
	{"libelleOperation":"VIR SALAIRE","dateOperation":"2024-01-28","montant":2450.00}
]`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func replayDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("USE_MOCKS_DIR", dir)
	t.Setenv("WRITE_MOCKS_DIR", "")
	t.Setenv("CA_REGIONAL_BANK", "")
	return dir
}

func TestFetchCommand_Replay(t *testing.T) {
	dir := replayDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "account-1-0_operations_mock.json"), []byte(fixtureEntries), 0o644))

	out, err := runCLI(t, "fetch", "--account", "0", "--family", "1", "--start", "2024-01-01", "--end", "2024-01-31")
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "CB CARREFOUR", got[0]["libelleOperation"])
}

func TestFetchCardCommand_Replay(t *testing.T) {
	dir := replayDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "card-4_operations_mock.json"), []byte(fixtureEntries), 0o644))

	out, err := runCLI(t, "fetch-card", "--account", "0", "--family", "1", "--card", "4")
	require.NoError(t, err)

	var got []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 2)
}

func TestFetchCommand_MissingFixture(t *testing.T) {
	replayDir(t)

	_, err := runCLI(t, "fetch", "--account", "0", "--family", "1", "--start", "2024-01-01", "--end", "2024-01-31")
	assert.Error(t, err)
}

func TestFetchCommand_RequiresBank(t *testing.T) {
	t.Setenv("USE_MOCKS_DIR", "")
	t.Setenv("CA_REGIONAL_BANK", "")

	_, err := runCLI(t, "fetch", "--account", "0", "--family", "1", "--start", "2024-01-01", "--end", "2024-01-31")
	assert.Error(t, err)
}

func TestExportCommand_RequiresProject(t *testing.T) {
	replayDir(t)
	t.Setenv("BIGQUERY_PROJECT", "")

	file := filepath.Join(t.TempDir(), "ops.json")
	require.NoError(t, os.WriteFile(file, []byte(fixtureEntries), 0o644))

	_, err := runCLI(t, "export", "--account", "0", "--family", "1", "--file", file)
	assert.ErrorContains(t, err, "BIGQUERY_PROJECT")
}
