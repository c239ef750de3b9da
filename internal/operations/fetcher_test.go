package operations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dvloznov/bank-operations/internal/fixtures"
	"github.com/dvloznov/bank-operations/internal/logger"
	"github.com/dvloznov/bank-operations/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegionalBank = "ca-test"

// bankServer serves two windowed pages of 30 and 20 entries and one card
// page of 3 entries. It counts the requests it receives.
type bankServer struct {
	*httptest.Server
	hits atomic.Int32

	mu      sync.Mutex
	queries []string
}

func (b *bankServer) record(r *http.Request) {
	b.hits.Add(1)
	b.mu.Lock()
	b.queries = append(b.queries, r.URL.RawQuery)
	b.mu.Unlock()
}

func (b *bankServer) Queries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

func newBankServer(t *testing.T) *bankServer {
	t.Helper()
	b := &bankServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/"+testRegionalBank+"/"+detailPath+"/"+windowedResource, func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if c, err := r.Cookie("JSESSIONID"); err != nil || c.Value != "abc" {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get(ParamCursor) == "" {
			writeJSON(t, w, map[string]any{
				"listeOperations":   entries(0, 30),
				"nextSetStartIndex": "X",
				"hasNext":           true,
			})
			return
		}
		writeJSON(t, w, map[string]any{
			"listeOperations": entries(30, 20),
			"hasNext":         false,
		})
	})
	mux.HandleFunc("/"+testRegionalBank+"/"+detailPath+"/"+cardResource, func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(t, w, entries(100, 3))
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newTestSession(t *testing.T, baseURL string, set *fixtures.Set) *session.Context {
	t.Helper()
	sess, err := session.New(session.Options{
		BaseURL:      baseURL,
		RegionalBank: testRegionalBank,
		Cookies:      []*http.Cookie{{Name: "JSESSIONID", Value: "abc"}},
		SSLVerify:    true,
		Fixtures:     set,
	})
	require.NoError(t, err)
	return sess
}

func writeFixture(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestFetch_Live(t *testing.T) {
	srv := newBankServer(t)
	sess := newTestSession(t, srv.URL, nil)

	ops, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31", WithCount(50))
	require.NoError(t, err)
	assert.Equal(t, 50, ops.Len())
	assert.EqualValues(t, 2, srv.hits.Load())

	for i, op := range ops.All() {
		assert.Equal(t, fmt.Sprintf("OP %d", i), op.Label())
	}

	queries := srv.Queries()
	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "dateFin=")
	assert.Contains(t, queries[1], "startIndex=X")
	assert.NotContains(t, queries[1], "dateFin=")
}

func TestFetch_LiveSinglePage(t *testing.T) {
	srv := newBankServer(t)
	sess := newTestSession(t, srv.URL, nil)

	ops, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31", WithCount(10))
	require.NoError(t, err)
	assert.Equal(t, 30, ops.Len())
	assert.EqualValues(t, 1, srv.hits.Load())
	assert.Contains(t, srv.Queries()[0], "count=10")
}

func TestFetch_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusInternalServerError)
	}))
	defer srv.Close()
	sess := newTestSession(t, srv.URL, nil)

	ops, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31")
	require.Error(t, err)
	assert.Nil(t, ops)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusInternalServerError, remote.StatusCode)
	assert.Contains(t, remote.Body, "maintenance")
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected":true}`)
	}))
	defer srv.Close()
	sess := newTestSession(t, srv.URL, nil)

	_, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetch_Replay(t *testing.T) {
	srv := newBankServer(t)
	dir := t.TempDir()
	data, err := json.Marshal(entries(0, 5))
	require.NoError(t, err)
	writeFixture(t, dir, "account-1-0_operations_mock.json", data)

	set := fixtures.NewSet(fixtures.NewDirStore(dir), nil, "", "")
	sess := newTestSession(t, srv.URL, set)

	ops, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, 5, ops.Len())
	assert.Zero(t, srv.hits.Load())

	again, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	first, err := ops.JSON()
	require.NoError(t, err)
	second, err := again.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, first, second)
}

func TestFetch_ReplayMissingFixture(t *testing.T) {
	srv := newBankServer(t)
	set := fixtures.NewSet(fixtures.NewDirStore(t.TempDir()), nil, "", "")
	sess := newTestSession(t, srv.URL, set)

	ops, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31")
	assert.ErrorIs(t, err, fixtures.ErrNotFound)
	assert.Nil(t, ops)
	assert.Zero(t, srv.hits.Load())
}

func TestFetch_ReplayRejectsEnvelope(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "account-1-0_operations_mock.json", []byte(`{"listeOperations":[]}`))

	set := fixtures.NewSet(fixtures.NewDirStore(dir), nil, "", "")
	sess := newTestSession(t, "http://unused.test", set)

	_, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetch_RecordsEntriesOnly(t *testing.T) {
	srv := newBankServer(t)
	dir := t.TempDir()
	set := fixtures.NewSet(nil, fixtures.NewDirStore(dir), "", "rec")
	sess := newTestSession(t, srv.URL, set)

	_, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31", WithCount(10))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "account-1-0_operations_rec.json"))
	require.NoError(t, err)

	var recorded []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &recorded))
	assert.Len(t, recorded, 30)
}

func TestFetch_ReadAndWriteTogether(t *testing.T) {
	srv := newBankServer(t)
	dir := t.TempDir()
	data, err := json.Marshal(entries(0, 4))
	require.NoError(t, err)
	writeFixture(t, dir, "account-1-0_operations_mock.json", data)

	store := fixtures.NewDirStore(dir)
	set := fixtures.NewSet(store, store, "mock", "copy")
	sess := newTestSession(t, srv.URL, set)

	ops, err := Fetch(context.Background(), sess, "0", "1", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, 4, ops.Len())
	assert.Zero(t, srv.hits.Load())

	copied, err := os.ReadFile(filepath.Join(dir, "account-1-0_operations_copy.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(copied))
}

func TestFetchDeferred_Live(t *testing.T) {
	srv := newBankServer(t)
	sess := newTestSession(t, srv.URL, nil)

	ops, err := FetchDeferred(context.Background(), sess, "0", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, 3, ops.Len())
	assert.EqualValues(t, 1, srv.hits.Load())
	assert.Equal(t, "grandeFamilleCode=1&compteIdx=0&carteIdx=2", srv.Queries()[0])
}

func TestFetchDeferred_ReplayAndRecord(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "card-2_operations_mock.json", []byte(`[]`))

	store := fixtures.NewDirStore(dir)
	set := fixtures.NewSet(store, store, "mock", "rec")
	sess := newTestSession(t, "http://unused.test", set)

	ops, err := FetchDeferred(context.Background(), sess, "0", "1", "2")
	require.NoError(t, err)
	assert.Zero(t, ops.Len())

	recorded, err := os.ReadFile(filepath.Join(dir, "card-2_operations_rec.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(recorded))
}

func TestFetcher_URL(t *testing.T) {
	sess, err := session.New(session.Options{BaseURL: "https://www.credit-agricole.fr/", RegionalBank: "ca-paris"})
	require.NoError(t, err)

	spec := Planner{}.Card(CardRequest{AccountIdx: "0", FamilyCode: "1", CardIdx: "2"})
	got, err := NewFetcher(sess).URL(spec)
	require.NoError(t, err)
	assert.Equal(t,
		"https://www.credit-agricole.fr/ca-paris/particulier/operations/synthese/detail-comptes/"+
			"jcr:content.n3.operations.encours.carte.debit.differe.json?grandeFamilleCode=1&compteIdx=0&carteIdx=2",
		got)
}

func TestFetch_LogsFixtureTraffic(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "card-2_operations_mock.json", []byte(`[]`))

	store := fixtures.NewDirStore(dir)
	sess := newTestSession(t, "http://unused.test", fixtures.NewSet(store, store, "mock", "rec"))

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	_, err := FetchDeferred(ctx, sess, "0", "1", "2")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Replaying fixture")
	assert.Contains(t, out, "card-2_operations_mock.json")
	assert.Contains(t, out, "Recorded fixture")
	assert.Contains(t, out, "card-2_operations_rec.json")
}
