package kubo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelgenesis/internal/contentstore"
	"pixelgenesis/pkg/platform/retry"
)

var fastPolicy = retry.Policy{
	MaxAttempts:    2,
	AttemptTimeout: 200 * time.Millisecond,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     time.Millisecond,
}

// fakeNode implements the two Kubo RPC endpoints the client uses.
type fakeNode struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	failures atomic.Int32
	lastAdd  *http.Request
}

func newFakeNode() *fakeNode {
	return &fakeNode{blobs: make(map[string][]byte)}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if n.failures.Load() > 0 {
		n.failures.Add(-1)
		http.Error(w, "node busy", http.StatusServiceUnavailable)
		return
	}
	switch r.URL.Path {
	case "/api/v0/add":
		n.mu.Lock()
		n.lastAdd = r
		n.mu.Unlock()
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		loc, _ := contentstore.Locator(data)
		n.mu.Lock()
		n.blobs[loc] = data
		n.mu.Unlock()
		_ = json.NewEncoder(w).Encode(addResponse{Name: "credential.json", Hash: loc, Size: "1"})
	case "/api/v0/cat":
		n.mu.Lock()
		data, ok := n.blobs[r.URL.Query().Get("arg")]
		n.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(rpcError{Message: "block was not found locally (offline): ipld: could not find node", Code: 0})
			return
		}
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func newClient(t *testing.T, node http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithPolicy(fastPolicy))
}

func TestPutGet_RoundTrip(t *testing.T) {
	node := newFakeNode()
	c := newClient(t, node)
	ctx := context.Background()
	doc := []byte(`{"claims":{"name":"Ann"},"id":"vc:1"}`)

	loc, err := c.Put(ctx, doc)
	require.NoError(t, err)
	want, _ := contentstore.Locator(doc)
	assert.Equal(t, want, loc)

	q := node.lastAdd.URL.Query()
	assert.Equal(t, "1", q.Get("cid-version"))
	assert.Equal(t, "true", q.Get("raw-leaves"))

	got, err := c.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestPut_RetriesServerErrors(t *testing.T) {
	node := newFakeNode()
	node.failures.Store(1)
	c := newClient(t, node)

	_, err := c.Put(context.Background(), []byte("x"))
	require.NoError(t, err)
}

func TestPut_ExhaustedIsUnavailable(t *testing.T) {
	node := newFakeNode()
	node.failures.Store(10)
	c := newClient(t, node)

	_, err := c.Put(context.Background(), []byte("x"))
	require.ErrorIs(t, err, contentstore.ErrUnavailable)
}

func TestGet_UnknownBlockIsNotFound(t *testing.T) {
	c := newClient(t, newFakeNode())
	loc, _ := contentstore.Locator([]byte("never stored"))

	_, err := c.Get(context.Background(), loc)
	require.ErrorIs(t, err, contentstore.ErrNotFound)
	assert.NotErrorIs(t, err, contentstore.ErrUnavailable)
}

func TestGet_RejectsTamperedContent(t *testing.T) {
	node := newFakeNode()
	c := newClient(t, node)
	loc, _ := contentstore.Locator([]byte("original"))
	node.blobs[loc] = []byte("tampered")

	_, err := c.Get(context.Background(), loc)
	require.ErrorIs(t, err, contentstore.ErrIntegrity)
}

func TestGet_InvalidLocator(t *testing.T) {
	c := newClient(t, newFakeNode())
	_, err := c.Get(context.Background(), "%%%")
	require.ErrorIs(t, err, contentstore.ErrInvalidLocator)
}
