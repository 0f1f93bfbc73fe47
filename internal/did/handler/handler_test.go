package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelgenesis/internal/did/keyseal"
	"pixelgenesis/internal/did/models"
	"pixelgenesis/internal/did/service"
	"pixelgenesis/internal/did/store"
	id "pixelgenesis/pkg/domain"
	"pixelgenesis/pkg/testutil"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	sealer, err := keyseal.New("handler-test")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(service.New(store.NewInMemoryStore(), sealer), logger)

	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAuthenticated(r)
	return r
}

func TestCreateThenResolve(t *testing.T) {
	router := newRouter(t)

	req := testutil.WithCaller(testutil.NewRequest(t, http.MethodPost, "/v1/dids"), "alice", "issuer")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[models.Document](t, rr)
	require.NoError(t, created.Validate())

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/dids/"+created.ID))
	testutil.AssertStatusOK(t, rr)
	resolved := testutil.UnmarshalResponse[models.Document](t, rr)
	assert.Equal(t, *created, *resolved)
}

func TestCreate_RequiresSubject(t *testing.T) {
	rr := testutil.DoRequest(newRouter(t), testutil.NewRequest(t, http.MethodPost, "/v1/dids"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestResolve_Errors(t *testing.T) {
	router := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/dids/not-a-did"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/dids/"+id.NewDID(id.DefaultDIDMethod).String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestMe(t *testing.T) {
	router := newRouter(t)

	rr := testutil.DoRequest(router, testutil.WithCaller(testutil.NewRequest(t, http.MethodGet, "/v1/dids/me"), "carol", "holder"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, testutil.WithCaller(testutil.NewRequest(t, http.MethodPost, "/v1/dids"), "carol", "holder"))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[models.Document](t, rr)

	rr = testutil.DoRequest(router, testutil.WithCaller(testutil.NewRequest(t, http.MethodGet, "/v1/dids/me"), "carol", "holder"))
	testutil.AssertStatusOK(t, rr)
	mine := testutil.UnmarshalResponse[models.Document](t, rr)
	assert.Equal(t, *created, *mine)

	rr = testutil.DoRequest(router, testutil.WithCaller(testutil.NewRequest(t, http.MethodGet, "/v1/dids/me"), "dave", "holder"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestMe_RequiresSubject(t *testing.T) {
	rr := testutil.DoRequest(newRouter(t), testutil.NewRequest(t, http.MethodGet, "/v1/dids/me"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}
