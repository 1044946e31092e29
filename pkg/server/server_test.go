package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-resource-finder/pkg/cache"
	"github.com/kass/go-resource-finder/pkg/location"
	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/places"
	"github.com/kass/go-resource-finder/pkg/saved"
	"github.com/kass/go-resource-finder/pkg/storage"
)

const upstreamBody = `{"results":[
	{"place_id":"p1","name":"Community Kitchen","formatted_address":"1 Main St"},
	{"place_id":"p2","name":"Aid Center","address":"2 Oak Ave"}
]}`

func newTestServer(t *testing.T, withKey bool) http.Handler {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstreamBody))
	}))
	t.Cleanup(upstream.Close)

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	creds := places.NewCredentials(store)
	if withKey {
		require.NoError(t, creds.Set("test-key"))
	}
	finder := places.NewFinder(places.NewClient(upstream.URL, "test-host"), cache.New(store), creds)
	return New(finder, saved.New(store), location.New(store), creds).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	h := newTestServer(t, true)

	rec := do(t, h, http.MethodGet, "/search?q=food&category=food&sort=az", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results    []models.Card `json:"results"`
		Count      int           `json:"count"`
		Cached     bool          `json:"cached"`
		SavedCount int           `json:"saved_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.False(t, resp.Cached)
	assert.Equal(t, 0, resp.SavedCount)
	assert.Equal(t, "Aid Center", resp.Results[0].Name, "az sort applies")

	// Identical request is served from the cache.
	rec = do(t, h, http.MethodGet, "/search?q=food&category=food&sort=az", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
}

func TestSearchMissingKey(t *testing.T) {
	h := newTestServer(t, false)

	rec := do(t, h, http.MethodGet, "/search", "")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "missing API key", resp.Error)
}

func TestSearchRejectsBadSortMode(t *testing.T) {
	h := newTestServer(t, true)

	rec := do(t, h, http.MethodGet, "/search?sort=sideways", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveAndRemoveFlow(t *testing.T) {
	h := newTestServer(t, true)

	// A save before any search has no results to match against.
	rec := do(t, h, http.MethodPost, "/saved/p1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/search", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/saved/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rec1 models.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rec1))
	assert.Equal(t, "Community Kitchen", rec1.Name)
	assert.Equal(t, "1 Main St", rec1.Address)

	rec = do(t, h, http.MethodPost, "/saved/not-a-result", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/saved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Resources []models.Resource `json:"resources"`
		Count     int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = do(t, h, http.MethodDelete, "/saved/p1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/saved", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Count)
}

func TestLocationEndpoints(t *testing.T) {
	h := newTestServer(t, true)

	rec := do(t, h, http.MethodGet, "/location", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var coord models.Coordinate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coord))
	assert.Equal(t, location.Default, coord)

	rec = do(t, h, http.MethodPut, "/location", `{"lat":40.7,"lng":-74.0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/location", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coord))
	assert.Equal(t, models.Coordinate{Lat: 40.7, Lng: -74.0}, coord)
}

func TestLocationRejectsOutOfRange(t *testing.T) {
	h := newTestServer(t, true)

	rec := do(t, h, http.MethodPut, "/location", `{"lat":95,"lng":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/location", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The stored location is untouched.
	rec = do(t, h, http.MethodGet, "/location", "")
	var coord models.Coordinate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coord))
	assert.Equal(t, location.Default, coord)
}

func TestKeyEndpoint(t *testing.T) {
	h := newTestServer(t, false)

	rec := do(t, h, http.MethodPut, "/key", `{"key":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/key", `{"key":"abc123"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Searches work once a key is stored.
	rec = do(t, h, http.MethodGet, "/search", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
