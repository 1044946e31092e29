package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-resource-finder/pkg/cache"
	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/storage"
)

var testLoc = models.Coordinate{Lat: 37.0, Lng: -122.0}

func TestClampRadius(t *testing.T) {
	assert.Equal(t, 1, ClampRadius(0))
	assert.Equal(t, 1, ClampRadius(-50))
	assert.Equal(t, 1, ClampRadius(1))
	assert.Equal(t, 2000, ClampRadius(2000))
	assert.Equal(t, 10000, ClampRadius(10000))
	assert.Equal(t, 10000, ClampRadius(99999))
}

func TestResolveCategory(t *testing.T) {
	assert.Equal(t, "restaurant", ResolveCategory("food"))
	assert.Equal(t, "lodging", ResolveCategory("shelter"))
	assert.Equal(t, "hospital", ResolveCategory("health"))
	assert.Equal(t, "school", ResolveCategory("education"))
	assert.Equal(t, "courthouse", ResolveCategory("legal"))
	assert.Equal(t, "", ResolveCategory("community services"))

	// Unrecognized categories mean no filter.
	assert.Equal(t, "", ResolveCategory("unicorns"))
	assert.Equal(t, "restaurant", ResolveCategory(" Food "))
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint("food bank", 2000, "restaurant", testLoc)

	variants := []string{
		Fingerprint("food banks", 2000, "restaurant", testLoc),
		Fingerprint("food bank", 2001, "restaurant", testLoc),
		Fingerprint("food bank", 2000, "hospital", testLoc),
		Fingerprint("food bank", 2000, "restaurant", models.Coordinate{Lat: 37.1, Lng: -122.0}),
		Fingerprint("food bank", 2000, "restaurant", models.Coordinate{Lat: 37.0, Lng: -122.1}),
	}
	for i, v := range variants {
		assert.NotEqual(t, base, v, "variant %d should change the fingerprint", i)
	}

	// Identical parameters collide on purpose.
	assert.Equal(t, base, Fingerprint("food bank", 2000, "restaurant", testLoc))
}

type fakeProvider struct {
	server *httptest.Server
	hits   atomic.Int64
	status int
	body   string
}

func newFakeProvider(t *testing.T, status int, body string) *fakeProvider {
	t.Helper()
	p := &fakeProvider{status: status, body: body}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		assert.Equal(t, "test-key", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "test-host", r.Header.Get("X-RapidAPI-Host"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		w.WriteHeader(p.status)
		w.Write([]byte(p.body))
	}))
	t.Cleanup(p.server.Close)
	return p
}

func newFinder(t *testing.T, provider *fakeProvider, withKey bool) *Finder {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	creds := NewCredentials(store)
	if withKey {
		require.NoError(t, creds.Set("test-key"))
	}
	client := NewClient(provider.server.URL, "test-host")
	return NewFinder(client, cache.New(store), creds)
}

const twoResults = `{"results":[
	{"place_id":"p1","name":"Community Kitchen","formatted_address":"1 Main St"},
	{"place_id":"p2","name":"Shelter House","address":"2 Oak Ave","location":{"lat":37.79,"lng":-122.41}}
]}`

func TestSearchCachesRepeatedQueries(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, twoResults)
	finder := newFinder(t, provider, true)

	first, err := finder.Search(context.Background(), "food", 2000, "food", testLoc)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Len(t, first.Places, 2)
	assert.Equal(t, int64(1), provider.hits.Load(), "first search issues exactly one call")

	second, err := finder.Search(context.Background(), "food", 2000, "food", testLoc)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Places, second.Places)
	assert.Equal(t, int64(1), provider.hits.Load(), "repeat search issues zero calls")
}

func TestSearchParameterChangeBypassesCache(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, twoResults)
	finder := newFinder(t, provider, true)

	_, err := finder.Search(context.Background(), "food", 2000, "food", testLoc)
	require.NoError(t, err)

	// A location change alone produces a different fingerprint.
	moved := models.Coordinate{Lat: 37.0, Lng: -122.5}
	result, err := finder.Search(context.Background(), "food", 2000, "food", moved)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, int64(2), provider.hits.Load())
}

func TestSearchMissingKeyFailsFast(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, twoResults)
	finder := newFinder(t, provider, false)

	result, err := finder.Search(context.Background(), "food", 2000, "food", testLoc)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Empty(t, result.Places)
	assert.Equal(t, int64(0), provider.hits.Load(), "no call is attempted without a key")
}

func TestSearchFetchFailure(t *testing.T) {
	provider := newFakeProvider(t, http.StatusInternalServerError, "oops")
	finder := newFinder(t, provider, true)

	result, err := finder.Search(context.Background(), "food", 2000, "food", testLoc)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Empty(t, result.Places)

	// Nothing was cached, so the next attempt goes back to the network.
	finder.Search(context.Background(), "food", 2000, "food", testLoc)
	assert.Equal(t, int64(2), provider.hits.Load())
}

func TestSearchAbsentResultsFieldIsEmpty(t *testing.T) {
	provider := newFakeProvider(t, http.StatusOK, `{}`)
	finder := newFinder(t, provider, true)

	result, err := finder.Search(context.Background(), "food", 2000, "food", testLoc)
	require.NoError(t, err)
	assert.NotNil(t, result.Places)
	assert.Empty(t, result.Places)

	// Even an empty result set is cached.
	finder.Search(context.Background(), "food", 2000, "food", testLoc)
	assert.Equal(t, int64(1), provider.hits.Load())
}

func TestSearchSendsTypeOnlyWhenMapped(t *testing.T) {
	var gotType, gotLocation string
	var hadType bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.URL.Query().Get("type")
		gotLocation = r.URL.Query().Get("location")
		_, hadType = r.URL.Query()["type"]
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	creds := NewCredentials(store)
	require.NoError(t, creds.Set("test-key"))
	finder := NewFinder(NewClient(server.URL, "test-host"), cache.New(store), creds)

	_, err = finder.Search(context.Background(), "q", 2000, "food", testLoc)
	require.NoError(t, err)
	assert.Equal(t, "restaurant", gotType)
	assert.Equal(t, "37,-122", gotLocation, "shortest round-trip float format")

	_, err = finder.Search(context.Background(), "q", 2000, "community services", testLoc)
	require.NoError(t, err)
	assert.False(t, hadType, "no filter means no type parameter")
}

func TestCredentials(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	creds := NewCredentials(store)

	_, ok := creds.Get()
	assert.False(t, ok)

	assert.Error(t, creds.Set(""), "empty key is rejected")

	require.NoError(t, creds.Set("abc123"))
	key, ok := creds.Get()
	assert.True(t, ok)
	assert.Equal(t, "abc123", key)

	require.NoError(t, creds.Clear())
	_, ok = creds.Get()
	assert.False(t, ok)
}
