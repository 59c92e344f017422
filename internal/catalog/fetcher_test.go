package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(url string) *Fetcher {
	return NewFetcher(config.CatalogConfig{
		URL:          url,
		APIKey:       "test-key",
		FetchTimeout: 5 * time.Second,
	})
}

func TestFetchCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"productNumber": "101", "productNameBold": "Brand A", "price": 100, "alcoholPercentage": 40, "volume": 700},
			{"productNumber": "102", "productNameBold": "Brand B", "price": 15, "alcoholPercentage": 5.2, "volume": 500}
		]`))
	}))
	defer srv.Close()

	raw, err := newTestFetcher(srv.URL).FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "101", raw[0].ProductNumber)
	assert.Equal(t, "Brand B", raw[1].ProductNameBold)
}

func TestFetchCatalogRejectsNonArrayPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "maintenance"}`))
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).FetchCatalog(context.Background())
	assert.Error(t, err)
}

func TestFetchCatalogFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).FetchCatalog(context.Background())
	assert.Error(t, err)
}

func TestFetchCatalogFailsOnUnreachableHost(t *testing.T) {
	_, err := newTestFetcher("http://127.0.0.1:1").FetchCatalog(context.Background())
	assert.Error(t, err)
}
