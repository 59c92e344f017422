package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/config"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"go.uber.org/zap"
)

// Fetcher retrieves the full upstream product catalog in one request.
type Fetcher struct {
	client *http.Client
	url    string
	apiKey string
	logger *zap.Logger
}

// NewFetcher creates a catalog fetcher
func NewFetcher(cfg config.CatalogConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: cfg.FetchTimeout},
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		logger: util.GetLogger(),
	}
}

// FetchCatalog returns the decoded list of raw records. A network
// failure or a non-array payload fails the whole ingestion run; no
// partial catalog is accepted.
func (f *Fetcher) FetchCatalog(ctx context.Context) ([]models.RawProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog fetch failed: unexpected status %d", resp.StatusCode)
	}

	var raw []models.RawProduct
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("catalog payload is not a product array: %w", err)
	}

	f.logger.Info("Fetched upstream catalog", zap.Int("records", len(raw)))
	return raw, nil
}
