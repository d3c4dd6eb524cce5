package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cadenza/internal/cache"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public search endpoint used when none is configured.
const DefaultBaseURL = "https://api.deezer.com"

// Client searches a remote track catalog. Results are consumed read-only by
// the UI layer and never persisted; the core only supplies the data. A small
// TTL cache keeps repeated queries off the network.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.SearchCache
	logger  *logrus.Logger
}

// NewClient creates a search client. baseURL may be empty to use the
// default endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cache:   cache.NewSearchCache(),
		logger:  logger,
	}
}

// searchResponse mirrors the wire shape of the search endpoint.
type searchResponse struct {
	Data []models.RemoteTrack `json:"data"`
}

// Search returns remote tracks matching the query. An empty query yields an
// empty result without a network round trip.
func (c *Client) Search(ctx context.Context, query string) ([]models.RemoteTrack, error) {
	if query == "" {
		return nil, nil
	}

	if tracks, ok := c.cache.GetResults(query); ok {
		return tracks, nil
	}

	endpoint := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("query", query).Error("Remote search request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote search returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	c.cache.SetResults(query, parsed.Data)

	c.logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(parsed.Data),
	}).Debug("Remote search complete")
	return parsed.Data, nil
}
