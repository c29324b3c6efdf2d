package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"finance-service/internal/domain"
)

// PlatformFeedService pulls payment feeds from the platform integration
// layer for reconciliation. An empty base URL disables fetching; runs
// against a disabled feed reconcile nothing.
type PlatformFeedService struct {
	baseURL string
	client  *http.Client
}

// NewPlatformFeedService creates a new PlatformFeedService instance
func NewPlatformFeedService(baseURL string) *PlatformFeedService {
	return &PlatformFeedService{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchTransactions fetches a platform's payment feed since the given time
func (s *PlatformFeedService) FetchTransactions(ctx context.Context, platform string, since time.Time) ([]domain.ExternalTransaction, error) {
	if s.baseURL == "" {
		return []domain.ExternalTransaction{}, nil
	}

	endpoint := fmt.Sprintf("%s/platforms/%s/transactions", s.baseURL, url.PathEscape(platform))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	q := req.URL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s feed: %w", platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s feed returned status %d", platform, resp.StatusCode)
	}

	var feed struct {
		Transactions []domain.ExternalTransaction `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode %s feed: %w", platform, err)
	}

	return feed.Transactions, nil
}
