// Package remote implements the Supabase PostgREST client used to pull
// full table contents for mirroring.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/orbitshield/cachesync/internal/domain"
)

const (
	defaultPageSize = 1000
	// maxRecords is an absolute hard stop against runaway pagination.
	maxRecords = 50000
	userAgent  = "cachesync/1.0"
)

// Client implements domain.TableFetcher against the Supabase REST API.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domain.TableFetcher = (*Client)(nil)

// NewClient creates a Supabase REST client. The client carries no
// request timeout of its own; callers bound requests via context, so
// timeout policy stays with the orchestrator and resolver.
func NewClient(baseURL, apiKey string, pageSize int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		pageSize:   pageSize,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// FetchAll retrieves the complete current contents of a table,
// requesting bounded pages until a short page signals the end.
func (c *Client) FetchAll(ctx context.Context, table domain.Table) ([]domain.Record, error) {
	var all []domain.Record
	offset := 0
	page := 1

	for offset < maxRecords {
		batch, err := c.fetchPage(ctx, table, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)
		c.logger.Debug("fetched page", "table", table, "page", page, "batch", len(batch), "total", len(all))

		if len(batch) < c.pageSize {
			break
		}
		offset += len(batch)
		page++
	}

	c.logger.Info("fetched table", "table", table, "records", len(all))
	return all, nil
}

// fetchPage requests one bounded page using PostgREST range headers.
func (c *Client) fetchPage(ctx context.Context, table domain.Table, offset int) ([]domain.Record, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/%s?select=*", c.baseURL, table)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Range-Unit", "items")
	req.Header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+c.pageSize-1))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection refused, DNS failure, context deadline: all mean
		// the remote could not be reached right now.
		c.logger.Warn("supabase request failed", "table", table, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrRemoteUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
		// Fall through to decode
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// Past the end of the table
		return nil, nil
	case resp.StatusCode >= 500:
		c.logger.Warn("supabase server error", "table", table, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	default:
		// 4xx: the remote is up but refused this request. Permission
		// and malformed-query errors land here and are surfaced
		// distinctly so periodic re-sync does not mask them.
		c.logger.Error("supabase rejected request", "table", table, "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRemoteRejected, resp.StatusCode, string(body))
	}

	var records []domain.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", domain.ErrRemoteRejected, err)
	}
	return records, nil
}
