package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shiphub/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from a marketplace API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// apiClient performs rate-limited JSON GETs against one marketplace.
type apiClient struct {
	code       integration.MarketplaceCode
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func newAPIClient(code integration.MarketplaceCode, timeoutSeconds int, requestsPerSecond float64, logger *zap.Logger) *apiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &apiClient{
		code: code,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(zap.String("marketplace", code.String())),
	}
}

// getJSON issues a GET and decodes the body into out. Numbers decode as
// json.Number so large identifiers keep their exact digits.
func (c *apiClient) getJSON(ctx context.Context, requestURL string, header http.Header, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrMarketplaceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrMarketplaceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", integration.ErrMarketplaceUnavailable, err)
	}

	c.logger.Debug("Marketplace request completed",
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &integration.UpstreamError{
			Marketplace: c.code,
			StatusCode:  resp.StatusCode,
			Body:        string(body),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrMarketplaceInvalidResponse, err)
	}
	return nil
}

// toRawOrders keeps the object elements of a decoded array
func toRawOrders(items []any) []integration.RawOrder {
	orders := make([]integration.RawOrder, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			orders = append(orders, integration.RawOrder(m))
		}
	}
	return orders
}
