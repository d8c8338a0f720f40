// Package exchange adapts a frankfurter-style currency API to the rate
// source port.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"go.uber.org/zap"
)

// RateSource converts amounts via the exchange-rate HTTP API
type RateSource struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRateSource creates a new rate source
func NewRateSource(baseURL string, timeout time.Duration, logger *zap.Logger) *RateSource {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &RateSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type latestResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Rates  map[string]float64 `json:"rates"`
}

// Convert converts an amount between two currencies at the latest rate. Any
// failure is reported as upstream unavailability; the caller decides whether
// that is fatal.
func (s *RateSource) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}

	query := url.Values{}
	query.Set("amount", fmt.Sprintf("%v", amount))
	query.Set("base", from)
	query.Set("symbols", to)
	endpoint := fmt.Sprintf("%s/latest?%s", s.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", approval.ErrUpstreamUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Exchange rate request failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", approval.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("Exchange rate API returned error", zap.Int("status", resp.StatusCode))
		return 0, fmt.Errorf("%w: exchange API status %d", approval.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: malformed exchange response: %v", approval.ErrUpstreamUnavailable, err)
	}

	converted, ok := body.Rates[to]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %s", approval.ErrUpstreamUnavailable, to)
	}
	return converted, nil
}

// Verify interface compliance
var _ port.RateSource = (*RateSource)(nil)
