package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cryptodash/coin-backend/models"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/sirupsen/logrus"
)

// maxVisibleLabels bounds how many non-empty chart labels a series gets.
// Long windows return thousands of samples; labeling each one turns the
// axis into an unreadable smear, so past this count only every Nth point
// is labeled and the rest stay blank.
const maxVisibleLabels = 24

// ChartService is the CoinGecko client. It serves the one thing the
// second provider is used for: historical price series for the detail
// chart. CoinGecko keys coins by slug directly, so no re-keying happens
// here.
type ChartService struct {
	config      shared.ServiceConfig
	httpClient  *http.Client
	rateLimiter *shared.ProviderRateLimiter
	metrics     *shared.ServiceMetrics
	logger      *logrus.Entry
}

// NewChartService creates a chart service with the default CoinGecko configuration
func NewChartService() *ChartService {
	return NewChartServiceWithConfig(shared.NewCoinGeckoConfig())
}

// NewChartServiceWithConfig creates a chart service with custom configuration
func NewChartServiceWithConfig(config shared.ServiceConfig) *ChartService {
	httpClientFactory := shared.NewHTTPClientFactory(config.HTTPRequestTimeout)

	var metrics *shared.ServiceMetrics
	if config.EnableMetrics {
		metrics = shared.NewServiceMetrics("chart-service")
	}

	service := &ChartService{
		config:      config,
		httpClient:  httpClientFactory.CreateOptimizedHTTPClient(config.HTTPRequestTimeout),
		rateLimiter: shared.NewProviderRateLimiter(config.RequestRateLimit),
		metrics:     metrics,
		logger:      logrus.WithField("component", "ChartService"),
	}

	service.logger.WithFields(logrus.Fields{
		"base_url":     config.BaseURL,
		"http_timeout": config.HTTPRequestTimeout,
	}).Info("Chart service initialized")

	return service
}

// geckoMarketChartResponse carries [timestamp_ms, price] pairs.
type geckoMarketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// GetMarketChart fetches the USD price series for the given slug and
// lookback window and prepares chart labels for it. Labels and prices
// always have equal length.
func (s *ChartService) GetMarketChart(ctx context.Context, slug, days string) (*models.ChartSeries, error) {
	s.rateLimiter.EnforceRateLimit()

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", days)

	requestURL := fmt.Sprintf("%s/coins/%s/market_chart?%s", s.config.BaseURL, url.PathEscape(slug), params.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryUpstream, "REQUEST_BUILD", "chart-service", "GetMarketChart", false)
	}
	shared.SetProviderAPIHeaders(request, s.config.APIKeyHeader, "")

	startTime := time.Now()
	response, err := shared.ExecuteHTTPRequestWithRetry(s.httpClient, request, s.config.MaxRetryAttempts)
	if s.metrics != nil {
		s.metrics.RecordRequest(err == nil, time.Since(startTime))
	}
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryUpstream, "UPSTREAM_REQUEST", "chart-service", "GetMarketChart", true)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryNotFound,
			"COIN_NOT_FOUND",
			fmt.Sprintf("no chart data for slug %q", slug),
			"chart-service",
			"GetMarketChart",
			false,
			nil,
		)
	}

	if response.StatusCode != http.StatusOK {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryUpstream,
			"UPSTREAM_STATUS",
			fmt.Sprintf("provider returned HTTP %d", response.StatusCode),
			"chart-service",
			"GetMarketChart",
			false,
			nil,
		)
	}

	var chart geckoMarketChartResponse
	if err := json.NewDecoder(response.Body).Decode(&chart); err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryUpstream, "UPSTREAM_DECODE", "chart-service", "GetMarketChart", false)
	}

	series := buildChartSeries(chart.Prices, days)

	s.logger.WithFields(logrus.Fields{
		"slug":    slug,
		"days":    days,
		"samples": len(series.Prices),
	}).Debug("Fetched market chart")

	return series, nil
}

// buildChartSeries splits the [timestamp, price] pairs into a label slice
// and a price slice. Short series get a label per point; longer ones get
// a label on every Nth point with N chosen to keep roughly maxVisibleLabels
// readable labels regardless of series length.
func buildChartSeries(pairs [][]float64, days string) *models.ChartSeries {
	labels := make([]string, 0, len(pairs))
	prices := make([]float64, 0, len(pairs))

	step := 1
	if len(pairs) > maxVisibleLabels {
		step = (len(pairs) + maxVisibleLabels - 1) / maxVisibleLabels
	}

	for i, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		prices = append(prices, pair[1])
		if i%step == 0 {
			labels = append(labels, formatChartLabel(int64(pair[0]), days))
		} else {
			labels = append(labels, "")
		}
	}

	return &models.ChartSeries{Labels: labels, Prices: prices}
}

// formatChartLabel renders a timestamp in milliseconds as a clock time for
// the one-day window and a calendar date for everything longer.
func formatChartLabel(unixMillis int64, days string) string {
	t := time.UnixMilli(unixMillis)
	if days == "1" {
		return t.Format("3:04 PM")
	}
	return t.Format("Jan 2")
}
