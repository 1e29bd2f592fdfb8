package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cryptodash/coin-backend/models"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MarketService is the CoinMarketCap client and the merge layer on top of
// it. The provider splits coin data across three endpoints with different
// keys: listings are a ranked array, info and quotes come back as maps
// keyed by the provider-internal numeric id. Merging happens here so
// handlers only ever see assembled records.
type MarketService struct {
	config       shared.ServiceConfig
	apiKey       string
	detailAPIKey string
	httpClient   *http.Client
	rateLimiter  *shared.ProviderRateLimiter
	metrics      *shared.ServiceMetrics
	logger       *logrus.Entry
}

// NewMarketService creates a market service with the default CoinMarketCap
// configuration. apiKey serves the list/map endpoints, detailAPIKey the
// info/quotes endpoints; the split keeps per-user traffic from eating the
// credit budget of the landing-page calls.
func NewMarketService(apiKey, detailAPIKey string) *MarketService {
	return NewMarketServiceWithConfig(apiKey, detailAPIKey, shared.NewCoinMarketCapConfig())
}

// NewMarketServiceWithConfig creates a market service with custom configuration
func NewMarketServiceWithConfig(apiKey, detailAPIKey string, config shared.ServiceConfig) *MarketService {
	httpClientFactory := shared.NewHTTPClientFactory(config.HTTPRequestTimeout)

	var metrics *shared.ServiceMetrics
	if config.EnableMetrics {
		metrics = shared.NewServiceMetrics("market-service")
	}

	service := &MarketService{
		config:       config,
		apiKey:       apiKey,
		detailAPIKey: detailAPIKey,
		httpClient:   httpClientFactory.CreateOptimizedHTTPClient(config.HTTPRequestTimeout),
		rateLimiter:  shared.NewProviderRateLimiter(config.RequestRateLimit),
		metrics:      metrics,
		logger:       logrus.WithField("component", "MarketService"),
	}

	service.logger.WithFields(logrus.Fields{
		"base_url":     config.BaseURL,
		"http_timeout": config.HTTPRequestTimeout,
		"rate_limit":   config.RequestRateLimit,
	}).Info("Market service initialized")

	return service
}

// Metrics exposes the service metrics tracker, nil when disabled.
func (s *MarketService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// Provider wire types. Quotes are nested one level deeper than anything
// else ("quote" -> "USD" -> fields); pointers keep absent upstream values
// distinguishable from zero.

type cmcQuoteUSD struct {
	Price             *float64 `json:"price"`
	Volume24h         *float64 `json:"volume_24h"`
	VolumeChange24h   *float64 `json:"volume_change_24h"`
	PercentChange1h   *float64 `json:"percent_change_1h"`
	PercentChange24h  *float64 `json:"percent_change_24h"`
	PercentChange7d   *float64 `json:"percent_change_7d"`
	PercentChange30d  *float64 `json:"percent_change_30d"`
	PercentChange90d  *float64 `json:"percent_change_90d"`
	PercentChange365d *float64 `json:"percent_change_365d"`
	MarketCap         *float64 `json:"market_cap"`
}

type cmcQuoteMap struct {
	USD cmcQuoteUSD `json:"USD"`
}

type cmcListing struct {
	ID                int         `json:"id"`
	Name              string      `json:"name"`
	Symbol            string      `json:"symbol"`
	Slug              string      `json:"slug"`
	CmcRank           int         `json:"cmc_rank"`
	CirculatingSupply *float64    `json:"circulating_supply"`
	Quote             cmcQuoteMap `json:"quote"`
}

type cmcListingsResponse struct {
	Data []cmcListing `json:"data"`
}

type cmcURLs struct {
	Website []string `json:"website"`
}

type cmcInfoRecord struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Slug        string  `json:"slug"`
	Logo        *string `json:"logo"`
	Description string  `json:"description"`
	URLs        cmcURLs `json:"urls"`
}

type cmcInfoResponse struct {
	Data map[string]cmcInfoRecord `json:"data"`
}

type cmcQuoteRecord struct {
	ID                int         `json:"id"`
	Name              string      `json:"name"`
	Symbol            string      `json:"symbol"`
	Slug              string      `json:"slug"`
	CmcRank           int         `json:"cmc_rank"`
	MaxSupply         *float64    `json:"max_supply"`
	CirculatingSupply *float64    `json:"circulating_supply"`
	TotalSupply       *float64    `json:"total_supply"`
	Quote             cmcQuoteMap `json:"quote"`
}

type cmcQuotesResponse struct {
	Data map[string]cmcQuoteRecord `json:"data"`
}

type cmcMapResponse struct {
	Data []models.CoinIdentifier `json:"data"`
}

// getJSON performs one provider call: rate limit, API-key header, retry on
// retryable failures, JSON decode into out.
func (s *MarketService) getJSON(ctx context.Context, apiKey, path string, params url.Values, out interface{}) error {
	s.rateLimiter.EnforceRateLimit()

	requestURL := s.config.BaseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryUpstream, "REQUEST_BUILD", "market-service", path, false)
	}
	shared.SetProviderAPIHeaders(request, s.config.APIKeyHeader, apiKey)

	startTime := time.Now()
	response, err := shared.ExecuteHTTPRequestWithRetry(s.httpClient, request, s.config.MaxRetryAttempts)
	if s.metrics != nil {
		s.metrics.RecordRequest(err == nil, time.Since(startTime))
	}
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryUpstream, "UPSTREAM_REQUEST", "market-service", path, true)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		if s.metrics != nil {
			s.metrics.IncrementCustomCounter("upstream_non_200")
		}
		return shared.NewServiceError(
			shared.ErrorCategoryUpstream,
			"UPSTREAM_STATUS",
			fmt.Sprintf("provider returned HTTP %d for %s", response.StatusCode, path),
			"market-service",
			path,
			false,
			nil,
		)
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return shared.WrapError(err, shared.ErrorCategoryUpstream, "UPSTREAM_DECODE", "market-service", path, false)
	}

	return nil
}

// GetTopListings returns the top-n coins in listing rank order, each
// merged with its logo from the info endpoint. Merge key is the slug:
// listings and info agree on slugs within one fetch cycle even though the
// info response is keyed by numeric id. Any upstream failure degrades to
// an empty slice so the landing page renders an empty table instead of an
// error.
func (s *MarketService) GetTopListings(ctx context.Context, limit int) []models.CoinSummary {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))

	var listings cmcListingsResponse
	if err := s.getJSON(ctx, s.apiKey, "/listings/latest", params, &listings); err != nil {
		s.logger.WithError(err).Error("Failed to fetch top listings, returning empty result")
		return []models.CoinSummary{}
	}

	slugs := make([]string, 0, len(listings.Data))
	for _, listing := range listings.Data {
		slugs = append(slugs, listing.Slug)
	}

	infoParams := url.Values{}
	infoParams.Set("slug", strings.Join(slugs, ","))

	var info cmcInfoResponse
	if err := s.getJSON(ctx, s.apiKey, "/info", infoParams, &info); err != nil {
		s.logger.WithError(err).Error("Failed to fetch coin info for listings, returning empty result")
		return []models.CoinSummary{}
	}

	// Re-key info records by slug; the response map is keyed by numeric id.
	logoBySlug := make(map[string]*string, len(info.Data))
	for _, infoRecord := range info.Data {
		logoBySlug[infoRecord.Slug] = infoRecord.Logo
	}

	summaries := make([]models.CoinSummary, 0, len(listings.Data))
	for _, listing := range listings.Data {
		usd := listing.Quote.USD
		summaries = append(summaries, models.CoinSummary{
			ID:                listing.ID,
			Name:              listing.Name,
			Slug:              listing.Slug,
			Symbol:            listing.Symbol,
			CmcRank:           listing.CmcRank,
			Price:             usd.Price,
			PercentChange1h:   usd.PercentChange1h,
			PercentChange24h:  usd.PercentChange24h,
			PercentChange7d:   usd.PercentChange7d,
			Volume24h:         usd.Volume24h,
			MarketCap:         usd.MarketCap,
			CirculatingSupply: listing.CirculatingSupply,
			Logo:              logoBySlug[listing.Slug],
		})
	}

	s.logger.WithField("count", len(summaries)).Debug("Merged top listings with logos")
	return summaries
}

// GetCoinDetail fetches the info and quotes records for one slug and
// merges them. Both responses arrive as a single-entry map keyed by the
// internal id; the sole value is taken from each. Provider slugs are
// lowercase, so the input is lowercased before the lookup.
func (s *MarketService) GetCoinDetail(ctx context.Context, slug string) (*models.CoinDetail, error) {
	slug = strings.ToLower(slug)

	params := url.Values{}
	params.Set("slug", slug)

	var info cmcInfoResponse
	if err := s.getJSON(ctx, s.detailAPIKey, "/info", params, &info); err != nil {
		return nil, err
	}

	var quotes cmcQuotesResponse
	if err := s.getJSON(ctx, s.detailAPIKey, "/quotes/latest", params, &quotes); err != nil {
		return nil, err
	}

	infoRecord, ok := soleInfoRecord(info.Data)
	if !ok {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryNotFound,
			"COIN_NOT_FOUND",
			fmt.Sprintf("no coin info for slug %q", slug),
			"market-service",
			"GetCoinDetail",
			false,
			nil,
		)
	}

	quoteRecord, ok := soleQuoteRecord(quotes.Data)
	if !ok {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryNotFound,
			"COIN_NOT_FOUND",
			fmt.Sprintf("no quote for slug %q", slug),
			"market-service",
			"GetCoinDetail",
			false,
			nil,
		)
	}

	detail := mergeCoinDetail(infoRecord, &quoteRecord)
	return &detail, nil
}

// GetFavoriteBatch resolves a set of favorite slugs with exactly two
// provider calls, info and quotes for the whole comma-joined slug list,
// issued in parallel. One call per favorite would multiply provider
// credits by the favorite count. Both responses are keyed by internal id,
// which is the join key of the merge. Slugs the provider no longer knows
// simply yield no record and are absent from the result.
func (s *MarketService) GetFavoriteBatch(ctx context.Context, slugs []string) ([]models.CoinDetail, error) {
	if len(slugs) == 0 {
		return []models.CoinDetail{}, nil
	}

	params := url.Values{}
	params.Set("slug", strings.Join(slugs, ","))

	var info cmcInfoResponse
	var quotes cmcQuotesResponse

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.getJSON(groupCtx, s.detailAPIKey, "/info", params, &info)
	})
	group.Go(func() error {
		return s.getJSON(groupCtx, s.detailAPIKey, "/quotes/latest", params, &quotes)
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	details := make([]models.CoinDetail, 0, len(info.Data))
	for key, infoRecord := range info.Data {
		var quoteRecord *cmcQuoteRecord
		if quote, ok := quotes.Data[key]; ok {
			quoteRecord = &quote
		}
		details = append(details, mergeCoinDetail(infoRecord, quoteRecord))
	}

	// Map iteration order is random; keep the response stable.
	sort.Slice(details, func(i, j int) bool { return details[i].ID < details[j].ID })

	s.logger.WithFields(logrus.Fields{
		"requested": len(slugs),
		"resolved":  len(details),
	}).Debug("Merged favorite batch")

	return details, nil
}

// GetCoinMap fetches the full coin identifier map. This is the expensive
// call behind the coin index cache; nothing else should invoke it.
func (s *MarketService) GetCoinMap(ctx context.Context) ([]models.CoinIdentifier, error) {
	var coinMap cmcMapResponse
	if err := s.getJSON(ctx, s.apiKey, "/map", nil, &coinMap); err != nil {
		return nil, err
	}
	return coinMap.Data, nil
}

func soleInfoRecord(data map[string]cmcInfoRecord) (cmcInfoRecord, bool) {
	for _, record := range data {
		return record, true
	}
	return cmcInfoRecord{}, false
}

func soleQuoteRecord(data map[string]cmcQuoteRecord) (cmcQuoteRecord, bool) {
	for _, record := range data {
		return record, true
	}
	return cmcQuoteRecord{}, false
}

// mergeCoinDetail joins an info record with its quote record. A nil quote
// leaves the numeric fields null rather than dropping the coin.
func mergeCoinDetail(info cmcInfoRecord, quote *cmcQuoteRecord) models.CoinDetail {
	detail := models.CoinDetail{
		ID:          info.ID,
		Name:        info.Name,
		Slug:        info.Slug,
		Symbol:      info.Symbol,
		Logo:        info.Logo,
		Description: info.Description,
	}

	if len(info.URLs.Website) > 0 {
		website := info.URLs.Website[0]
		detail.Website = &website
	}

	if quote != nil {
		usd := quote.Quote.USD
		detail.CmcRank = quote.CmcRank
		detail.MaxSupply = quote.MaxSupply
		detail.CirculatingSupply = quote.CirculatingSupply
		detail.TotalSupply = quote.TotalSupply
		detail.Price = usd.Price
		detail.MarketCap = usd.MarketCap
		detail.Volume24h = usd.Volume24h
		detail.VolumeChange24h = usd.VolumeChange24h
		detail.PercentChange1h = usd.PercentChange1h
		detail.PercentChange24h = usd.PercentChange24h
		detail.PercentChange7d = usd.PercentChange7d
		detail.PercentChange30d = usd.PercentChange30d
		detail.PercentChange90d = usd.PercentChange90d
		detail.PercentChange365d = usd.PercentChange365d
	}

	return detail
}
