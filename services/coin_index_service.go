package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cryptodash/coin-backend/models"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CoinMapFetcher loads the full coin identifier map from the provider.
type CoinMapFetcher func(ctx context.Context) ([]models.CoinIdentifier, error)

// CoinIndexService holds the full coin identifier map behind a TTL. The
// map is large (~10k entries) and costs real provider credits per fetch,
// so it is loaded lazily, refreshed at most once per TTL, and concurrent
// refreshes are coalesced to a single upstream call. A failed refresh
// keeps serving the stale entries; the error only surfaces when there is
// nothing cached at all.
type CoinIndexService struct {
	fetch CoinMapFetcher
	ttl   time.Duration
	now   func() time.Time

	mutex     sync.RWMutex
	entries   []models.CoinIdentifier
	fetchedAt time.Time

	group  singleflight.Group
	logger *logrus.Entry
}

// NewCoinIndexService creates a coin index backed by the market service's
// map endpoint.
func NewCoinIndexService(market *MarketService, ttl time.Duration) *CoinIndexService {
	return NewCoinIndexServiceWithFetcher(market.GetCoinMap, ttl)
}

// NewCoinIndexServiceWithFetcher creates a coin index with a custom
// fetcher. Tests substitute a fake fetcher and clock.
func NewCoinIndexServiceWithFetcher(fetch CoinMapFetcher, ttl time.Duration) *CoinIndexService {
	return &CoinIndexService{
		fetch:  fetch,
		ttl:    ttl,
		now:    time.Now,
		logger: logrus.WithField("component", "CoinIndexService"),
	}
}

// GetAllIdentifiers returns the cached identifier map, refreshing it from
// the provider when the cache is empty or older than the TTL.
func (s *CoinIndexService) GetAllIdentifiers(ctx context.Context) ([]models.CoinIdentifier, error) {
	s.mutex.RLock()
	entries, fetchedAt := s.entries, s.fetchedAt
	s.mutex.RUnlock()

	if len(entries) > 0 && s.now().Sub(fetchedAt) < s.ttl {
		return entries, nil
	}

	return s.refresh(ctx)
}

// Refresh unconditionally refetches the identifier map. The background
// warm-refresh job calls this so interactive requests rarely pay for the
// map fetch; the lazy path above stays authoritative either way.
func (s *CoinIndexService) Refresh(ctx context.Context) (int, error) {
	entries, err := s.refresh(ctx)
	return len(entries), err
}

// refresh coalesces concurrent callers onto one upstream fetch. The
// caller that lost the race still gets the winner's result.
func (s *CoinIndexService) refresh(ctx context.Context) ([]models.CoinIdentifier, error) {
	result, err, coalesced := s.group.Do("coin-map", func() (interface{}, error) {
		fetched, fetchErr := s.fetch(ctx)
		if fetchErr != nil {
			// Keep whatever is cached; stale beats empty.
			s.mutex.RLock()
			stale := s.entries
			s.mutex.RUnlock()

			if len(stale) > 0 {
				s.logger.WithError(fetchErr).Warn("Coin map refresh failed, serving stale entries")
				return stale, nil
			}
			return nil, shared.WrapError(fetchErr, shared.ErrorCategoryUpstream, "COIN_MAP_FETCH", "coin-index-service", "refresh", true)
		}

		s.mutex.Lock()
		s.entries = fetched
		s.fetchedAt = s.now()
		s.mutex.Unlock()

		s.logger.WithField("entries", len(fetched)).Info("Coin index refreshed")
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}

	if coalesced {
		s.logger.Debug("Coin map refresh coalesced with concurrent caller")
	}

	return result.([]models.CoinIdentifier), nil
}

// Search filters the identifier map by case-insensitive substring match
// on coin name and symbol. An empty query returns the full list.
func (s *CoinIndexService) Search(ctx context.Context, query string) ([]models.CoinIdentifier, error) {
	entries, err := s.GetAllIdentifiers(ctx)
	if err != nil {
		return nil, err
	}

	if query == "" {
		return entries, nil
	}

	needle := strings.ToLower(query)
	matches := make([]models.CoinIdentifier, 0)
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Name), needle) ||
			strings.Contains(strings.ToLower(entry.Symbol), needle) {
			matches = append(matches, entry)
		}
	}

	return matches, nil
}
