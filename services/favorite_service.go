package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cryptodash/coin-backend/models"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/sirupsen/logrus"
)

// FavoriteService owns the favorite_coin table and the merge of favorite
// rows with live provider data.
type FavoriteService struct {
	db     *sql.DB
	market *MarketService
	logger *logrus.Entry
}

// NewFavoriteService creates a new favorite service
func NewFavoriteService(db *sql.DB, market *MarketService) *FavoriteService {
	return &FavoriteService{
		db:     db,
		market: market,
		logger: logrus.WithField("component", "FavoriteService"),
	}
}

// List returns the raw favorite rows for a user
func (s *FavoriteService) List(ctx context.Context, userID int) ([]models.FavoriteCoin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, coin_name, symbol, slug, created_at
		 FROM favorite_coin WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "FAVORITES_QUERY", "favorite-service", "List", true)
	}
	defer rows.Close()

	favorites := make([]models.FavoriteCoin, 0)
	for rows.Next() {
		var favorite models.FavoriteCoin
		if err := rows.Scan(&favorite.ID, &favorite.UserID, &favorite.CoinName, &favorite.Symbol, &favorite.Slug, &favorite.CreatedAt); err != nil {
			return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "FAVORITES_SCAN", "favorite-service", "List", false)
		}
		favorites = append(favorites, favorite)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "FAVORITES_ROWS", "favorite-service", "List", true)
	}

	return favorites, nil
}

// Add inserts a favorite row. A row with the same (userID, symbol, slug)
// already present yields a conflict; the unique index backs up this check
// against concurrent inserts.
func (s *FavoriteService) Add(ctx context.Context, userID int, coinName, symbol, slug string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM favorite_coin WHERE user_id = $1 AND symbol = $2 AND slug = $3
		)`,
		userID, symbol, slug,
	).Scan(&exists)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "FAVORITE_CHECK", "favorite-service", "Add", true)
	}

	if exists {
		return shared.NewServiceError(
			shared.ErrorCategoryConflict,
			"FAVORITE_EXISTS",
			fmt.Sprintf("coin %s already in favorites", symbol),
			"favorite-service",
			"Add",
			false,
			nil,
		)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO favorite_coin (coin_name, symbol, slug, user_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT ON CONSTRAINT favorite_coin_user_symbol_slug_key DO NOTHING`,
		coinName, symbol, slug, userID,
	)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "FAVORITE_INSERT", "favorite-service", "Add", true)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"symbol":  symbol,
		"slug":    slug,
	}).Info("Favorite added")

	return nil
}

// Remove deletes a favorite row, reporting not-found when nothing matched
func (s *FavoriteService) Remove(ctx context.Context, userID int, symbol, slug string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM favorite_coin WHERE user_id = $1 AND symbol = $2 AND slug = $3`,
		userID, symbol, slug,
	)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "FAVORITE_DELETE", "favorite-service", "Remove", true)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "FAVORITE_DELETE", "favorite-service", "Remove", false)
	}

	if affected == 0 {
		return shared.NewServiceError(
			shared.ErrorCategoryNotFound,
			"FAVORITE_NOT_FOUND",
			fmt.Sprintf("coin %s not in favorites", symbol),
			"favorite-service",
			"Remove",
			false,
			nil,
		)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"symbol":  symbol,
		"slug":    slug,
	}).Info("Favorite removed")

	return nil
}

// GetFavoriteDetails resolves all of a user's favorites to full coin
// detail records. Zero favorites short-circuits without touching the
// provider; otherwise all slugs go upstream in one batch. A favorite the
// provider no longer resolves (delisted coin) is absent from the result;
// the raw List endpoint still shows the row so the client can remove it.
func (s *FavoriteService) GetFavoriteDetails(ctx context.Context, userID int) ([]models.CoinDetail, error) {
	favorites, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(favorites) == 0 {
		return []models.CoinDetail{}, nil
	}

	slugs := make([]string, 0, len(favorites))
	for _, favorite := range favorites {
		slugs = append(slugs, favorite.Slug)
	}

	details, err := s.market.GetFavoriteBatch(ctx, slugs)
	if err != nil {
		return nil, err
	}

	if len(details) < len(favorites) {
		s.logger.WithFields(logrus.Fields{
			"user_id":   userID,
			"favorites": len(favorites),
			"resolved":  len(details),
		}).Warn("Some favorites did not resolve upstream")
	}

	return details, nil
}
