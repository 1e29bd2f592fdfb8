package handlers

import (
	"github.com/cryptodash/coin-backend/middleware"
	"github.com/cryptodash/coin-backend/models"
	"github.com/cryptodash/coin-backend/services"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type FavoriteHandler struct {
	favorites *services.FavoriteService
}

func NewFavoriteHandler(favorites *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// ListFavorites returns the raw favorite rows for the authenticated user
func (h *FavoriteHandler) ListFavorites(c *fiber.Ctx) error {
	user := middleware.UserFromContext(c)

	rows, err := h.favorites.List(c.Context(), user.ID)
	if err != nil {
		logrus.WithError(err).Error("Favorites query failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch favorites",
		})
	}

	return c.JSON(rows)
}

// GetFavoriteDetails returns the user's favorites merged with live
// market data. Favorites the provider no longer lists are omitted.
func (h *FavoriteHandler) GetFavoriteDetails(c *fiber.Ctx) error {
	user := middleware.UserFromContext(c)

	details, err := h.favorites.GetFavoriteDetails(c.Context(), user.ID)
	if err != nil {
		logrus.WithError(err).Error("Favorite details fetch failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch favorite coins",
		})
	}

	return c.JSON(details)
}

// AddFavorite stores a new favorite for the authenticated user
func (h *FavoriteHandler) AddFavorite(c *fiber.Ctx) error {
	user := middleware.UserFromContext(c)
	coinName := c.Params("name")

	var req models.AddFavoriteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if req.CoinName != "" {
		coinName = req.CoinName
	}
	if coinName == "" || req.Symbol == "" || req.Slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "coinName, symbol and slug are required",
		})
	}

	err := h.favorites.Add(c.Context(), user.ID, coinName, req.Symbol, req.Slug)
	if err != nil {
		if shared.CategoryOf(err) == shared.ErrorCategoryConflict {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Coin already in favorites",
			})
		}
		logrus.WithError(err).Error("Favorite insert failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to add favorite",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Coin added to favorites",
	})
}

// RemoveFavorite deletes a favorite for the authenticated user
func (h *FavoriteHandler) RemoveFavorite(c *fiber.Ctx) error {
	user := middleware.UserFromContext(c)

	var req models.RemoveFavoriteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if req.Symbol == "" || req.Slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "symbol and slug are required",
		})
	}

	err := h.favorites.Remove(c.Context(), user.ID, req.Symbol, req.Slug)
	if err != nil {
		if shared.CategoryOf(err) == shared.ErrorCategoryNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Coin not in favorites",
			})
		}
		logrus.WithError(err).Error("Favorite delete failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to remove favorite",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Coin removed from favorites",
	})
}
