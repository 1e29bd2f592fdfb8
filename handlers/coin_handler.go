package handlers

import (
	"github.com/cryptodash/coin-backend/models"
	"github.com/cryptodash/coin-backend/services"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const topListingsLimit = 100

type CoinHandler struct {
	market *services.MarketService
	charts *services.ChartService
	index  *services.CoinIndexService
}

func NewCoinHandler(market *services.MarketService, charts *services.ChartService, index *services.CoinIndexService) *CoinHandler {
	return &CoinHandler{market: market, charts: charts, index: index}
}

// GetTopCoins returns the top 100 coins by market cap rank as a raw
// array. Upstream failures degrade to an empty array inside the
// service, so this endpoint never fails the page load.
func (h *CoinHandler) GetTopCoins(c *fiber.Ctx) error {
	coins := h.market.GetTopListings(c.Context(), topListingsLimit)
	return c.JSON(coins)
}

// Search filters the cached coin map by name or symbol substring
func (h *CoinHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")

	results, err := h.index.Search(c.Context(), query)
	if err != nil {
		logrus.WithError(err).Error("Coin search failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to search coins",
		})
	}

	return c.JSON(results)
}

// GetCoinChart returns the price history and detail record for one coin.
// The days query parameter defaults to 90.
func (h *CoinHandler) GetCoinChart(c *fiber.Ctx) error {
	slug := c.Params("name")
	days := c.Query("days", "90")

	series, err := h.charts.GetMarketChart(c.Context(), slug, days)
	if err != nil {
		if shared.CategoryOf(err) == shared.ErrorCategoryNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Coin not found",
			})
		}
		logrus.WithError(err).WithField("slug", slug).Error("Chart fetch failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch chart data",
		})
	}

	detail, err := h.market.GetCoinDetail(c.Context(), slug)
	if err != nil {
		if shared.CategoryOf(err) == shared.ErrorCategoryNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Coin not found",
			})
		}
		logrus.WithError(err).WithField("slug", slug).Error("Coin detail fetch failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch coin data",
		})
	}

	return c.JSON(models.CoinChartResponse{
		Labels: series.Labels,
		Prices: series.Prices,
		Info:   detail,
	})
}
