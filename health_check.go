//go:build ignore

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cryptodash/coin-backend/config"
	"github.com/cryptodash/coin-backend/database"
	"github.com/cryptodash/coin-backend/services"
)

func main() {
	fmt.Printf("🏥 Coin Backend Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Quick tests
	healthScore := 0
	totalTests := 4

	// Test 1: CoinMarketCap listings
	fmt.Print("📡 CoinMarketCap: ")
	market := services.NewMarketService(cfg.CMCAPIKey, cfg.SecondaryAPIKey())
	if coins := market.GetTopListings(ctx, 10); len(coins) == 0 {
		fmt.Println("❌ FAILED (no listings returned)")
	} else {
		fmt.Printf("✅ OK (%d coins)\n", len(coins))
		healthScore++
	}

	// Test 2: CoinGecko chart
	fmt.Print("📈 CoinGecko: ")
	charts := services.NewChartService()
	if series, err := charts.GetMarketChart(ctx, "bitcoin", "1"); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Printf("✅ OK (%d points)\n", len(series.Prices))
		healthScore++
	}

	// Test 3: Database
	fmt.Print("🗄️  Database: ")
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Println("✅ OK")
		healthScore++

		// Test 4: Database data
		fmt.Print("📊 Database Data: ")
		var users int
		if err := database.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else {
			fmt.Printf("✅ OK (%d users)\n", users)
			healthScore++
		}
		database.Close()
	}

	// Overall health
	fmt.Println(strings.Repeat("-", 50))
	healthPercent := float64(healthScore) / float64(totalTests) * 100

	if healthScore == totalTests {
		fmt.Printf("🎉 SYSTEM HEALTHY: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else if healthScore >= totalTests/2 {
		fmt.Printf("⚠️  SYSTEM DEGRADED: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else {
		fmt.Printf("❌ SYSTEM UNHEALTHY: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	}

	fmt.Printf("⏰ Check completed at: %s\n", time.Now().Format("15:04:05"))
}
