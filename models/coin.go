package models

// CoinIdentifier is one entry of the CoinMarketCap id map. The full map
// (roughly 10k coins) is held by the coin index cache and filtered for
// search requests.
type CoinIdentifier struct {
	ID     int    `json:"id"`
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Slug   string `json:"slug"`
}

// CoinSummary is one row of the top-100 table: a listings record (numeric
// metrics, keyed by slug) merged with an info record carrying the logo.
// Field names stay snake_case on the wire for the existing client.
type CoinSummary struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Slug              string   `json:"slug"`
	Symbol            string   `json:"symbol"`
	CmcRank           int      `json:"cmc_rank"`
	Price             *float64 `json:"price"`
	PercentChange1h   *float64 `json:"percent_change_1h"`
	PercentChange24h  *float64 `json:"percent_change_24h"`
	PercentChange7d   *float64 `json:"percent_change_7d"`
	Volume24h         *float64 `json:"volume_24h"`
	MarketCap         *float64 `json:"market_cap"`
	CirculatingSupply *float64 `json:"circulating_supply"`
	Logo              *string  `json:"logo"`
}

// CoinDetail is the merged info + quotes record for a single coin. Both
// provider responses are keyed by the internal numeric id, not the slug
// the caller asked with.
type CoinDetail struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Slug              string   `json:"slug"`
	Symbol            string   `json:"symbol"`
	Logo              *string  `json:"logo"`
	Website           *string  `json:"website"`
	Description       string   `json:"description"`
	CmcRank           int      `json:"cmc_rank"`
	MaxSupply         *float64 `json:"max_supply"`
	CirculatingSupply *float64 `json:"circulating_supply"`
	TotalSupply       *float64 `json:"total_supply"`
	Price             *float64 `json:"price"`
	MarketCap         *float64 `json:"market_cap"`
	Volume24h         *float64 `json:"volume_24h"`
	VolumeChange24h   *float64 `json:"volume_change_24h"`
	PercentChange1h   *float64 `json:"percent_change_1h"`
	PercentChange24h  *float64 `json:"percent_change_24h"`
	PercentChange7d   *float64 `json:"percent_change_7d"`
	PercentChange30d  *float64 `json:"percent_change_30d"`
	PercentChange90d  *float64 `json:"percent_change_90d"`
	PercentChange365d *float64 `json:"percent_change_365d,omitempty"`
}

// ChartSeries is a price time series prepared for the client's chart:
// one label per price, blank labels where the series is too dense to read.
type ChartSeries struct {
	Labels []string  `json:"labels"`
	Prices []float64 `json:"prices"`
}

// CoinChartResponse is the /currency/:slug payload.
type CoinChartResponse struct {
	Labels []string    `json:"labels"`
	Prices []float64   `json:"prices"`
	Info   *CoinDetail `json:"info"`
}
