package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cryptodash/coin-backend/shared"
)

func newTestChartService(baseURL string) *ChartService {
	return NewChartServiceWithConfig(shared.ServiceConfig{
		BaseURL:            baseURL,
		HTTPRequestTimeout: 5 * time.Second,
		RequestRateLimit:   time.Millisecond,
		MaxRetryAttempts:   0,
		EnableMetrics:      false,
	})
}

func TestGetMarketChartParsesSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin/market_chart" {
			t.Errorf("unexpected request path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("vs_currency") != "usd" {
			t.Errorf("expected vs_currency=usd, got %q", r.URL.Query().Get("vs_currency"))
		}
		if r.URL.Query().Get("days") != "90" {
			t.Errorf("expected days=90, got %q", r.URL.Query().Get("days"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prices":[[1717200000000,67500.1],[1717286400000,68100.9],[1717372800000,67900.4]]}`))
	}))
	defer server.Close()

	service := newTestChartService(server.URL)
	series, err := service.GetMarketChart(context.Background(), "bitcoin", "90")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(series.Prices) != 3 {
		t.Fatalf("expected 3 prices, got %d", len(series.Prices))
	}
	if len(series.Labels) != len(series.Prices) {
		t.Fatalf("labels and prices length mismatch: %d vs %d", len(series.Labels), len(series.Prices))
	}
	if series.Prices[1] != 68100.9 {
		t.Errorf("expected price 68100.9, got %v", series.Prices[1])
	}
}

func TestGetMarketChartUnknownSlugReturnsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	service := newTestChartService(server.URL)
	_, err := service.GetMarketChart(context.Background(), "no-such-coin", "90")
	if err == nil {
		t.Fatal("expected error for unknown slug")
	}
	if shared.CategoryOf(err) != shared.ErrorCategoryNotFound {
		t.Errorf("expected not_found category, got %q", shared.CategoryOf(err))
	}
}

func TestBuildChartSeriesLabelsEveryPointWhenShort(t *testing.T) {
	pairs := [][]float64{}
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * 24 * time.Hour).UnixMilli()
		pairs = append(pairs, []float64{float64(ts), 100 + float64(i)})
	}

	series := buildChartSeries(pairs, "90")

	if len(series.Labels) != 10 || len(series.Prices) != 10 {
		t.Fatalf("expected 10 labels and prices, got %d and %d", len(series.Labels), len(series.Prices))
	}
	for i, label := range series.Labels {
		if label == "" {
			t.Errorf("short series should label every point, position %d is blank", i)
		}
	}
	if series.Labels[0] != "Jun 1" {
		t.Errorf("expected date-style label, got %q", series.Labels[0])
	}
}

func TestBuildChartSeriesThinsLabelsWhenDense(t *testing.T) {
	pairs := [][]float64{}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2000; i++ {
		ts := base.Add(time.Duration(i) * time.Hour).UnixMilli()
		pairs = append(pairs, []float64{float64(ts), float64(i)})
	}

	series := buildChartSeries(pairs, "90")

	if len(series.Labels) != len(series.Prices) {
		t.Fatalf("labels and prices length mismatch: %d vs %d", len(series.Labels), len(series.Prices))
	}

	visible := 0
	for _, label := range series.Labels {
		if label != "" {
			visible++
		}
	}
	if visible == 0 {
		t.Fatal("expected at least one visible label")
	}
	if visible > maxVisibleLabels {
		t.Errorf("expected at most %d visible labels, got %d", maxVisibleLabels, visible)
	}
	if series.Labels[0] == "" {
		t.Error("first point should always carry a label")
	}
}

func TestBuildChartSeriesSkipsMalformedPairs(t *testing.T) {
	pairs := [][]float64{
		{float64(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()), 100},
		{42},
		{float64(time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC).UnixMilli()), 101},
	}

	series := buildChartSeries(pairs, "90")

	if len(series.Prices) != 2 {
		t.Fatalf("expected malformed pair to be skipped, got %d prices", len(series.Prices))
	}
	if len(series.Labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(series.Labels))
	}
}

func TestFormatChartLabelUsesClockTimeForOneDay(t *testing.T) {
	ts := time.Date(2026, 6, 1, 14, 30, 0, 0, time.Local).UnixMilli()

	clock := formatChartLabel(ts, "1")
	if !strings.Contains(clock, ":30") {
		t.Errorf("expected clock-style label for days=1, got %q", clock)
	}

	date := formatChartLabel(ts, "90")
	if date != "Jun 1" {
		t.Errorf("expected date-style label for days=90, got %q", date)
	}
}
