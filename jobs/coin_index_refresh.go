package jobs

import (
	"context"
	"time"

	"github.com/cryptodash/coin-backend/services"
	"github.com/sirupsen/logrus"
)

// CoinIndexRefreshJob keeps the cached coin map warm so search requests
// rarely pay the refresh cost inline.
type CoinIndexRefreshJob struct {
	Index    *services.CoinIndexService
	Interval time.Duration
}

func NewCoinIndexRefreshJob(index *services.CoinIndexService, interval time.Duration) *CoinIndexRefreshJob {
	return &CoinIndexRefreshJob{
		Index:    index,
		Interval: interval,
	}
}

func (j *CoinIndexRefreshJob) Start() {
	logrus.Infof("Starting Coin Index Refresh Job (runs every %v)...", j.Interval)
	ticker := time.NewTicker(j.Interval)

	go func() {
		// Run immediately on start
		j.Run()

		for range ticker.C {
			j.Run()
		}
	}()
}

func (j *CoinIndexRefreshJob) Run() {
	startTime := time.Now()
	logrus.Info("Running Coin Index Refresh Job...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.Index.Refresh(ctx)
	if err != nil {
		logrus.Errorf("Coin Index Refresh Job failed: %v", err)
		return
	}

	duration := time.Since(startTime)
	logrus.Infof("Coin Index Refresh Job completed: %d coins indexed (took %v)", count, duration)
}
