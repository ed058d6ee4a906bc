package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BacktestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_runs_total",
		Help: "Total number of backtest runs by strategy and status",
	}, []string{"strategy", "status"})

	BacktestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backtest_duration_seconds",
		Help:    "Wall time of a full backtest run",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	CollectorPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_pages_total",
		Help: "Total candle pages fetched from the exchange",
	})

	CollectorRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_retries_total",
		Help: "Total retried candle page fetches",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Currently connected websocket clients",
	})
)
