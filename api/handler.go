package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"upbit-backtester/internal/analysis"
	"upbit-backtester/internal/engine"
	"upbit-backtester/internal/store"
	"upbit-backtester/internal/upbit"
)

type Handler struct {
	service *engine.Service
	market  *upbit.Client
	runs    *store.RunStore // nil when no database is configured
	logger  *zap.Logger
}

func NewHandler(service *engine.Service, market *upbit.Client, runs *store.RunStore, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		market:  market,
		runs:    runs,
		logger:  logger,
	}
}

// Backtest Handlers

func (h *Handler) RunBacktest(c *gin.Context) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, rerr := h.service.Run(c.Request.Context(), req)
	if rerr != nil {
		h.logger.Warn("backtest failed",
			zap.String("market", req.Market),
			zap.String("strategy", req.StrategyType),
			zap.String("kind", string(rerr.Kind)),
			zap.String("reason", rerr.Message))
		c.JSON(statusFor(rerr.Kind), gin.H{"error": rerr.Message})
		return
	}

	c.JSON(http.StatusOK, report)
}

func statusFor(kind engine.ErrorKind) int {
	switch kind {
	case engine.KindValidation, engine.KindInsufficientData:
		return http.StatusBadRequest
	case engine.KindData:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) ListBacktests(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "run archive is not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.runs.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list backtest runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// Market Data Handlers

func (h *Handler) GetCandles(c *gin.Context) {
	market := strings.ToUpper(c.Param("market"))
	interval := c.DefaultQuery("interval", "day")
	count, _ := strconv.Atoi(c.DefaultQuery("count", "200"))
	if count < 1 || count > upbit.MaxCandleCount {
		count = upbit.MaxCandleCount
	}
	if !upbit.SupportedInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported interval: " + interval})
		return
	}

	candles, err := h.market.FetchCandles(c.Request.Context(), market, interval, count, c.Query("to"))
	if err != nil {
		h.logger.Error("failed to fetch candles", zap.String("market", market), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch candles"})
		return
	}
	c.JSON(http.StatusOK, candles)
}

// GetTechnicalAnalysis fetches the most recent candles for a market and
// returns the indicator snapshot with its trading signals.
func (h *Handler) GetTechnicalAnalysis(c *gin.Context) {
	market := strings.ToUpper(c.Param("market"))
	interval := c.DefaultQuery("interval", "day")
	count, _ := strconv.Atoi(c.DefaultQuery("count", "200"))
	if count < 1 || count > upbit.MaxCandleCount {
		count = upbit.MaxCandleCount
	}
	if !upbit.SupportedInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported interval: " + interval})
		return
	}

	candles, err := h.market.FetchCandles(c.Request.Context(), market, interval, count, "")
	if err != nil {
		h.logger.Error("failed to fetch candles for analysis", zap.String("market", market), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch candles"})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "no candle data for " + market})
		return
	}
	c.JSON(http.StatusOK, analysis.Analyze(market, interval, candles))
}

func (h *Handler) GetTrades(c *gin.Context) {
	market := strings.ToUpper(c.Param("market"))
	count, _ := strconv.Atoi(c.DefaultQuery("count", "1"))
	trades, err := h.market.RecentTrades(c.Request.Context(), market, count)
	if err != nil {
		h.logger.Error("failed to fetch trades", zap.String("market", market), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch trades"})
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (h *Handler) GetTicker(c *gin.Context) {
	market := strings.ToUpper(c.Param("market"))
	ticker, err := h.market.Ticker(c.Request.Context(), market)
	if err != nil {
		h.logger.Error("failed to fetch ticker", zap.String("market", market), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch ticker"})
		return
	}
	c.JSON(http.StatusOK, ticker)
}

func (h *Handler) GetOrderBook(c *gin.Context) {
	market := strings.ToUpper(c.Param("market"))
	book, err := h.market.OrderBook(c.Request.Context(), market)
	if err != nil {
		h.logger.Error("failed to fetch orderbook", zap.String("market", market), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch orderbook"})
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handler) GetMarketSummary(c *gin.Context) {
	summary, err := h.market.MarketSummary(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compose market summary", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to compose market summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetMarkets(c *gin.Context) {
	markets, err := h.market.Markets(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to fetch markets", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch markets"})
		return
	}
	c.JSON(http.StatusOK, markets)
}
