package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"upbit-backtester/api"
	"upbit-backtester/internal/collector"
	"upbit-backtester/internal/config"
	"upbit-backtester/internal/engine"
	"upbit-backtester/internal/export"
	"upbit-backtester/internal/infrastructure"
	"upbit-backtester/internal/progress"
	"upbit-backtester/internal/push"
	"upbit-backtester/internal/store"
	"upbit-backtester/internal/upbit"
)

// App defines the application structure and its dependencies
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *pgxpool.Pool
	NC          *nats.Conn
	JS          nats.JetStreamContext
	Upbit       *upbit.Client
	Service     *engine.Service
	RunStore    *store.RunStore
	PushGateway *push.PushGateway
	HTTPServer  *http.Server
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init(cfg.LogLevel)
	logger := infrastructure.Logger

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components. The database and NATS are
// optional: an empty DSN or URL disables run archiving and report
// publishing without affecting backtests.
func (a *App) Init(ctx context.Context) error {
	a.Upbit = upbit.NewClient(a.Config.UpbitAPIBase, a.Logger)
	a.PushGateway = push.NewPushGateway(a.Logger)

	opts := []engine.ServiceOption{
		engine.WithRenderer(export.NewRenderer(a.Config.ChartDir, a.Config.ChartBaseURL)),
		engine.WithObserver(progress.Multi{
			progress.Logged{Logger: a.Logger},
			a.PushGateway,
		}),
	}

	if a.Config.DB_DSN != "" {
		dbPool, err := pgxpool.Connect(ctx, a.Config.DB_DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = dbPool
		a.RunStore = store.New(dbPool)
		if err := a.RunStore.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		opts = append(opts, engine.WithStore(a.RunStore))
	}

	if a.Config.NatsURL != "" {
		nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.NC = nc
		a.JS = js
		opts = append(opts, engine.WithPublisher(infrastructure.NewJetStreamPublisher(js)))
	}

	a.Service = engine.NewService(collector.New(a.Upbit), opts...)
	return nil
}

// Run starts the HTTP server and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.NC != nil {
		a.NC.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}

	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := api.NewHandler(a.Service, a.Upbit, a.RunStore, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/backtest", apiHandler.RunBacktest)
		v1.GET("/backtests", apiHandler.ListBacktests)
		v1.GET("/candles/:market", apiHandler.GetCandles)
		v1.GET("/trades/:market", apiHandler.GetTrades)
		v1.GET("/technical-analysis/:market", apiHandler.GetTechnicalAnalysis)
		v1.GET("/ticker/:market", apiHandler.GetTicker)
		v1.GET("/orderbook/:market", apiHandler.GetOrderBook)
		v1.GET("/markets", apiHandler.GetMarkets)
		v1.GET("/market-summary", apiHandler.GetMarketSummary)
	}

	r.Static("/charts", a.Config.ChartDir)

	r.GET("/ws", func(c *gin.Context) {
		a.PushGateway.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
