package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hcda/alert"
	"hcda/config"
	"hcda/forecast"
	"hcda/handlers"
	"hcda/middleware"
	"hcda/services"
)

func serveCmd() *cobra.Command {
	var (
		port int
		data string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the forecast dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("data") {
				cfg.Data.HistoryPath = data
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default 8080)")
	cmd.Flags().StringVar(&data, "data", "", "dataset CSV (default data/h_data.csv)")
	return cmd
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	var db *gorm.DB
	if cfg.Database.Enabled {
		conn, err := openDB(cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("database unavailable, latest run endpoint disabled")
		} else {
			db = conn
			logger.Info().Str("host", cfg.Database.Host).Msg("db connected")
		}
	}

	var bus *services.AlertBus
	if cfg.Redis.Enabled {
		b, err := services.NewAlertBus(cfg.Redis, logger)
		if err != nil {
			logger.Error().Err(err).Msg("redis unavailable, alert stream disabled")
		} else {
			bus = b
			defer bus.Close()
			logger.Info().Str("addr", cfg.Redis.Addr()).Msg("redis connected")
		}
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := buildRouter(cfg, logger, db, bus)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("data", cfg.Data.HistoryPath).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func openDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// buildRouter wires every endpoint. db and bus are optional; their routes are
// only registered when present.
func buildRouter(cfg *config.Config, logger zerolog.Logger, db *gorm.DB, bus *services.AlertBus) *gin.Engine {
	history := services.NewHistoryCache(cfg.Data.HistoryPath)
	forecaster := services.NewForecaster(
		forecast.NewDefaultPipeline(cfg.Forecast.IntervalWidth, cfg.Forecast.TemperatureWindow),
		alert.NewPolicy(cfg.Alert.Multiplier),
	)
	bounds := handlers.HorizonBounds{
		Min:     cfg.Forecast.MinHorizon,
		Max:     cfg.Forecast.MaxHorizon,
		Default: cfg.Forecast.Horizon,
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.SetupCORS(cfg.CORS),
	)

	dashboard := handlers.NewDashboardHandler(history, forecaster, bounds, logger)
	router.GET("/", dashboard.Index)
	router.GET("/forecast", dashboard.Forecast)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := handlers.NewAPIHandler(history, forecaster, bounds, logger)
	v1 := router.Group("/api/v1")
	{
		v1.GET("/summary", api.GetSummary)
		v1.GET("/history", api.GetHistory)
		v1.POST("/forecast", api.PostForecast)
		v1.GET("/forecast/export.xlsx", api.ExportForecast)
		if db != nil {
			v1.GET("/forecasts/latest", handlers.NewRunsHandler(db).GetLatest)
		}
	}

	if bus != nil {
		router.GET("/ws/alerts", handlers.AlertsWebSocket(bus, logger))
	}

	return router
}
