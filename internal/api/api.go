package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/szlkpr/ims-ml-service/internal/api/handlers"
	"github.com/szlkpr/ims-ml-service/internal/api/middleware"
)

// Services are the route backends. Forecasts is required; routes of any other
// nil service are not registered.
type Services struct {
	Forecasts handlers.ForecastService
	Inventory handlers.InventoryService
	Market    handlers.MarketService
	Explain   handlers.ExplainService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger("/health"))
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	if services == nil || services.Forecasts == nil {
		return router
	}

	forecastHandler := handlers.NewForecastHandler(services.Forecasts)
	router.GET("/health", forecastHandler.Health)

	predictGroup := router.Group("/predict")
	{
		predictGroup.POST("/demand", forecastHandler.PredictDemand)
		predictGroup.GET("/history/:product", forecastHandler.GetHistory)
	}

	router.POST("/admin/forecaster/reset", forecastHandler.ResetForecaster)

	if services.Inventory != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.Inventory)
		router.POST("/optimize/inventory", inventoryHandler.OptimizeInventory)
	}

	if services.Market != nil {
		marketHandler := handlers.NewMarketHandler(services.Market)
		router.POST("/analyze/market-stability", marketHandler.AnalyzeStability)
		router.GET("/insights/knowledge-graph/:product", marketHandler.GetKnowledgeInsights)
	}

	if services.Explain != nil {
		explainHandler := handlers.NewExplainHandler(services.Explain)
		router.POST("/explain/prediction", explainHandler.ExplainPrediction)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
