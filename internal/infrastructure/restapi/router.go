package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires the API routes, CORS, health and metrics endpoints.
// A nil gatherer serves the default Prometheus registry.
func SetupRouter(portfolioHandler *PortfolioHandler, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metricsHandler := promhttp.Handler()
	if gatherer != nil {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/accounts", portfolioHandler.ListAccounts)
		v1.POST("/accounts", portfolioHandler.CreateAccount)
		v1.DELETE("/accounts/:id", portfolioHandler.DeleteAccount)

		v1.GET("/positions", portfolioHandler.ListPositions)
		v1.POST("/positions", portfolioHandler.CreatePosition)
		v1.PUT("/positions/:id", portfolioHandler.UpdatePosition)
		v1.DELETE("/positions/:id", portfolioHandler.DeletePosition)

		v1.GET("/prices", portfolioHandler.GetPrices)
		v1.POST("/prices/refresh", portfolioHandler.RefreshPrices)

		v1.GET("/portfolio", portfolioHandler.GetPortfolio)
	}

	return router
}
