package router

import (
	"net/http"

	"github.com/catalogtools/importer/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "catalog-importer-api",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "catalog-importer-api",
		})
	})

	productHandler := handler.NewProductHandler(deps)
	importHandler := handler.NewImportHandler(deps)
	webhookHandler := handler.NewWebhookHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			// POST /api/v1/products/upload - Submit a CSV file for ingestion
			products.POST("/upload", importHandler.Upload)

			// GET /api/v1/products/stats - Catalog totals
			products.GET("/stats", productHandler.GetStats)

			// DELETE /api/v1/products - Queue deletion of every product
			products.DELETE("", productHandler.BulkDelete)

			products.GET("", productHandler.ListProducts)
			products.POST("", productHandler.CreateProduct)
			products.GET("/:id", productHandler.GetProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.DELETE("/:id", productHandler.DeleteProduct)
		}

		jobs := v1.Group("/import-jobs")
		{
			// GET /api/v1/import-jobs - List import jobs
			jobs.GET("", importHandler.ListImportJobs)

			// GET /api/v1/import-jobs/:job_id - Current snapshot (SSE via Accept header)
			jobs.GET("/:job_id", importHandler.GetImportJob)

			// GET /api/v1/import-jobs/:job_id/events - SSE progress stream
			jobs.GET("/:job_id/events", importHandler.StreamImportJob)
		}

		webhooks := v1.Group("/webhooks")
		{
			webhooks.GET("", webhookHandler.ListWebhooks)
			webhooks.POST("", webhookHandler.CreateWebhook)
			webhooks.PUT("/:id", webhookHandler.UpdateWebhook)
			webhooks.DELETE("/:id", webhookHandler.DeleteWebhook)

			// POST /api/v1/webhooks/:id/test - Synchronous delivery probe
			webhooks.POST("/:id/test", webhookHandler.TestWebhook)
		}
	}

	return r
}
