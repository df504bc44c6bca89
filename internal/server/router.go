// Package server wires services, handlers and middleware into the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "ledgerwise/internal/docs" // Import swagger docs
	"ledgerwise/internal/handlers"
	"ledgerwise/internal/middleware"
	"ledgerwise/internal/models"
	"ledgerwise/internal/services"
)

// Options configures NewRouter.
type Options struct {
	DB *gorm.DB
	// Generator is nil when no model API key is configured.
	Generator      services.Generator
	AdminEmails    []string
	MaxUploadBytes int64
	Location       *time.Location
	Settings       services.Settings
	RequestLogging bool
	Swagger        bool
}

// NewRouter builds the API router.
func NewRouter(opts Options) *gin.Engine {
	db := opts.DB

	// Services
	userService := services.NewUserService(db, opts.AdminEmails)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db)
	invoiceService := services.NewInvoiceService(db, opts.Generator, opts.MaxUploadBytes)
	assistantService := services.NewAssistantService(transactionService, opts.Generator, opts.Location)
	settings := opts.Settings
	settings.AIConfigured = opts.Generator != nil
	adminService := services.NewAdminService(db, settings)
	auditService := services.NewAuditService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, auditService, opts.MaxUploadBytes)
	assistantHandler := handlers.NewAssistantHandler(assistantService)
	adminHandler := handlers.NewAdminHandler(adminService)

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.RequestLogging {
		router.Use(middleware.RequestLogging())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ai_configured": opts.Generator != nil})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/profile", authHandler.UpdateProfile)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	protected.GET("/ledger/summary", transactionHandler.GetSummary)
	protected.GET("/gst/quote", transactionHandler.Quote)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	invoices := protected.Group("/invoices")
	invoices.POST("/extract", invoiceHandler.ExtractInvoice)
	invoices.GET("/:id", invoiceHandler.GetExtraction)
	invoices.POST("/:id/confirm", invoiceHandler.ConfirmExtraction)

	assistant := protected.Group("/assistant")
	assistant.POST("/ask", assistantHandler.Ask)
	assistant.GET("/suggestions", assistantHandler.Suggestions)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.GET("/stats", adminHandler.GetStats)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/settings", adminHandler.GetSettings)
	admin.GET("/categories", categoryHandler.GetGlobalCategories)
	admin.POST("/categories", categoryHandler.CreateGlobalCategory)
	admin.PUT("/categories/:id", categoryHandler.UpdateGlobalCategory)
	admin.DELETE("/categories/:id", categoryHandler.DeleteGlobalCategory)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
