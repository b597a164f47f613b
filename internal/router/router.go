// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/imagestore/image-store-backend/internal/config"
	"github.com/imagestore/image-store-backend/internal/events"
	"github.com/imagestore/image-store-backend/internal/handlers"
	"github.com/imagestore/image-store-backend/internal/mail"
	"github.com/imagestore/image-store-backend/internal/middleware"
	"github.com/imagestore/image-store-backend/internal/services"
	"github.com/imagestore/image-store-backend/internal/storage"
	"github.com/imagestore/image-store-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, store *storage.Store, mailer mail.Mailer, publisher *events.Publisher) *gin.Engine {
	// Initialize services
	catalogService := services.NewCatalogService(db, store, cfg)
	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db, catalogService)
	checkoutService := services.NewCheckoutService(db, cfg, store, mailer, publisher)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	imageHandler := handlers.NewImageHandler(catalogService)
	paymentHandler := handlers.NewPaymentHandler(checkoutService)
	webhookHandler := handlers.NewWebhookHandler(checkoutService, cfg)
	contactHandler := handlers.NewContactHandler(mailer, cfg)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.GeneralRateLimit())

	// Only watermarked previews are served; raw originals stay private.
	r.Static("/images/wm", cfg.Storage.WatermarkedDir)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	api := r.Group("/api")
	{
		// User and auth routes
		user := api.Group("/user")
		{
			user.POST("/register", middleware.AuthRateLimit(), authHandler.Register)
			user.POST("/login", middleware.AuthRateLimit(), authHandler.Login)

			protected := user.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.GET("/profile", userHandler.GetProfile)
				protected.PATCH("/profile", userHandler.UpdateProfile)
				protected.POST("/cart/:imageId", userHandler.AddToCart)
				protected.DELETE("/cart/:imageId", userHandler.RemoveFromCart)
				protected.POST("/likes/:imageId", userHandler.AddLike)
				protected.DELETE("/likes/:imageId", userHandler.RemoveLike)
			}
		}

		// Catalog routes
		images := api.Group("/images")
		{
			images.GET("", imageHandler.GetImages)
			images.GET("/:imageId", imageHandler.GetImage)

			protected := images.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/upload", middleware.UploadRateLimit(), imageHandler.UploadImage)
				protected.PATCH("/:imageId", imageHandler.UpdateImage)
			}
		}

		// Payment routes
		payment := api.Group("/payment")
		{
			payment.POST("/create-checkout-session", middleware.OptionalAuth(), paymentHandler.CreateCheckoutSession)
		}

		// Provider webhook: authenticated by signature, never by session
		api.POST("/webhook", webhookHandler.HandleWebhook)

		// Contact form
		api.POST("/contact", contactHandler.SubmitContact)
	}

	return r
}
