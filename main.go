package main

import (
	"net/http"

	"sparepart-marketplace/config"
	"sparepart-marketplace/consumers"
	"sparepart-marketplace/controllers"
	"sparepart-marketplace/database"
	"sparepart-marketplace/logging"
	"sparepart-marketplace/middlewares"
	"sparepart-marketplace/notifications"
	"sparepart-marketplace/repositories"
	"sparepart-marketplace/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger := logging.New()
	defer logger.Sync()

	if err := database.InitDB(cfg); err != nil {
		logger.Fatal("database initialization failed", zap.Error(err))
	}
	defer database.CloseDB()

	orderRepo := repositories.NewOrderRepository(database.DB, logger)
	orderQueries := repositories.NewOrderQueries(database.DB, logger)
	catalogRepo := repositories.NewCatalogRepository(database.DB)

	// The dispatch hook is always wired; with notifications disabled it is
	// a no-op and the broker is never contacted.
	var dispatcher notifications.Dispatcher = notifications.Disabled{}
	if cfg.NotificationsEnabled {
		rmq, err := notifications.NewRabbitMQ(cfg)
		if err != nil {
			logger.Fatal("rabbitmq initialization failed", zap.Error(err))
		}
		defer rmq.Close()

		if err := rmq.SetupQueues(); err != nil {
			logger.Fatal("failed to setup rabbitmq queues", zap.Error(err))
		}
		dispatcher = rmq

		consumer := consumers.NewNotificationConsumer(
			rmq.Channel, cfg, catalogRepo, notifications.NewLogNotifier(logger), logger)
		if err := consumer.Start(); err != nil {
			logger.Fatal("failed to start notification consumer", zap.Error(err))
		}
	}

	orderService := services.NewOrderService(orderRepo, orderQueries, catalogRepo, dispatcher, logger)
	orderController := controllers.NewOrderController(orderService)
	orderItemController := controllers.NewOrderItemController(orderService)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middlewares.RequestIDMiddleware())
	r.Use(middlewares.LoggingMiddleware(logger))
	r.Use(middlewares.RecoveryMiddleware(logger))
	r.Use(middlewares.RateLimitMiddleware(cfg))
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api")
	authGroup.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		authGroup.POST("/orders", orderController.Create)
		authGroup.GET("/orders", orderController.List)
		authGroup.GET("/order_items", orderItemController.List)
		authGroup.PUT("/order_items/:id/status", orderItemController.UpdateStatus)
		authGroup.DELETE("/order_items/:id", orderItemController.Delete)
	}

	logger.Info("order service starting", zap.String("port", cfg.HTTPPort))
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
