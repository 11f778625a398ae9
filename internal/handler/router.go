package handler

import (
	"time"

	"roast-backend/internal/config"
	"roast-backend/internal/middleware"
	"roast-backend/internal/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config, chatHandler *ChatHandler) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if allowsAnyOrigin(corsConfig.AllowOrigins) {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.SetHTMLTemplate(web.Templates())

	router.GET("/", chatHandler.Index)
	router.GET("/health", Health)

	api := router.Group("/api")
	{
		api.POST("/roast", chatHandler.Roast)
		api.POST("/conversation/reset", chatHandler.Reset)
	}

	return router
}

func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
