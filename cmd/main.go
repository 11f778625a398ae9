package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roast-backend/internal/config"
	"roast-backend/internal/handler"
	"roast-backend/internal/model"
	"roast-backend/internal/service"
	"roast-backend/internal/storage"
	"roast-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to the config file (empty for env only)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx := context.Background()

	chatModel, err := model.NewChatModel(ctx, cfg.Upstream)
	if err != nil {
		logger.Fatalf("Failed to create chat model: %v", err)
	}

	var store storage.Storage
	if cfg.State.Mode == config.StateModeServer {
		store, err = storage.New(cfg.State)
		if err != nil {
			logger.Fatalf("Failed to initialize %s storage: %v", cfg.State.Store, err)
		}
		logger.Infof("Conversations are kept server-side in %s storage", cfg.State.Store)
	} else {
		logger.Info("Conversations are echoed by the client")
	}

	roastService := service.NewRoastService(chatModel, cfg.Roast)
	chatService := service.NewChatService(roastService, cfg.State, store)
	defer chatService.Close()

	chatHandler := handler.NewChatHandler(chatService)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, chatHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
