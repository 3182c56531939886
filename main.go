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
	"golang.org/x/time/rate"

	"linkguard/internal/bot"
	"linkguard/internal/cache"
	"linkguard/internal/config"
	"linkguard/internal/controllers"
	"linkguard/internal/database"
	"linkguard/internal/logger"
	"linkguard/internal/middleware"
	"linkguard/internal/repository"
	"linkguard/internal/service"
	"linkguard/internal/telegram"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Debug})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", logger.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Error("Failed to run migrations", logger.Error(err))
		return 1
	}

	// Redis is optional, invite links are then read from Postgres every time
	var cacheClient cache.Cache
	var cachePinger controllers.Pinger
	if cfg.RedisURL != "" {
		cacheClient, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, continuing without cache", logger.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
			cachePinger = controllers.PingFunc(cacheClient.Ping)
			log.Info("Connected to Redis cache")
		}
	}

	client, err := telegram.NewClient(cfg.TelegramToken, "")
	if err != nil {
		log.Error("Failed to create Telegram client", logger.Error(err))
		return 1
	}

	linkRepo := repository.NewLinkRepository(db)
	userRepo := repository.NewUserRepository(db)
	channelRepo := repository.NewChannelRepository(db)

	links := service.NewLinkService(linkRepo)
	users := service.NewUserService(userRepo)
	channels := service.NewChannelService(channelRepo, cacheClient, client, log)
	gate := service.NewMembershipGate(cfg.SupportChannels, client, log)
	protection := service.NewProtectionService(gate, channels, links, users, client, cfg.BaseURL, cfg.AdminID, log)
	broadcast := service.NewBroadcastService(cfg.AdminID, users, client, cfg.BroadcastRate, cfg.BroadcastWorkers, log)
	dispatcher := bot.NewDispatcher(client, protection, broadcast, users, log)

	webhookController := controllers.NewWebhookController(dispatcher, cfg.TelegramToken, log)
	joinController := controllers.NewJoinController(links, protection, cfg.TelegramToken, log)
	qrcodeController := controllers.NewQRCodeController(links, protection, log)
	healthController := controllers.NewHealthController(db, cachePinger)

	pageLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, ctx.Done())

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(controllers.Templates())

	router.GET("/health", healthController.Health)
	router.GET("/join", pageLimiter.LimitMiddleware(), joinController.JoinPage)
	router.POST("/join", pageLimiter.LimitMiddleware(), joinController.Reveal)
	router.GET("/qrcode/:token", pageLimiter.LimitMiddleware(), qrcodeController.GenerateQRCode)
	router.POST("/:token", webhookController.Receive)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			logger.String("port", cfg.Port),
			logger.Bool("cache_enabled", cacheClient != nil),
			logger.Bool("gate_enabled", len(cfg.SupportChannels) > 0),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if cfg.BaseURL != "" {
		if err := client.SetWebhook(ctx, cfg.BaseURL+"/"+cfg.TelegramToken); err != nil {
			log.Error("Failed to register webhook", logger.Error(err))
		} else {
			log.Info("Webhook registered", logger.String("base_url", cfg.BaseURL))
		}
	} else {
		log.Warn("BASE_URL not set, webhook not registered")
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error("Server failed", logger.Error(err))
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", logger.Error(err))
		exitCode = 1
	}

	// in-flight updates may still be broadcasting
	done := make(chan struct{})
	go func() {
		webhookController.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for in-flight updates")
	}

	return exitCode
}
