package main

import (
	"context"
	"errors"
	"flag"
	stdlog "log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/voxlink/voxlink/config"
	"github.com/voxlink/voxlink/internal/api"
	"github.com/voxlink/voxlink/internal/gateway"
	"github.com/voxlink/voxlink/internal/handlers"
	"github.com/voxlink/voxlink/internal/mail"
	"github.com/voxlink/voxlink/internal/presence"
	"github.com/voxlink/voxlink/internal/repositories"
	"github.com/voxlink/voxlink/internal/services"
	"github.com/voxlink/voxlink/internal/storage"
	"github.com/voxlink/voxlink/internal/tokens"
	"github.com/voxlink/voxlink/internal/voice"
	"github.com/voxlink/voxlink/middleware/jwt"
	logger "github.com/voxlink/voxlink/middleware/log"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		stdlog.Fatalf("failed to init logger: %v", err)
	}
	defer appLogger.Close()
	zlog := appLogger.Logger

	db, err := storage.InitPostgres(&cfg.Postgres)
	if err != nil {
		zlog.Fatal("postgres init failed", zap.Error(err))
	}

	rdb, err := storage.InitRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("redis init failed", zap.Error(err))
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories and domain services.
	userRepo := repositories.NewUserRepository(db)
	guildRepo := repositories.NewGuildRepository(db)
	messageRepo := repositories.NewMessageRepository(db)

	tokenManager := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.JWT.RefreshHours)
	tokenStore := tokens.NewStore(rdb, &cfg.Invite, zlog)
	tracker := presence.NewTracker(rdb, time.Duration(cfg.Presence.TTLSeconds)*time.Second, zlog)
	mailer := mail.NewSMTPMailer(&cfg.SMTP, zlog)
	bridge := voice.NewBridge(&cfg.Voice, zlog)

	guildService := services.NewGuildService(guildRepo, zlog)
	messageService := services.NewMessageService(messageRepo, guildService, zlog)
	authService := services.NewAuthService(
		userRepo, guildService, tokenStore, tokenManager, mailer,
		cfg.Server.FrontendURL, zlog)

	// Realtime gateway.
	hub := gateway.NewHub(zlog)
	go hub.Run(ctx)
	gatewayHandler := gateway.NewHandler(
		hub, guildService, messageService, tracker, tokenManager,
		&cfg.Websocket, zlog)

	// HTTP surface.
	mw := api.NewMiddlewareManager(tokenManager, rdb, cfg, zlog)
	router := api.NewRouter(cfg, mw,
		handlers.NewAuthHandler(authService),
		handlers.NewGuildHandler(guildService, tokenStore, cfg.Server.FrontendURL),
		handlers.NewMessageHandler(messageService),
		handlers.NewVoiceHandler(guildService, bridge),
		gatewayHandler,
	)

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zlog.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	zlog.Info("goodbye")
}
