package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/healthhub/internal/auth"
	"github.com/healthhub/internal/config"
	"github.com/healthhub/internal/db"
	"github.com/healthhub/internal/handler"
	"github.com/healthhub/internal/logging"
	"github.com/healthhub/internal/router"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		logger.Fatal("failed to ensure admin user", zap.Error(err))
	}

	tokens, err := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("failed to build token issuer", zap.Error(err))
	}

	api := handler.NewAPI(handler.Options{
		DB:           db.DB,
		Logger:       logger,
		Tokens:       tokens,
		ValidatorURL: cfg.ValidatorURL,
		UploadDir:    cfg.UploadDir,
		UploadURL:    cfg.UploadURLPath,
	})

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, tokens, router.Options{
		SessionSecret: cfg.SessionSecret,
		UploadDir:     cfg.UploadDir,
		UploadURLPath: cfg.UploadURLPath,
		Logger:        logger,
	})

	logger.Info("server starting",
		zap.String("addr", cfg.ListenAddr),
		zap.String("validator", cfg.ValidatorURL),
	)
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal("failed to run server", zap.Error(err))
	}
}
