package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/chat"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/config"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/feed"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/graph"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/httpapi"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/identity"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/metrics"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/moderation"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/notify"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

func initLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.WarnLevel
	}
	logger.SetLevel(parsed)
	return logger
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()
	logger := initLogger(cfg.LogLevel)

	db, err := store.OpenDB(store.DBOptions{
		SQLitePath: cfg.SQLitePath,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	st, err := store.Open(db, logger)
	if err != nil {
		logger.Fatalf("Failed to load store: %v", err)
	}

	if cfg.NATSURL != "" {
		relay, err := store.ConnectRelay(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatalf("Failed to connect change relay: %v", err)
		}
		defer relay.Close()
		if err := st.AttachRelay(relay); err != nil {
			logger.Fatalf("Failed to attach change relay: %v", err)
		}
	}

	var cache *feed.Cache
	if cfg.RedisAddr != "" {
		client, err := feed.ConnectRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		cache = feed.NewCache(client, logger)
	}

	privileged := cfg.Privileged()
	tokens := identity.NewTokenIssuer(cfg.JWTSecret)

	m := metrics.Init()
	notifier := notify.New(st, logger)
	notifier.InstrumentWith(m.Notifications)
	identitySvc := identity.New(st, privileged, tokens, logger)
	graphSvc := graph.New(st, notifier, logger)
	feedSvc := feed.New(st, notifier, cache, logger)
	chatSvc := chat.New(st, graphSvc, logger)
	moderationSvc := moderation.New(st, privileged, logger)

	api := httpapi.New(cfg, logger, m, st,
		identitySvc, graphSvc, feedSvc, chatSvc, notifier, moderationSvc)

	fmt.Printf("Server starting on http://localhost%s\n", cfg.Port)
	logger.Fatal(http.ListenAndServe(cfg.Port, api.Router()))
}
