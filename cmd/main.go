package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"pairchat/backend/internal/api/handler"
	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/storage"
	"pairchat/backend/internal/telegram"
)

const shutdownTimeout = 15 * time.Second

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "pairchat").Logger()
	gin.SetMode(gin.ReleaseMode)
}

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. База даних: PostgreSQL або локальний SQLite
	db, err := storage.OpenDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	// 2. Міграції
	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// 3. Redis (необов'язковий кеш профілів)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rdb, err = storage.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect Redis")
		}
	}

	log.Info().Bool("postgres", cfg.UsePostgres()).Bool("redis", rdb != nil).Msg("Storage ready, migrations complete")
	return db, rdb
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)
	log.Info().Str("env", cfg.Env).Msg("Starting PairChat backend")

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	// 2. Chat Hub та Matcher
	hub := chathub.NewManagerService()
	matcher := chathub.NewMatcherService(hub, s, chathub.MatcherOptions{
		MinSimilarity: cfg.MinSimilarity,
		MaxKeywords:   cfg.MaxKeywords,
	})
	hub.SetDisconnectHandler(matcher.Disconnect)
	if err := matcher.RecoverRooms(); err != nil {
		log.Fatal().Err(err).Msg("Failed to recover rooms")
	}
	go hub.Run()

	// 3. Telegram-бот, якщо задано токен
	botCtx, stopBot := context.WithCancel(context.Background())
	var bot *telegram.BotService
	if cfg.TelegramBotToken != "" {
		localizer, err := localization.NewLocalizer(cfg.LocalesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load translations")
		}
		bot, err = telegram.NewBotService(cfg.TelegramBotToken, hub, matcher, localizer)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start Telegram bot")
		}
		go bot.Run(botCtx)
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN is not set, Telegram transport disabled")
	}

	// 4. Gin та роутинг
	r := gin.New()
	r.Use(gin.Recovery())
	h := handler.NewHandler(hub, matcher, cfg.JWTSecret)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
		"telegram": func(ctx context.Context) error {
			stopBot()
			if bot != nil {
				bot.Stop()
			}
			return nil
		},
		"hub": func(ctx context.Context) error {
			hub.Stop()
			return nil
		},
	})

	exitCode := <-wait

	// сховища закриваємо після того, як зупинились усі клієнти
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}

	log.Info().Int("code", exitCode).Msg("PairChat backend stopped")
	os.Exit(exitCode)
}
