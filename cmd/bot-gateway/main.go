package main

import (
	"context"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"chatops-admin/internal/adapters/bot"
	"chatops-admin/internal/adapters/repo"
	"chatops-admin/internal/adapters/sender"
	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/config"
	"chatops-admin/internal/infra/db"
	"chatops-admin/internal/infra/log"
	"chatops-admin/internal/infra/metrics"
	"chatops-admin/internal/infra/sse"
	"chatops-admin/internal/usecase/chats"
)

// bot-gateway получает сообщения Telegram через long polling, когда вебхук не настроен.
func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("не указан токен Telegram (TG_BOT_TOKEN)")
	}

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	// long polling не работает, пока у бота активен вебхук
	if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Fatal().Err(err).Msg("не удалось снять вебхук")
	}

	var publisher domain.Publisher = noopPublisher{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		publisher = sse.NewRedisRelay(redisClient, cfg.Events.Channel, logger.With().Str("component", "sse.relay").Logger())
	}

	senders := sender.NewRegistry().Register(domain.PlatformTelegram, sender.NewTelegram(botAPI, logger))
	chatService := chats.NewService(repoAdapter, repoAdapter, senders, publisher, logger)

	h := bot.NewHandler(botAPI, chatService, cfg.Telegram.Greeting, logger)
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("бот-гейтвей запущен")
	h.Run(ctx, cfg.Telegram.PollTimeout)
	logger.Info().Msg("остановка бота")
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}
