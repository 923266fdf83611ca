package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chatops-admin/internal/adapters/httpapi"
	"chatops-admin/internal/adapters/repo"
	"chatops-admin/internal/adapters/sender"
	"chatops-admin/internal/adapters/webhook"
	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/cache"
	"chatops-admin/internal/infra/config"
	"chatops-admin/internal/infra/db"
	httpinfra "chatops-admin/internal/infra/http"
	applog "chatops-admin/internal/infra/log"
	"chatops-admin/internal/infra/metrics"
	"chatops-admin/internal/infra/queue"
	"chatops-admin/internal/infra/sse"
	analyticsusecase "chatops-admin/internal/usecase/analytics"
	broadcastusecase "chatops-admin/internal/usecase/broadcast"
	chatsusecase "chatops-admin/internal/usecase/chats"
	ordersusecase "chatops-admin/internal/usecase/orders"
	recipientsusecase "chatops-admin/internal/usecase/recipients"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, logger.With().Str("component", "migrate").Logger()); err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось применить миграции")
	}

	repoAdapter := repo.NewPostgres(pool)

	var (
		redisClient *redis.Client
		appCache    domain.Cache
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		appCache = cache.NewRedis(redisClient, "chatops:")
	} else {
		logger.Warn().Msg("api: REDIS_ADDR не задан, кэш, дедупликация вебхуков и фоновые рассылки отключены")
	}

	senders := buildSenders(cfg, logger)
	if len(senders.Platforms()) == 0 {
		logger.Warn().Msg("api: ни один мессенджер не настроен, отправка сообщений будет завершаться ошибкой")
	}

	hub := sse.NewHub(logger.With().Str("component", "sse").Logger())
	var publisher domain.Publisher = hub
	if redisClient != nil {
		relay := sse.NewRedisRelay(redisClient, cfg.Events.Channel, logger.With().Str("component", "sse.relay").Logger())
		publisher = relay
		go relay.Run(ctx, hub)
	}

	recipients := recipientsusecase.NewService(repoAdapter)
	broadcasts := broadcastusecase.NewService(recipients, senders, repoAdapter, logger,
		broadcastusecase.WithPacer(broadcastusecase.NewRatePacer(cfg.Broadcast.Delay)),
		broadcastusecase.WithPublisher(publisher),
		broadcastusecase.WithPreviewLimit(cfg.Broadcast.PreviewLimit),
	)
	chats := chatsusecase.NewService(repoAdapter, repoAdapter, senders, publisher, logger)
	orders := ordersusecase.NewService(repoAdapter, repoAdapter, publisher)
	analytics := analyticsusecase.NewService(repoAdapter, appCache, cfg.Analytics.CacheTTL, logger)

	opts := []httpapi.Option{
		httpapi.WithLogger(logger.With().Str("component", "httpapi").Logger()),
		httpapi.WithAuth(httpinfra.OperatorAuthMiddleware(cfg.Auth.JWTSecret)),
		httpapi.WithRequestTimeout(cfg.Server.RequestTimeout),
		httpapi.WithEvents(sse.NewStreamHandler(hub, cfg.Events.KeepAlive, logger.With().Str("component", "sse.stream").Logger())),
		httpapi.WithWebhook("telegram", webhook.NewTelegram(chats, appCache, cfg.Telegram.WebhookSecret, logger)),
		httpapi.WithWebhook("vk", webhook.NewVK(chats, appCache, webhook.VKConfig{
			GroupID:      cfg.VK.GroupID,
			Confirmation: cfg.VK.Confirmation,
			Secret:       cfg.VK.Secret,
		}, logger)),
	}

	if appCache != nil {
		broadcastQueue, closeQueue, err := openQueue(cfg, redisClient, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось инициализировать очередь рассылок")
		}
		defer closeQueue()
		jobs := broadcastusecase.NewJobs(broadcastQueue, appCache, publisher, cfg.Broadcast.JobTTL, logger)
		opts = append(opts, httpapi.WithJobs(jobs))
	}

	server := httpinfra.NewServer(logger, httpinfra.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})
	httpapi.NewServer(broadcasts, chats, orders, analytics, opts...).Mount(server.Router)

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: ошибка при остановке сервера")
	}
}

func buildSenders(cfg config.AppConfig, logger zerolog.Logger) *sender.Registry {
	registry := sender.NewRegistry()
	if cfg.Telegram.Token != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось создать бота")
		}
		registry.Register(domain.PlatformTelegram, sender.NewTelegram(botAPI, logger))
	}
	if cfg.VK.Token != "" {
		registry.Register(domain.PlatformVK, sender.NewVK(sender.VKConfig{
			Token:      cfg.VK.Token,
			APIVersion: cfg.VK.APIVersion,
			Timeout:    cfg.VK.Timeout,
		}, logger))
	}
	return registry
}

// openQueue выбирает драйвер очереди. Без явного драйвера используется Redis.
func openQueue(cfg config.AppConfig, client *redis.Client, logger zerolog.Logger) (domain.BroadcastQueue, func(), error) {
	switch cfg.Broadcast.QueueDriver {
	case "", "redis":
		if client == nil {
			return nil, nil, errors.New("redis queue requires REDIS_ADDR")
		}
		return queue.NewRedisBroadcastQueue(client, cfg.Broadcast.Queue), func() {}, nil
	case "rabbitmq", "amqp":
		q, err := queue.NewRabbitBroadcastQueue(cfg.Broadcast.AMQPURL, cfg.Broadcast.Queue, logger.With().Str("component", "queue").Logger())
		if err != nil {
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Broadcast.QueueDriver)
	}
}
