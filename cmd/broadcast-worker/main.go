package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chatops-admin/internal/adapters/repo"
	"chatops-admin/internal/adapters/sender"
	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/cache"
	"chatops-admin/internal/infra/config"
	"chatops-admin/internal/infra/db"
	applog "chatops-admin/internal/infra/log"
	"chatops-admin/internal/infra/metrics"
	"chatops-admin/internal/infra/queue"
	"chatops-admin/internal/infra/sse"
	broadcastusecase "chatops-admin/internal/usecase/broadcast"
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
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("worker: не указан адрес Redis (REDIS_ADDR)")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	broadcastQueue, closeQueue, err := openQueue(cfg, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось инициализировать очередь рассылок")
	}
	defer closeQueue()

	senders := sender.NewRegistry()
	if cfg.Telegram.Token != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: не удалось создать бота")
		}
		senders.Register(domain.PlatformTelegram, sender.NewTelegram(botAPI, logger))
	}
	if cfg.VK.Token != "" {
		senders.Register(domain.PlatformVK, sender.NewVK(sender.VKConfig{
			Token:      cfg.VK.Token,
			APIVersion: cfg.VK.APIVersion,
			Timeout:    cfg.VK.Timeout,
		}, logger))
	}
	if len(senders.Platforms()) == 0 {
		logger.Fatal().Msg("worker: не настроен ни один мессенджер (TG_BOT_TOKEN, VK_TOKEN)")
	}

	// события уходят в панель через Redis, API-процесс раздаёт их подписчикам SSE
	publisher := sse.NewRedisRelay(redisClient, cfg.Events.Channel, logger.With().Str("component", "sse.relay").Logger())

	recipients := recipientsusecase.NewService(repoAdapter)
	runner := broadcastusecase.NewService(recipients, senders, repoAdapter, logger,
		broadcastusecase.WithPacer(broadcastusecase.NewRatePacer(cfg.Broadcast.Delay)),
		broadcastusecase.WithPublisher(publisher),
	)
	jobs := broadcastusecase.NewJobs(broadcastQueue, cache.NewRedis(redisClient, "chatops:"), publisher, cfg.Broadcast.JobTTL, logger)

	worker := &jobWorker{
		log:    logger,
		queue:  broadcastQueue,
		jobs:   jobs,
		runner: runner,
	}

	logger.Info().Msg("worker: запуск обработки очереди")
	worker.Run(ctx)
	logger.Info().Msg("worker: остановлен")
}

type jobWorker struct {
	log    zerolog.Logger
	queue  domain.BroadcastQueue
	jobs   *broadcastusecase.Jobs
	runner *broadcastusecase.Service
}

func (w *jobWorker) Run(ctx context.Context) {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		jobLog := w.log.With().
			Str("job_id", job.ID).
			Str("mode", string(job.Request.Mode)).
			Bool("test_mode", job.Request.TestMode).
			Logger()

		if job.ID == "" {
			jobLog.Error().Msg("worker: получена задача без идентификатора, подтверждаем и пропускаем")
			if err := ack(true); err != nil {
				jobLog.Error().Err(err).Msg("worker: не удалось подтвердить задачу без идентификатора")
			}
			continue
		}

		if err := w.jobs.Process(ctx, w.runner, job); err != nil {
			jobLog.Error().Err(err).Msg("worker: не удалось начать задачу, вернём в очередь")
			if ackErr := ack(false); ackErr != nil {
				jobLog.Error().Err(ackErr).Msg("worker: не удалось вернуть задачу в очередь")
			}
			time.Sleep(time.Second)
			continue
		}

		if err := ack(true); err != nil {
			jobLog.Error().Err(err).Msg("worker: не удалось подтвердить задачу")
		}
	}
}

func openQueue(cfg config.AppConfig, client *redis.Client, logger zerolog.Logger) (domain.BroadcastQueue, func(), error) {
	switch cfg.Broadcast.QueueDriver {
	case "", "redis":
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
