package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов панели.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Server struct {
		ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
		IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
		RequestTimeout  time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"20s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	} `envconfig:""`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`

	Auth struct {
		JWTSecret string `envconfig:"ADMIN_JWT_SECRET"`
	} `envconfig:""`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN"`
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
		PollTimeout   int    `envconfig:"TG_POLL_TIMEOUT" default:"30"`
		Greeting      string `envconfig:"TG_GREETING" default:"Здравствуйте! Напишите ваш вопрос или заказ, оператор ответит в этом чате."`
	} `envconfig:""`

	VK struct {
		Token        string        `envconfig:"VK_TOKEN"`
		APIVersion   string        `envconfig:"VK_API_VERSION" default:"5.199"`
		GroupID      int64         `envconfig:"VK_GROUP_ID"`
		Confirmation string        `envconfig:"VK_CONFIRMATION"`
		Secret       string        `envconfig:"VK_SECRET"`
		Timeout      time.Duration `envconfig:"VK_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Broadcast struct {
		Delay        time.Duration `envconfig:"BROADCAST_DELAY" default:"350ms"`
		PreviewLimit int           `envconfig:"BROADCAST_PREVIEW_LIMIT" default:"200"`
		QueueDriver  string        `envconfig:"BROADCAST_QUEUE_DRIVER"`
		Queue        string        `envconfig:"BROADCAST_QUEUE" default:"broadcast_jobs"`
		AMQPURL      string        `envconfig:"AMQP_URL"`
		JobTTL       time.Duration `envconfig:"BROADCAST_JOB_TTL" default:"24h"`
	} `envconfig:""`

	Events struct {
		KeepAlive time.Duration `envconfig:"SSE_KEEPALIVE" default:"25s"`
		Channel   string        `envconfig:"EVENTS_CHANNEL" default:"dashboard:events"`
	} `envconfig:""`

	Analytics struct {
		CacheTTL time.Duration `envconfig:"ANALYTICS_CACHE_TTL" default:"30s"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
