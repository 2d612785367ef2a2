// Package config предоставялет структуры и функции для парсинга и загрузки конфига.
//
// Конфиг читается из YAML-файла по пути CONFIG_PATH, секреты могут быть
// переопределены переменными окружения.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	PublicURL               string `yaml:"public_url" env:"PUBLIC_URL" env-default:"http://localhost:8080"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	JWTToken                `yaml:"jwttoken"`
	Trial                   `yaml:"trial"`
	RateLimit               `yaml:"rate_limit"`
	Mailer                  `yaml:"mailer"`
	SMTP                    `yaml:"smtp"`
	PayPal                  `yaml:"paypal"`
	Mailgun                 `yaml:"mailgun"`
	Cloudinary              `yaml:"cloudinary"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"1h"`
}

// RabbitMQ настройки брокера для фоновой отправки писем.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	Prefetch           int           `yaml:"prefetch" env-default:"10"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"720h"`
}

// Trial длительность пробного периода для нового бизнеса.
type Trial struct {
	TrialPeriod time.Duration `yaml:"period" env-default:"168h"`
}

// RateLimit настройки ограничителя запросов для защищённых маршрутов.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Mailer выбирает способ фоновой отправки писем.
//
// Driver: "local" пул горутин в процессе API, "rabbitmq" публикация в очередь.
// Provider: "mailgun" или "smtp".
type Mailer struct {
	Driver   string `yaml:"driver" env:"MAILER_DRIVER" env-default:"local"`
	Provider string `yaml:"provider" env:"MAILER_PROVIDER" env-default:"mailgun"`
	Workers  int    `yaml:"workers" env-default:"4"`
	Buffer   int    `yaml:"buffer" env-default:"100"`
}

// SMTP настройки SMTP-сервера.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
}

// PayPal учётные данные платёжного провайдера.
type PayPal struct {
	PayPalMode         string `yaml:"mode" env:"PAYPAL_MODE" env-default:"sandbox"`
	PayPalClientID     string `yaml:"client_id" env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `yaml:"client_secret" env:"PAYPAL_CLIENT_SECRET"`
	PayPalPlanID       string `yaml:"plan_id" env:"PAYPAL_PLAN_ID"`
	WebhookSecret      string `yaml:"webhook_secret" env:"PAYPAL_WEBHOOK_SECRET"`
	ReturnURL          string `yaml:"return_url" env-default:"http://localhost:3000/subscription/success"`
	CancelURL          string `yaml:"cancel_url" env-default:"http://localhost:3000/subscription/cancel"`
}

// Mailgun учётные данные почтового провайдера.
type Mailgun struct {
	MailgunAPIKey    string `yaml:"api_key" env:"MAILGUN_API_KEY"`
	MailgunDomain    string `yaml:"domain" env:"MAILGUN_DOMAIN"`
	MailgunFromEmail string `yaml:"from_email" env:"MAILGUN_FROM_EMAIL" env-default:"noreply@direct-tree.com"`
	MailgunBaseURL   string `yaml:"base_url" env-default:"https://api.mailgun.net"`
}

// Cloudinary учётные данные хостинга изображений.
type Cloudinary struct {
	CloudName         string `yaml:"cloud_name" env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey  string `yaml:"api_key" env:"CLOUDINARY_API_KEY"`
	CloudinarySecret  string `yaml:"api_secret" env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder  string `yaml:"folder" env-default:"direct-tree"`
	CloudinaryBaseURL string `yaml:"base_url" env-default:"https://api.cloudinary.com"`
}

// Scheduler периодичность фоновых задач.
type Scheduler struct {
	TrialNoticeInterval time.Duration `yaml:"trial_notice_interval" env-default:"24h"`
	ReconcileInterval   time.Duration `yaml:"reconcile_interval" env-default:"1h"`
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и переменных окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// PayPalBaseURL возвращает адрес API PayPal для выбранного режима.
func (c *Config) PayPalBaseURL() string {
	if c.PayPalMode == "live" {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"PublicURL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Redis: %s (db %d)\n"+
			"Mailer: driver=%s provider=%s\n"+
			"PayPal mode: %s\n"+
			"JWT TTL: %s\n"+
			"Trial: %s\n",
		c.Env,
		c.PublicURL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.AddressRedis,
		c.DB,
		c.Driver,
		c.Provider,
		c.PayPalMode,
		c.TokenTTL,
		c.TrialPeriod,
	)
}
