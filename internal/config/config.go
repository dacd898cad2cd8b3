package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server     ServerConfig
	Worker     WorkerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	MinIO      MinIOConfig
	RabbitMQ   RabbitMQConfig
	Extractor  ExtractorConfig
	Cookies    CookiesConfig
	Cache      CacheConfig
	Recognizer RecognizerConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"330s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxClipBytes    int64         `envconfig:"API_MAX_CLIP_BYTES" default:"52428800"`
	DownloadLinkTTL time.Duration `envconfig:"API_DOWNLOAD_LINK_TTL" default:"1h"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"60s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"mediacache"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"mediacache"`
	DBName   string `envconfig:"POSTGRES_DB" default:"mediacache"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MinIOConfig struct {
	Endpoint       string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string `envconfig:"MINIO_PUBLIC_ENDPOINT" default:""`
	AccessKey      string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string `envconfig:"MINIO_BUCKET" default:"media"`
	UseSSL         bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"mediacache"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"mediacache"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type ExtractorConfig struct {
	BinaryPath     string        `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	TempDir        string        `envconfig:"EXTRACT_TEMP_DIR" default:"/tmp/mediacache"`
	PrimaryTimeout time.Duration `envconfig:"EXTRACT_PRIMARY_TIMEOUT" default:"300s"`
	AudioTimeout   time.Duration `envconfig:"EXTRACT_AUDIO_TIMEOUT" default:"180s"`
	FetchTimeout   time.Duration `envconfig:"EXTRACT_FETCH_TIMEOUT" default:"45s"`
	SearchTimeout  time.Duration `envconfig:"EXTRACT_SEARCH_TIMEOUT" default:"60s"`
	RatePerMinute  int           `envconfig:"EXTRACT_RATE_PER_MINUTE" default:"0"`
	UserAgent      string        `envconfig:"EXTRACT_USER_AGENT" default:""`
}

type CookiesConfig struct {
	OverrideFile  string `envconfig:"COOKIES_OVERRIDE_FILE" default:""`
	YouTubeFile   string `envconfig:"YOUTUBE_COOKIES_FILE" default:""`
	InstagramFile string `envconfig:"INSTAGRAM_COOKIES_FILE" default:""`
	FallbackFile  string `envconfig:"COOKIES_FALLBACK_FILE" default:""`
	DefaultFile   string `envconfig:"COOKIES_DEFAULT_FILE" default:"cookies.txt"`
}

// Persistent tier backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type CacheConfig struct {
	MediaSize       int           `envconfig:"MEDIA_CACHE_SIZE" default:"500"`
	MediaTTL        time.Duration `envconfig:"MEDIA_CACHE_TTL" default:"2h"`
	SearchSize      int           `envconfig:"SEARCH_CACHE_SIZE" default:"200"`
	SearchTTL       time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"30m"`
	CleanupInterval time.Duration `envconfig:"CACHE_CLEANUP_INTERVAL" default:"5m"`
	Backend         string        `envconfig:"CACHE_BACKEND" default:"postgres"`
}

type RecognizerConfig struct {
	Endpoint    string        `envconfig:"RECOGNIZER_ENDPOINT" default:""`
	APIToken    string        `envconfig:"RECOGNIZER_API_TOKEN" default:""`
	Timeout     time.Duration `envconfig:"RECOGNIZER_TIMEOUT" default:"30s"`
	FFmpegPath  string        `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	ClipSeconds int           `envconfig:"RECOGNIZER_CLIP_SECONDS" default:"15"`
}

// Enabled reports whether a recognition endpoint is configured.
func (c RecognizerConfig) Enabled() bool {
	return c.Endpoint != ""
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: must be %s or %s", c.Cache.Backend, BackendPostgres, BackendRedis)
	}
	if c.Cache.MediaSize <= 0 || c.Cache.SearchSize <= 0 {
		return fmt.Errorf("cache sizes must be positive")
	}
	if c.Recognizer.ClipSeconds <= 0 {
		return fmt.Errorf("RECOGNIZER_CLIP_SECONDS must be positive")
	}
	return nil
}
