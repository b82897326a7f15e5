package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/wb-go/wbf/retry"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local"`
	Server    Server    `yaml:"server"`
	Storage   Storage   `yaml:"storage"`
	Thumbnail Thumbnail `yaml:"thumbnail"`
	Kafka     Kafka     `yaml:"kafka"`
	MinIO     MinIO     `yaml:"minio"`
	Worker    Worker    `yaml:"worker"`
	Retry     Retry     `yaml:"retry"`
}

type Server struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:"4000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Storage holds the two sibling directory roots. Both are fixed for the
// lifetime of the process.
type Storage struct {
	FullDir  string `yaml:"full_dir" env:"STORAGE_FULL_DIR" env-default:"assets/images/full"`
	ThumbDir string `yaml:"thumb_dir" env:"STORAGE_THUMB_DIR" env-default:"assets/images/thumb"`
}

type Thumbnail struct {
	JPEGQuality int       `yaml:"jpeg_quality" env:"THUMB_JPEG_QUALITY" env-default:"85"`
	MaxPixels   int       `yaml:"max_pixels" env:"THUMB_MAX_PIXELS" env-default:"16777216"`
	Watermark   Watermark `yaml:"watermark"`
}

// Watermark is stamped onto every generated thumbnail when Text is set.
type Watermark struct {
	Text      string  `yaml:"text" env:"THUMB_WATERMARK_TEXT"`
	Position  string  `yaml:"position" env:"THUMB_WATERMARK_POSITION" env-default:"bottom-right"`
	Opacity   float64 `yaml:"opacity" env:"THUMB_WATERMARK_OPACITY" env-default:"0.5"`
	FontSize  float64 `yaml:"font_size" env:"THUMB_WATERMARK_FONT_SIZE" env-default:"12"`
	FontColor string  `yaml:"font_color" env:"THUMB_WATERMARK_FONT_COLOR" env-default:"255,255,255"`
}

type Kafka struct {
	Enabled      bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	WarmTopic    string   `yaml:"warm_topic" env:"KAFKA_WARM_TOPIC" env-default:"thumbnail-warm"`
	ResultsTopic string   `yaml:"results_topic" env:"KAFKA_RESULTS_TOPIC" env-default:"thumbnail-created"`
	GroupID      string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"thumbnail-warmer"`
}

type MinIO struct {
	Enabled   bool   `yaml:"enabled" env:"MINIO_ENABLED" env-default:"false"`
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"thumbnails"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

type Worker struct {
	Concurrency int `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"4"`
}

type Retry struct {
	Attempts int           `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3"`
	Delay    time.Duration `yaml:"delay" env:"RETRY_DELAY" env-default:"100ms"`
	Backoff  float64       `yaml:"backoff" env:"RETRY_BACKOFF" env-default:"2"`
}

// MustLoad reads the file named by CONFIG_PATH (or the default path) and
// falls back to the environment alone when no file is present.
func MustLoad() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
		Backoff:  c.Retry.Backoff,
	}
}

func (c *Config) validate() error {
	var errs []error

	if c.Storage.FullDir == "" {
		errs = append(errs, errors.New("storage.full_dir is required"))
	}
	if c.Storage.ThumbDir == "" {
		errs = append(errs, errors.New("storage.thumb_dir is required"))
	}
	if c.Thumbnail.JPEGQuality < 1 || c.Thumbnail.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("thumbnail.jpeg_quality must be within 1..100, got %d", c.Thumbnail.JPEGQuality))
	}
	if c.Thumbnail.MaxPixels < 1 {
		errs = append(errs, fmt.Errorf("thumbnail.max_pixels must be positive, got %d", c.Thumbnail.MaxPixels))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency))
	}
	if c.MinIO.Enabled && c.MinIO.Bucket == "" {
		errs = append(errs, errors.New("minio.bucket is required when minio is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
