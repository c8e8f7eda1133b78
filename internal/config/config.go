// Package config loads runtime settings for the djmix CLI and worker from
// the environment, after reading a .env file when one is present.
package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the resolved runtime configuration.
type Config struct {
	SampleRate    float64
	BlockSize     int
	LogLevel      string
	LogFile       string
	WorkerAddr    string
	WorkerURL     string
	WorkerTimeout time.Duration
	IRTimeout     time.Duration
	MinIO         MinIO
	Redis         Redis
}

// MinIO addresses the blob store used by the worker.
type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether an endpoint is configured.
func (m MinIO) Enabled() bool { return m.Endpoint != "" }

// Redis addresses the worker result cache.
type Redis struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a host is configured.
func (r Redis) Enabled() bool { return r.Host != "" }

// Addr returns host:port.
func (r Redis) Addr() string { return net.JoinHostPort(r.Host, r.Port) }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}

	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}

	return fallback
}

// Load reads the given .env files (".env" when none are named) without
// overriding variables already set, then resolves every setting with its
// default. Missing files are not an error.
func Load(files ...string) *Config {
	_ = godotenv.Load(files...)

	return &Config{
		SampleRate:    getEnvFloat("DJMIX_SAMPLE_RATE", 48000),
		BlockSize:     getEnvInt("DJMIX_BLOCK_SIZE", 512),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		WorkerAddr:    getEnv("WORKER_ADDR", ":8090"),
		WorkerURL:     getEnv("WORKER_URL", ""),
		WorkerTimeout: getEnvDuration("WORKER_TIMEOUT", 30*time.Second),
		IRTimeout:     getEnvDuration("IR_TIMEOUT", 10*time.Second),
		MinIO: MinIO{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "djmix"),
			Region:    getEnv("MINIO_REGION", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: Redis{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_TTL", 24*time.Hour),
		},
	}
}
