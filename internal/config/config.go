// Package config 配置
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 服务配置
type Config struct {
	ServiceName string
	HTTPPort    int
	Debug       bool

	// PostgreSQL
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisAddr     string
	RedisPassword string

	// Upstream services
	UserServiceURL    string
	ProductServiceURL string

	// Outbound HTTP policy
	ClientConnectTimeout time.Duration
	ClientTimeout        time.Duration

	// Order events
	OrderStream string

	// Order read cache
	OrderCacheTTL time.Duration

	// Saga logs
	SagaLogTTL time.Duration

	// Tracing
	Tracing TracingConfig
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled        bool
	JaegerEndpoint string
	SampleRate     float64
}

// Load 加载配置。.env 文件存在时先读入（本地开发），环境变量优先。
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "order-service"),
		HTTPPort:    getEnvInt("HTTP_PORT", 8002),
		Debug:       getEnvBool("APP_DEBUG", false),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "shopmesh"),
		DBPassword: getEnv("DB_PASSWORD", "shopmesh123"),
		DBName:     getEnv("DB_NAME", "orders"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		UserServiceURL:    getEnv("USER_SERVICE_URL", "http://localhost:8000"),
		ProductServiceURL: getEnv("PRODUCT_SERVICE_URL", "http://localhost:8001"),

		ClientConnectTimeout: getEnvDuration("CLIENT_CONNECT_TIMEOUT", 5*time.Second),
		ClientTimeout:        getEnvDuration("CLIENT_TIMEOUT", 10*time.Second),

		OrderStream: getEnv("ORDER_STREAM", "shopmesh:orders"),

		OrderCacheTTL: getEnvDuration("ORDER_CACHE_TTL", 5*time.Minute),

		SagaLogTTL: getEnvDuration("SAGA_LOG_TTL", 24*time.Hour),

		Tracing: TracingConfig{
			Enabled:        getEnvBool("TRACING_ENABLED", false),
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			SampleRate:     getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
	}
}

// DSN 返回数据库连接字符串
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" port=" + strconv.Itoa(c.DBPort) +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=disable"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
