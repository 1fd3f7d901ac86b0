package config

import (
	"fmt"
	"strconv"
	"time"

	"wego-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Battle    BattleConfig
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	CookieSecure    bool
	CookieSameSite  string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

// BattleConfig drives every live battle the server hosts.
type BattleConfig struct {
	PlanningSeconds  float64
	AnimationSeconds float64
	TickInterval     time.Duration
	SnapshotTTL      time.Duration
	EventBuffer      int64
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	battle, err := loadBattleConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Battle:    battle,
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "true") == "true"
	redisURL := utils.GetEnv("REDIS_URL", "")

	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:  enabled,
		URL:      redisURL,
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "wego"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadAuthConfig() AuthConfig {
	tokenExpiration, _ := strconv.Atoi(utils.GetEnv("JWT_EXPIRATION_HOURS", "24"))
	cookieSecure := utils.GetEnv("ENVIRONMENT", "development") == "production"

	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(tokenExpiration) * time.Hour,
		CookieSecure:    cookieSecure,
		CookieSameSite:  utils.GetEnv("COOKIE_SAME_SITE", "lax"),
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     utils.GetEnv("LOG_FORMAT", "text"),
		JSONFormat: jsonFormat,
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_BURST_SIZE", "20"))

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
		TrustProxy:        utils.GetEnv("RATE_LIMIT_TRUST_PROXY", "false") == "true",
	}
}

// Unlike the other groups, malformed battle numbers are rejected rather
// than silently zeroed.
func loadBattleConfig() (BattleConfig, error) {
	planning, err := strconv.ParseFloat(utils.GetEnv("BATTLE_PLANNING_SECONDS", "15"), 64)
	if err != nil {
		return BattleConfig{}, fmt.Errorf("BATTLE_PLANNING_SECONDS: %w", err)
	}
	animation, err := strconv.ParseFloat(utils.GetEnv("BATTLE_ANIMATION_SECONDS", "5"), 64)
	if err != nil {
		return BattleConfig{}, fmt.Errorf("BATTLE_ANIMATION_SECONDS: %w", err)
	}
	tickMillis, err := strconv.Atoi(utils.GetEnv("BATTLE_TICK_INTERVAL_MS", "1000"))
	if err != nil {
		return BattleConfig{}, fmt.Errorf("BATTLE_TICK_INTERVAL_MS: %w", err)
	}
	ttlMinutes, err := strconv.Atoi(utils.GetEnv("BATTLE_SNAPSHOT_TTL_MINUTES", "60"))
	if err != nil {
		return BattleConfig{}, fmt.Errorf("BATTLE_SNAPSHOT_TTL_MINUTES: %w", err)
	}
	buffer, err := strconv.ParseInt(utils.GetEnv("BATTLE_EVENT_BUFFER", "64"), 10, 64)
	if err != nil {
		return BattleConfig{}, fmt.Errorf("BATTLE_EVENT_BUFFER: %w", err)
	}

	return BattleConfig{
		PlanningSeconds:  planning,
		AnimationSeconds: animation,
		TickInterval:     time.Duration(tickMillis) * time.Millisecond,
		SnapshotTTL:      time.Duration(ttlMinutes) * time.Minute,
		EventBuffer:      buffer,
	}, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Battle.PlanningSeconds <= 0 {
		return fmt.Errorf("BATTLE_PLANNING_SECONDS must be positive")
	}

	if c.Battle.AnimationSeconds <= 0 {
		return fmt.Errorf("BATTLE_ANIMATION_SECONDS must be positive")
	}

	if c.Battle.TickInterval <= 0 {
		return fmt.Errorf("BATTLE_TICK_INTERVAL_MS must be positive")
	}

	if c.Battle.SnapshotTTL <= 0 {
		return fmt.Errorf("BATTLE_SNAPSHOT_TTL_MINUTES must be positive")
	}

	if c.Battle.EventBuffer < 0 {
		return fmt.Errorf("BATTLE_EVENT_BUFFER must not be negative")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
