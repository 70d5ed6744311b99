package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig toggles the constraint-based schedule generator and
// carries the default solver tunables a generation request falls back
// to when it does not override them.
type SchedulerConfig struct {
	Enabled                bool
	ProposalTTL            time.Duration
	MaxIterations          int
	DailyLimit             int
	WeeklyLimit            int
	CoolingRate            float64
	ReheatTemperature      float64
	StagnationThreshold    int
	ShuffleThreshold       int
	ChainSearchLimit       int
	RevertOnReject         bool
	UseFullPenaltyAsEnergy bool
	AsyncWorkers           int
	AsyncMaxRetries        int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:                v.GetBool("ENABLE_SCHEDULER"),
		ProposalTTL:            parseDuration(v.GetString("SCHEDULER_PROPOSAL_TTL"), 30*time.Minute),
		MaxIterations:          v.GetInt("SCHEDULER_MAX_ITERATIONS"),
		DailyLimit:             v.GetInt("SCHEDULER_DAILY_LIMIT"),
		WeeklyLimit:            v.GetInt("SCHEDULER_WEEKLY_LIMIT"),
		CoolingRate:            v.GetFloat64("SCHEDULER_COOLING_RATE"),
		ReheatTemperature:      v.GetFloat64("SCHEDULER_REHEAT_TEMPERATURE"),
		StagnationThreshold:    v.GetInt("SCHEDULER_STAGNATION_THRESHOLD"),
		ShuffleThreshold:       v.GetInt("SCHEDULER_SHUFFLE_THRESHOLD"),
		ChainSearchLimit:       v.GetInt("SCHEDULER_CHAIN_SEARCH_LIMIT"),
		RevertOnReject:         v.GetBool("SCHEDULER_REVERT_ON_REJECT"),
		UseFullPenaltyAsEnergy: v.GetBool("SCHEDULER_USE_FULL_PENALTY_AS_ENERGY"),
		AsyncWorkers:           v.GetInt("SCHEDULER_ASYNC_WORKERS"),
		AsyncMaxRetries:        v.GetInt("SCHEDULER_ASYNC_MAX_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "admin_panel_sma")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", false)
	v.SetDefault("SCHEDULER_PROPOSAL_TTL", "30m")
	v.SetDefault("SCHEDULER_MAX_ITERATIONS", 1_000_000)
	v.SetDefault("SCHEDULER_DAILY_LIMIT", 7)
	v.SetDefault("SCHEDULER_WEEKLY_LIMIT", 35)
	v.SetDefault("SCHEDULER_COOLING_RATE", 1e-6)
	v.SetDefault("SCHEDULER_REHEAT_TEMPERATURE", 0.8)
	v.SetDefault("SCHEDULER_STAGNATION_THRESHOLD", 50_000)
	v.SetDefault("SCHEDULER_SHUFFLE_THRESHOLD", 200_000)
	v.SetDefault("SCHEDULER_CHAIN_SEARCH_LIMIT", 20)
	v.SetDefault("SCHEDULER_REVERT_ON_REJECT", false)
	v.SetDefault("SCHEDULER_USE_FULL_PENALTY_AS_ENERGY", true)
	v.SetDefault("SCHEDULER_ASYNC_WORKERS", 2)
	v.SetDefault("SCHEDULER_ASYNC_MAX_RETRIES", 2)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
