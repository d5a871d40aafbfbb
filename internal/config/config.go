package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Redis      RedisConfig
	Tracing    TracingConfig    `mapstructure:"tracing"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Proctoring ProctoringConfig `mapstructure:"proctoring"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// PenaltyRule maps a (infraction type, occurrence) pair to the penalty
// applied when that occurrence is recorded.
type PenaltyRule struct {
	Type               string  `mapstructure:"type"`
	Occurrence         int     `mapstructure:"occurrence"`
	ScorePenalty       float64 `mapstructure:"score_penalty"`
	TimePenaltySeconds int     `mapstructure:"time_penalty_seconds"`
}

type ProctoringConfig struct {
	Penalties []PenaltyRule `mapstructure:"penalties"`
}

// PenaltyFor resolves the rule for the nth occurrence of an infraction type.
// Occurrences beyond the highest configured one keep applying the highest
// rule; an unconfigured type yields a zero-penalty rule.
func (p ProctoringConfig) PenaltyFor(infractionType string, occurrence int) PenaltyRule {
	var rules []PenaltyRule
	for _, r := range p.Penalties {
		if r.Type == infractionType && r.Occurrence <= occurrence {
			rules = append(rules, r)
		}
	}
	if len(rules) == 0 {
		return PenaltyRule{Type: infractionType, Occurrence: occurrence}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Occurrence < rules[j].Occurrence })
	rule := rules[len(rules)-1]
	rule.Occurrence = occurrence
	return rule
}

// RateWindow converts the configured window to a duration, defaulting to a
// minute when unset.
func (r RateLimitConfig) RateWindow() time.Duration {
	if r.WindowMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowMinutes) * time.Minute
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("PROVA")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}
