package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	State    StateConfig    `mapstructure:"state"`
	History  HistoryConfig  `mapstructure:"history"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	Debug       bool   `mapstructure:"debug"`
	PollTimeout int    `mapstructure:"poll_timeout"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AnalysisConfig struct {
	// DefaultInstruction overrides the built-in system prompt when set.
	DefaultInstruction string `mapstructure:"default_instruction"`
}

type StateConfig struct {
	Backend  string        `mapstructure:"backend"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

type HistoryConfig struct {
	PageSize       int `mapstructure:"page_size"`
	SynopsisLength int `mapstructure:"synopsis_length"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

const (
	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads .env (if present), the YAML file at path (if present) and
// the environment, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// Set default values
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "vibe_tracker")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 600)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("state.backend", StateBackendMemory)
	v.SetDefault("state.ttl", 24*time.Hour)
	v.SetDefault("history.page_size", 5)
	v.SetDefault("history.synopsis_length", 40)
	v.SetDefault("log.level", "info")

	// Enable environment variable support, e.g. OPENAI_MODEL for openai.model
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.UseInMemory = config.Database.UseInMemory
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.State.RedisURL = redisURL
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (TELEGRAM_TOKEN)")
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("openai api key is required (OPENAI_API_KEY)")
	}
	if c.OpenAI.Timeout <= 0 {
		return fmt.Errorf("openai.timeout must be positive, got %s", c.OpenAI.Timeout)
	}
	if c.History.PageSize <= 0 {
		return fmt.Errorf("history.page_size must be positive, got %d", c.History.PageSize)
	}
	if c.History.SynopsisLength <= 0 {
		return fmt.Errorf("history.synopsis_length must be positive, got %d", c.History.SynopsisLength)
	}

	switch c.State.Backend {
	case StateBackendMemory:
	case StateBackendRedis:
		if c.State.RedisURL == "" {
			return errors.New("state.redis_url is required when state.backend=redis")
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	return nil
}
