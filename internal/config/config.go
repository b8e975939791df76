package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort      int           `mapstructure:"APP_PORT"`
	DatabasePath string        `mapstructure:"DATABASE_PATH"`
	RedisAddr    string        `mapstructure:"REDIS_ADDR"`
	GeminiAPIURL string        `mapstructure:"GEMINI_API_URL"`
	GeminiAPIKey string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string        `mapstructure:"GEMINI_MODEL"`
	SessionTTL   time.Duration `mapstructure:"SESSION_TTL"`
	StaticDir    string        `mapstructure:"STATIC_DIR"`
	LogLevel     string        `mapstructure:"LOG_LEVEL"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	viper.SetDefault("DATABASE_PATH", "/data/sparkchat.db")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("GEMINI_API_URL", "https://generativelanguage.googleapis.com")
	// The API key has no default on purpose: it must come from the environment
	// and never ships to the browser.
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("STATIC_DIR", "./web")
	viper.SetDefault("LOG_LEVEL", "INFO")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
