// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Addr     string `env:"ADDR" envDefault:":8787"`
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Normalization model
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Feedback search service
	SearchBaseURL string `env:"SEARCH_BASE_URL"`
	SearchAPIKey  string `env:"SEARCH_API_KEY"`
	SearchIndex   string `env:"SEARCH_INDEX" envDefault:"feedback-rag"`

	// Object store (R2 or any S3-compatible endpoint)
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET" envDefault:"feedback"`
	S3Region    string `env:"S3_REGION" envDefault:"auto"`
	S3UseSSL    bool   `env:"S3_USE_SSL" envDefault:"true"`

	// Chat platform
	DiscordPublicKey string `env:"DISCORD_PUBLIC_KEY"`
	DiscordAppID     string `env:"DISCORD_APP_ID"`
	DiscordBotToken  string `env:"DISCORD_BOT_TOKEN"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
