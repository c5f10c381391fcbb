package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	API  APIConfig
	Push PushConfig
	Auth AuthConfig
}

type APIConfig struct {
	BaseURL string
	Timeout int // seconds
}

type PushConfig struct {
	URL          string
	RetryBackoff int // seconds, single reconnect attempt
	PingInterval int // seconds
}

type AuthConfig struct {
	Token string
}

func Load() (*Config, error) {
	readSecret("FABLECRAFT_TOKEN")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("api.base_url", "API_BASE_URL")
	_ = viper.BindEnv("api.timeout", "API_TIMEOUT")
	_ = viper.BindEnv("push.url", "PUSH_URL")
	_ = viper.BindEnv("push.retry_backoff", "PUSH_RETRY_BACKOFF")
	_ = viper.BindEnv("push.ping_interval", "PUSH_PING_INTERVAL")
	_ = viper.BindEnv("auth.token", "FABLECRAFT_TOKEN")

	viper.SetDefault("api.base_url", "http://localhost:8000")
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("push.url", "ws://localhost:8000/ws/session")
	viper.SetDefault("push.retry_backoff", 3)
	viper.SetDefault("push.ping_interval", 30)

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		API: APIConfig{
			BaseURL: viper.GetString("api.base_url"),
			Timeout: viper.GetInt("api.timeout"),
		},
		Push: PushConfig{
			URL:          viper.GetString("push.url"),
			RetryBackoff: viper.GetInt("push.retry_backoff"),
			PingInterval: viper.GetInt("push.ping_interval"),
		},
		Auth: AuthConfig{
			Token: viper.GetString("auth.token"),
		},
	}

	return cfg, nil
}
