package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Scan     ScanConfig
	Alerts   AlertsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Requests allowed per client per minute; 0 disables rate limiting.
	RateLimitPerMinute int
}

type ScanConfig struct {
	Cooldown  time.Duration
	QueueSize int
}

type AlertsConfig struct {
	// Cron spec for the low-stock sweep; empty disables the job.
	SweepSchedule string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("SCAN_COOLDOWN_SECONDS", 2)
	viper.SetDefault("SCAN_QUEUE_SIZE", 64)
	viper.SetDefault("ALERT_SWEEP_SCHEDULE", "@daily")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:               viper.GetString("REDIS_HOST"),
			Port:               viper.GetString("REDIS_PORT"),
			Password:           viper.GetString("REDIS_PASSWORD"),
			DB:                 viper.GetInt("REDIS_DB"),
			RateLimitPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
		},
		Scan: ScanConfig{
			Cooldown:  time.Duration(viper.GetInt("SCAN_COOLDOWN_SECONDS")) * time.Second,
			QueueSize: viper.GetInt("SCAN_QUEUE_SIZE"),
		},
		Alerts: AlertsConfig{
			SweepSchedule: viper.GetString("ALERT_SWEEP_SCHEDULE"),
		},
	}
}
