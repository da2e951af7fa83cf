package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	AdminKey          string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	RefreshInterval   time.Duration `mapstructure:"REFRESH_INTERVAL"`
	NeutralEventColor string        `mapstructure:"NEUTRAL_EVENT_COLOR"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REFRESH_INTERVAL", "30s")
	v.SetDefault("NEUTRAL_EVENT_COLOR", "#6B7280")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
