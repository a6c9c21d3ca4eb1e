package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the client
type Config struct {
	Environment     string   `mapstructure:"ENVIRONMENT"`
	APIBaseURL      string   `mapstructure:"API_BASE_URL"`
	CredentialsPath string   `mapstructure:"CREDENTIALS_PATH"`
	CredentialsKey  string   `mapstructure:"CREDENTIALS_KEY"`
	HTTPTimeout     int      `mapstructure:"HTTP_TIMEOUT"`
	ProtectedRoutes []string `mapstructure:"PROTECTED_ROUTES"`
	AuthPages       []string `mapstructure:"AUTH_PAGES"`

	// Derived token handling values
	RefreshTokenTTL  time.Duration
	ExpirySoonWindow time.Duration
}

// LoadConfig loads the configuration from environment variables and config files
func LoadConfig(configPath string) (*Config, error) {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Set default values
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("API_BASE_URL", "http://localhost:8080")
	viper.SetDefault("CREDENTIALS_PATH", "fitpulse.db")
	viper.SetDefault("CREDENTIALS_KEY", "fitpulse-local-dev")
	viper.SetDefault("HTTP_TIMEOUT", 30) // seconds
	viper.SetDefault("PROTECTED_ROUTES", []string{"/dashboard", "/profile", "/settings"})
	viper.SetDefault("AUTH_PAGES", []string{"/auth/login", "/auth/register", "/auth/forgot-password"})

	// Read environment variables
	viper.AutomaticEnv()
	_ = viper.BindEnv("API_BASE_URL")
	_ = viper.BindEnv("CREDENTIALS_PATH")
	_ = viper.BindEnv("CREDENTIALS_KEY")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Set derived values
	config.RefreshTokenTTL = 30 * 24 * time.Hour
	config.ExpirySoonWindow = 5 * time.Minute

	return &config, nil
}
