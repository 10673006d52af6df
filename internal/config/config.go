/**
 * @description
 * This file handles the configuration management for the billing-service.
 * It uses the Viper library to load settings from environment variables or a
 * local .env file, and validates that the secrets the service cannot run
 * without are present.
 *
 * @dependencies
 * - github.com/spf13/viper: A powerful configuration library for Go applications.
 */
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
}

// LoadConfig reads configuration from environment variables or a .env file.
func LoadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.SetDefault("SERVER_PORT", "8086")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("STRIPE_SECRET_KEY")
	_ = viper.BindEnv("STRIPE_WEBHOOK_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, err
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config.DatabaseURL == "" {
		return config, errors.New("DATABASE_URL environment variable is not set")
	}
	if config.StripeSecretKey == "" {
		return config, errors.New("STRIPE_SECRET_KEY environment variable is not set")
	}
	if config.StripeWebhookSecret == "" {
		return config, errors.New("STRIPE_WEBHOOK_SECRET environment variable is not set")
	}

	return config, nil
}
