// Package config loads service configuration with Viper.
//
// Values come from config.yml (found under cmd/<service>/, config/ or the
// working directory, or named by $HTTPSMGR_CONFIG), then from a .env file
// loaded with godotenv, then from environment variables, each layer
// overriding the one before. Every config struct follows the
// ApplyDefaults/Validate convention; Load runs both.
//
//	cfg, err := config.Load[AppConfig]("httpsctl", config.WithEnvPrefix("HTTPSCTL"))
package config
