package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OTP      OTPConfig
	Twilio   TwilioConfig
	Resend   ResendConfig
	JWT      JWTConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds unified Redis connection settings.
// Supported modes: single, sentinel, cluster.
type RedisConfig struct {
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
}

// OTPConfig holds one-time code issuance/verification knobs.
type OTPConfig struct {
	TTLMinutes             int `mapstructure:"ttl_minutes"`
	MaxAttempts            int `mapstructure:"max_attempts"`
	RateWindowSeconds      int `mapstructure:"rate_window_seconds"`
	RateMaxRequests        int `mapstructure:"rate_max_requests"`
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds"`
	// DevMode retains plaintext codes alongside digests. Never enable
	// in production.
	DevMode bool `mapstructure:"dev_mode"`
}

// TwilioConfig holds SMS provider credentials. Leaving these empty
// disables the sms channel.
type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
}

// ResendConfig holds email provider credentials. Leaving these empty
// disables the email channel.
type ResendConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
}

// JWTConfig holds settings for validating admin tokens on privileged routes.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// PostgresConnectionString builds the PostgreSQL DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from an optional yaml file merged with
// explicitly bound environment variables.
func Load(configPath string) (*Config, error) {
	vip := viper.New()

	vip.SetDefault("server.port", "8080")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("otp.ttl_minutes", 5)
	vip.SetDefault("otp.max_attempts", 3)
	vip.SetDefault("otp.rate_window_seconds", 60)
	vip.SetDefault("otp.rate_max_requests", 3)
	vip.SetDefault("otp.cleanup_interval_seconds", 60)

	vip.BindEnv("server.port", "SERVER_PORT")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("otp.ttl_minutes", "OTP_TTL_MINUTES")
	vip.BindEnv("otp.max_attempts", "OTP_MAX_ATTEMPTS")
	vip.BindEnv("otp.rate_window_seconds", "OTP_RATE_WINDOW_SECONDS")
	vip.BindEnv("otp.rate_max_requests", "OTP_RATE_MAX_REQUESTS")
	vip.BindEnv("otp.cleanup_interval_seconds", "OTP_CLEANUP_INTERVAL_SECONDS")
	vip.BindEnv("otp.dev_mode", "OTP_DEV_MODE")

	vip.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID")
	vip.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN")
	vip.BindEnv("twilio.from_number", "TWILIO_FROM_NUMBER")

	vip.BindEnv("resend.api_key", "RESEND_API_KEY")
	vip.BindEnv("resend.from_email", "RESEND_FROM_EMAIL")

	vip.BindEnv("jwt.secret", "JWT_SECRET")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Config file '%s' not found, relying on environment variables/defaults.", configPath)
			} else {
				log.Printf("Warning: failed to read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Loaded configuration ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("OTP TTL minutes: %d", cfg.OTP.TTLMinutes)
		log.Printf("OTP Dev Mode: %t", cfg.OTP.DevMode)
		log.Printf("Twilio configured: %t", cfg.Twilio.AccountSID != "")
		log.Printf("Resend configured: %t", cfg.Resend.APIKey != "")
		log.Printf("----------------------------")
	}

	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required (check JWT_SECRET env var)")
	}
	if os.Getenv("GIN_MODE") == "release" && cfg.OTP.DevMode {
		return nil, fmt.Errorf("OTP dev mode must not be enabled in release mode")
	}

	return &cfg, nil
}
