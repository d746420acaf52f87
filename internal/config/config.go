// Package config provides configuration loading, validation, and defaults
// for the ClaraBot application. Values come from defaults, an optional
// config.yaml, and BOT_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration parameters for all components
// of the ClaraBot system: logging, webhook server, storage, session cache,
// WAHA transport, AI integration, and the collaborator services.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	WAHA      WAHAConfig      `mapstructure:"waha"`
	Bot       BotConfig       `mapstructure:"bot"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Forms     FormsConfig     `mapstructure:"forms"`
	Shortener ShortenerConfig `mapstructure:"shortener"`
	Media     MediaConfig     `mapstructure:"media"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds the webhook HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,min=1s,max=1m"`
}

// DatabaseConfig holds the SQLite database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RedisConfig holds the session cache settings.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// SessionConfig bounds per-chat session storage.
type SessionConfig struct {
	CacheTTL         time.Duration `mapstructure:"cache_ttl"          validate:"required,min=1m,max=24h"`
	StateSizeCap     int           `mapstructure:"state_size_cap"     validate:"required,min=1024"`
	MaxContentLength int           `mapstructure:"max_content_length" validate:"required,min=100"`
	IdleRetention    time.Duration `mapstructure:"idle_retention"     validate:"required,min=24h"`
}

// WAHAConfig holds the connection settings for the WAHA messaging gateway.
type WAHAConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key"`
	Session string `mapstructure:"session"  validate:"required"`
}

// BotConfig holds the bot identity, access control lists, and canned messages.
type BotConfig struct {
	PhoneNumber    string   `mapstructure:"phone_number" validate:"required"`
	LID            string   `mapstructure:"lid"`
	AllowedUsers   []string `mapstructure:"allowed_users"`
	AllowedGroups  []string `mapstructure:"allowed_groups"`
	MentionAliases []string `mapstructure:"mention_aliases"`

	Messages BotMessages `mapstructure:"messages"`
}

// BotMessages are the fixed user-facing replies used when generation is
// unavailable or the dispatcher answers inline.
type BotMessages struct {
	GeneralError       string   `mapstructure:"general_error"        validate:"required"`
	AckFallback        string   `mapstructure:"ack_fallback"         validate:"required"`
	ClarifyFallback    string   `mapstructure:"clarify_fallback"     validate:"required"`
	Acknowledgments    []string `mapstructure:"acknowledgments"      validate:"required,min=1"`
	EmptyReplyFallback string   `mapstructure:"empty_reply_fallback" validate:"required"`
}

// GeminiConfig holds the settings for the Gemini AI client.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"             validate:"required"`
	Model             string        `mapstructure:"model"               validate:"required"`
	Temperature       float32       `mapstructure:"temperature"         validate:"min=0,max=2"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"required,min=1s,max=10m"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=5"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
}

// FormsConfig holds the form-backend (Apps Script bridge) settings.
type FormsConfig struct {
	ScriptURL string        `mapstructure:"script_url" validate:"required,url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"    validate:"required,min=1s,max=5m"`
}

// ShortenerConfig holds the TinyURL settings. An empty token disables
// shortening; tools then hand out the long form URL.
type ShortenerConfig struct {
	APIToken string `mapstructure:"api_token"`
}

// MediaConfig holds the settings for the document text-extraction service
// (a Tika-compatible HTTP endpoint). An empty URL disables extraction.
type MediaConfig struct {
	ExtractorURL string        `mapstructure:"extractor_url" validate:"omitempty,url"`
	Timeout      time.Duration `mapstructure:"timeout"       validate:"required,min=1s,max=5m"`
}

// SchedulerConfig controls the background maintenance tasks.
type SchedulerConfig struct {
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval" validate:"required,min=1h"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"       validate:"required,min=1h"`
}

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file (optional)
// 3. BOT_* environment variables
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay, defaults plus env are enough
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", true)

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("database.path", "storage.db")

	viper.SetDefault("redis.url", "redis://localhost:6379")

	viper.SetDefault("session.cache_ttl", time.Hour)
	viper.SetDefault("session.state_size_cap", 1<<20)
	viper.SetDefault("session.max_content_length", 4000)
	viper.SetDefault("session.idle_retention", 30*24*time.Hour)

	viper.SetDefault("waha.base_url", "http://localhost:5000")
	viper.SetDefault("waha.session", "default")

	viper.SetDefault("gemini.model", "gemini-2.0-flash")
	viper.SetDefault("gemini.temperature", 0.7)
	viper.SetDefault("gemini.timeout", 2*time.Minute)
	viper.SetDefault("gemini.max_retries", 2)
	viper.SetDefault("gemini.retry_delay_seconds", 2)

	viper.SetDefault("forms.timeout", time.Minute)

	viper.SetDefault("media.timeout", 45*time.Second)

	viper.SetDefault("scheduler.maintenance_interval", 24*time.Hour)
	viper.SetDefault("scheduler.sweep_interval", 12*time.Hour)

	viper.SetDefault("bot.messages.general_error", "Mohon maaf, terjadi kesalahan teknis. Silakan coba lagi sebentar lagi ya! 🙏")
	viper.SetDefault("bot.messages.ack_fallback", "Siap, permintaan form-nya sedang diproses. Mohon tunggu sebentar ya!")
	viper.SetDefault("bot.messages.clarify_fallback", "Maaf, bisa jelaskan lebih detail apa yang ingin Anda tanyakan? 🤔")
	viper.SetDefault("bot.messages.empty_reply_fallback", "Maaf, saya tidak menemukan jawaban yang pas. Bisa ulangi pertanyaannya?")
	viper.SetDefault("bot.messages.acknowledgments", []string{
		"Sama-sama! Senang bisa membantu. 😊",
		"Siap, kabari saja kalau butuh bantuan lagi ya!",
		"Baik! Ada lagi yang bisa saya bantu?",
	})
}
