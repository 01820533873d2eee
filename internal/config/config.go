package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	PriceSourceLive   = "live"
	PriceSourceStatic = "static"

	defaultTTSEndpoint = "https://translate.google.com/translate_tts"
)

type Config struct {
	TelegramToken string
	BotName       string
	BotWorkers    int
	VoiceReplies  bool

	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	ProviderTimeout time.Duration

	PriceSource  string
	PriceTimeout time.Duration

	TTSEndpoint string
	TTSLanguage string
	TTSTimeout  time.Duration

	DatabaseURL string
	HTTPPort    string
	LogLevel    string
}

// LoadConfig reads the environment (and a .env file when present). Every key
// has a usable default: without AI keys the offline responder answers and
// without a Telegram token only the HTTP server runs.
func LoadConfig() *Config {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		BotName:       getEnv("BOT_NAME", "omnix123bot"),
		BotWorkers:    getEnvAsInt("BOT_WORKERS", 4),
		VoiceReplies:  getEnvAsBool("VOICE_REPLIES", true),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 8*time.Second),

		PriceSource:  strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceLive)),
		PriceTimeout: getEnvAsDuration("PRICE_TIMEOUT", 5*time.Second),

		TTSEndpoint: getEnv("TTS_ENDPOINT", defaultTTSEndpoint),
		TTSLanguage: getEnv("TTS_LANGUAGE", "es"),
		TTSTimeout:  getEnvAsDuration("TTS_TIMEOUT", 15*time.Second),

		DatabaseURL: getEnv("DATABASE_URL", "omnix_conversations.db"),
		HTTPPort:    getEnv("HTTP_PORT", getEnv("PORT", "5000")),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if cfg.PriceSource != PriceSourceLive && cfg.PriceSource != PriceSourceStatic {
		log.Warn().Str("price_source", cfg.PriceSource).Msg("Unknown PRICE_SOURCE, using static prices")
		cfg.PriceSource = PriceSourceStatic
	}
	if cfg.BotWorkers < 1 {
		cfg.BotWorkers = 1
	}

	return cfg
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("8s", "1m") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid duration, using default")
	return defaultValue
}
