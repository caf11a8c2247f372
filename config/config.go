package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"quant_terminal/internal/models"
)

type PriceSource string

const (
	SourceCoinGecko PriceSource = "coingecko"
	SourceBinance   PriceSource = "binance"
)

type Config struct {
	GeminiAPIKey   string
	GeminiBaseURL  string
	AnalysisModel  string
	ChatModel      string
	ChatGrounded   bool
	RetryAttempts  int
	RetryBaseDelay time.Duration

	Port           string
	InitialBalance float64
	HistoryLength  int
	PollInterval   time.Duration

	PriceSource      PriceSource
	CoinGeckoURL     string
	BinanceAPIKey    string
	BinanceSecretKey string

	TelegramToken    string
	AuthorizedUserID int64

	LogFile string

	Symbols         []string
	ReferencePrices map[string]float64
	News            []models.NewsItem
}

// fileConfig is the optional YAML overlay. Environment variables take precedence.
type fileConfig struct {
	Port            string             `yaml:"port"`
	InitialBalance  float64            `yaml:"initial_balance"`
	HistoryLength   int                `yaml:"history_length"`
	PollInterval    string             `yaml:"poll_interval"`
	PriceSource     string             `yaml:"price_source"`
	AnalysisModel   string             `yaml:"analysis_model"`
	ChatModel       string             `yaml:"chat_model"`
	Symbols         []string           `yaml:"symbols"`
	ReferencePrices map[string]float64 `yaml:"reference_prices"`
	News            []models.NewsItem  `yaml:"news"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	path := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := LoadFrom(path)
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	return cfg
}

// LoadFrom builds the configuration from the YAML file at path (a missing file is fine)
// and the process environment.
func LoadFrom(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AnalysisModel:    getEnv("ANALYSIS_MODEL", orDefault(fc.AnalysisModel, "gemini-3-pro-preview")),
		ChatModel:        getEnv("CHAT_MODEL", orDefault(fc.ChatModel, "gemini-3-flash-preview")),
		Port:             getEnv("PORT", orDefault(fc.Port, "8080")),
		CoinGeckoURL:     getEnv("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogFile:          os.Getenv("LOG_FILE"),
		Symbols:          fc.Symbols,
		ReferencePrices:  fc.ReferencePrices,
		News:             fc.News,
	}

	var err error
	if cfg.AuthorizedUserID, err = getInt64("AUTHORIZED_USER_ID", 0); err != nil {
		return nil, err
	}
	if cfg.ChatGrounded, err = getBool("CHAT_GROUNDED", false); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = getInt("RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = getDuration("RETRY_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.HistoryLength, err = getInt("HISTORY_LENGTH", orDefault(fc.HistoryLength, 120)); err != nil {
		return nil, err
	}
	if cfg.InitialBalance, err = getFloat("INITIAL_BALANCE", orDefault(fc.InitialBalance, 100000)); err != nil {
		return nil, err
	}

	poll := 10 * time.Second
	if fc.PollInterval != "" {
		if poll, err = time.ParseDuration(fc.PollInterval); err != nil {
			return nil, fmt.Errorf("poll_interval: %w", err)
		}
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", poll); err != nil {
		return nil, err
	}

	cfg.PriceSource = PriceSource(strings.ToLower(getEnv("PRICE_SOURCE", orDefault(fc.PriceSource, string(SourceCoinGecko)))))
	if cfg.PriceSource != SourceCoinGecko && cfg.PriceSource != SourceBinance {
		return nil, fmt.Errorf("PRICE_SOURCE: unknown source %q", cfg.PriceSource)
	}

	for i, s := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if cfg.RetryAttempts < 1 {
		return nil, fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.RetryBaseDelay < 0 {
		return nil, fmt.Errorf("RETRY_BASE_DELAY must not be negative")
	}
	if cfg.HistoryLength < 1 {
		return nil, fmt.Errorf("HISTORY_LENGTH must be at least 1")
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("INITIAL_BALANCE must be positive")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return cfg, nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
