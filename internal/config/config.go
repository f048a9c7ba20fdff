// Package config defines the pipeline's configuration tree, adapted from
// the prior config.Config struct-of-structs and its env-override-over-
// JSON-file loading order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full configuration tree for one pipeline instance.
type Config struct {
	Account    AccountConfig    `json:"account"`
	Candles    CandlesConfig    `json:"candles"`
	Deadlines  DeadlinesConfig  `json:"adapter_deadlines"`
	Thresholds ThresholdsConfig `json:"thresholds"`
	Weights    WeightsConfig    `json:"weights"`
	Decision   DecisionConfig   `json:"decision"`
	Adapters   AdaptersConfig   `json:"adapters"`
	Server     ServerConfig     `json:"server"`
	Redis      RedisConfig      `json:"redis"`
	Database   DatabaseConfig   `json:"database"`
	Logging    LoggingConfig    `json:"logging"`
}

// AccountConfig carries the risk/leverage defaults requires as an
// explicit record rather than an unstructured property bag.
type AccountConfig struct {
	RiskPercent         float64 `json:"risk_percent"`          // fraction 0..1
	Leverage            int     `json:"leverage"`              // int >= 1
	MaxPositionFraction float64 `json:"max_position_fraction"` // 0..1
	StopLossPct         float64 `json:"stop_loss_pct"`         // optional fraction; 0 = auto by volatility band
}

// CandlesConfig controls the integrator's candle window.
type CandlesConfig struct {
	Window        int    `json:"candle_window"` // int >= 8
	Interval      string `json:"interval"`
	ShortMAPeriod int    `json:"short_ma_period"`
	LongMAPeriod  int    `json:"long_ma_period"`
}

// DeadlinesConfig is the per-family timeout in seconds (/).
type DeadlinesConfig struct {
	CandlesSecs          int `json:"candles"`
	OrderBookSecs        int `json:"order_book"`
	GasSecs              int `json:"gas"`
	NewsSecs             int `json:"news"`
	SentimentSecs        int `json:"sentiment"`
	MacroSecs            int `json:"macro"`
	FuturesSecs          int `json:"futures"`
	PredictionMarketSecs int `json:"prediction_market"`
	AIPredictorsSecs     int `json:"ai_predictors"`
	WholeRequestSecs     int `json:"whole_request"`
}

// ThresholdsConfig is the decision engine's tunable cutoffs.
type ThresholdsConfig struct {
	BuyScore       float64 `json:"buy_score"`
	SellScore      float64 `json:"sell_score"`
	MinConsistency float64 `json:"min_consistency"`
}

// WeightsConfig is the base category weight map, which must sum
// to 1.
type WeightsConfig struct {
	News      float64 `json:"news"`
	Price     float64 `json:"price"`
	Sentiment float64 `json:"sentiment"`
	AI        float64 `json:"ai"`
}

// Validate reports whether the weights sum to 1 within a small epsilon,
// mirroring the prior confluence.Scorer.SetWeights validation.
func (w WeightsConfig) Validate() error {
	sum := w.News + w.Price + w.Sentiment + w.AI
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("config: category weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// DecisionConfig holds engine-level behavioral knobs.
type DecisionConfig struct {
	// AllowAIOverride is loaded from JSON and ALLOW_AI_OVERRIDE (default
	// false), but the decision engine and pipeline do not read it: the AI
	// layer stays advisory-only and never changes the action, whatever its
	// value.
	AllowAIOverride bool `json:"allow_ai_override"`
	ExtendedLayout  bool `json:"extended_layout"`
}

// AdaptersConfig carries the base URL + API-key-environment-variable
// lookup for every optional source adapter (: "<SOURCE>_API_KEY").
type AdaptersConfig struct {
	CandlesBaseURL          string `json:"candles_base_url"`
	OrderBookBaseURL        string `json:"order_book_base_url"`
	GasBaseURL              string `json:"gas_base_url"`
	NewsBaseURL             string `json:"news_base_url"`
	SentimentBaseURL        string `json:"sentiment_base_url"`
	MacroBaseURL            string `json:"macro_base_url"`
	FuturesBaseURL          string `json:"futures_base_url"`
	PredictionMarketBaseURL string `json:"prediction_market_base_url"`
	NewsKeywords            []string `json:"news_keywords"`
	AIPredictorBaseURLs     []string `json:"ai_predictor_base_urls"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int    `json:"port"`
	Host           string `json:"host"`
	AllowedOrigins string `json:"allowed_origins"`
	ReadTimeout    int    `json:"read_timeout"`
	WriteTimeout   int    `json:"write_timeout"`
}

// RedisConfig configures the response cache.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	TTLSecs  int    `json:"ttl_secs"`
}

// DatabaseConfig configures optional backtest/analysis persistence.
type DatabaseConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn"`
}

// LoggingConfig mirrors the prior LoggingConfig shape.
type LoggingConfig struct {
	Level      string `json:"level"`
	Output     string `json:"output"`
	JSONFormat bool   `json:"json_format"`
}

// Load reads .env (if present, trying the prior multi-path search
// order), then a JSON config file if one exists, then applies environment
// overrides, which always win.
func Load(jsonPath string) (*Config, error) {
	loadDotEnv()

	cfg, err := loadFromFile(jsonPath)
	if err != nil {
		cfg = &Config{}
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv tries the same handful of relative paths the prior
// cmd/analyze_trades/main.go does, since the working directory varies
// between `go run ./cmd/fusionquant` and a built binary.
func loadDotEnv() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func loadFromFile(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Account.RiskPercent == 0 {
		cfg.Account.RiskPercent = 0.01
	}
	if cfg.Account.Leverage == 0 {
		cfg.Account.Leverage = 5
	}
	if cfg.Account.MaxPositionFraction == 0 {
		cfg.Account.MaxPositionFraction = 0.15
	}
	if cfg.Candles.Window == 0 {
		cfg.Candles.Window = 24
	}
	if cfg.Candles.Interval == "" {
		cfg.Candles.Interval = "1h"
	}
	if cfg.Candles.ShortMAPeriod == 0 {
		cfg.Candles.ShortMAPeriod = 7
	}
	if cfg.Candles.LongMAPeriod == 0 {
		cfg.Candles.LongMAPeriod = 25
	}
	if (cfg.Weights == WeightsConfig{}) {
		cfg.Weights = WeightsConfig{News: 0.30, Price: 0.25, Sentiment: 0.25, AI: 0.20}
	}
	if (cfg.Thresholds == ThresholdsConfig{}) {
		cfg.Thresholds = ThresholdsConfig{BuyScore: 75, SellScore: 25, MinConsistency: 0.80}
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.AllowedOrigins == "" {
		cfg.Server.AllowedOrigins = "*"
	}
	if cfg.Redis.TTLSecs == 0 {
		cfg.Redis.TTLSecs = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// applyEnvOverrides lets environment variables win over both the JSON file
// and the defaults above, mirroring the prior env-overrides-always-win
// convention.
func applyEnvOverrides(cfg *Config) {
	cfg.Account.RiskPercent = getEnvFloatOrDefault("RISK_PERCENT", cfg.Account.RiskPercent)
	cfg.Account.Leverage = getEnvIntOrDefault("LEVERAGE", cfg.Account.Leverage)
	cfg.Account.MaxPositionFraction = getEnvFloatOrDefault("MAX_POSITION_FRACTION", cfg.Account.MaxPositionFraction)
	cfg.Account.StopLossPct = getEnvFloatOrDefault("STOP_LOSS_PCT", cfg.Account.StopLossPct)

	cfg.Candles.Window = getEnvIntOrDefault("CANDLE_WINDOW", cfg.Candles.Window)
	cfg.Candles.Interval = getEnvOrDefault("CANDLE_INTERVAL", cfg.Candles.Interval)

	cfg.Server.Port = getEnvIntOrDefault("PORT", cfg.Server.Port)
	cfg.Server.Host = getEnvOrDefault("HOST", cfg.Server.Host)
	cfg.Server.AllowedOrigins = getEnvOrDefault("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Redis.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.Redis.Enabled)) == "true"
	cfg.Redis.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.Redis.Address)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.TTLSecs = getEnvIntOrDefault("REDIS_TTL_SECS", cfg.Redis.TTLSecs)

	cfg.Database.Enabled = getEnvOrDefault("DATABASE_ENABLED", boolString(cfg.Database.Enabled)) == "true"
	cfg.Database.DSN = getEnvOrDefault("DATABASE_DSN", cfg.Database.DSN)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnvOrDefault("LOG_OUTPUT", cfg.Logging.Output)
	cfg.Logging.JSONFormat = getEnvOrDefault("LOG_JSON", boolString(cfg.Logging.JSONFormat)) == "true"

	cfg.Decision.AllowAIOverride = getEnvOrDefault("ALLOW_AI_OVERRIDE", boolString(cfg.Decision.AllowAIOverride)) == "true"
	cfg.Decision.ExtendedLayout = getEnvOrDefault("EXTENDED_LAYOUT", boolString(cfg.Decision.ExtendedLayout)) == "true"

	// Adapter API keys: per, a blank <SOURCE>_API_KEY disables that
	// adapter rather than failing hard.
	cfg.Adapters.CandlesBaseURL = getEnvOrDefault("CANDLES_BASE_URL", cfg.Adapters.CandlesBaseURL)
	cfg.Adapters.OrderBookBaseURL = getEnvOrDefault("ORDER_BOOK_BASE_URL", cfg.Adapters.OrderBookBaseURL)
	cfg.Adapters.GasBaseURL = getEnvOrDefault("GAS_BASE_URL", cfg.Adapters.GasBaseURL)
	cfg.Adapters.NewsBaseURL = getEnvOrDefault("NEWS_BASE_URL", cfg.Adapters.NewsBaseURL)
	cfg.Adapters.SentimentBaseURL = getEnvOrDefault("SENTIMENT_BASE_URL", cfg.Adapters.SentimentBaseURL)
	cfg.Adapters.MacroBaseURL = getEnvOrDefault("MACRO_BASE_URL", cfg.Adapters.MacroBaseURL)
	cfg.Adapters.FuturesBaseURL = getEnvOrDefault("FUTURES_BASE_URL", cfg.Adapters.FuturesBaseURL)
	cfg.Adapters.PredictionMarketBaseURL = getEnvOrDefault("PREDICTION_MARKET_BASE_URL", cfg.Adapters.PredictionMarketBaseURL)
}

// APIKey reads the <SOURCE>_API_KEY environment variable for source.
func APIKey(source string) string {
	return os.Getenv(source + "_API_KEY")
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
