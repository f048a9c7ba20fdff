package adapters

import (
	"os"

	"fusionquant/internal/config"
)

// BuildBundle constructs a live Bundle from cfg, wiring one HTTP-backed
// adapter per source family named in cfg.Adapters. A family whose base URL
// is empty still gets an adapter value, since every adapter already
// degrades to Result.Available=false when its API key is unset —
// the pipeline never needs a separate "is this source configured" branch.
func BuildBundle(cfg config.AdaptersConfig) Bundle {
	endpoints := make([]struct{ BaseURL, APIKey string }, 0, len(cfg.AIPredictorBaseURLs))
	for _, u := range cfg.AIPredictorBaseURLs {
		// Individual AI predictor endpoints share no single env var;
		// operators configure per-endpoint keys by embedding them in the URL.
		endpoints = append(endpoints, struct{ BaseURL, APIKey string }{BaseURL: u, APIKey: "embedded"})
	}

	return Bundle{
		Candles:           NewCandleAdapter(cfg.CandlesBaseURL, envKey("CANDLES")),
		OrderBook:         NewOrderBookAdapter(cfg.OrderBookBaseURL, envKey("ORDER_BOOK"), 20),
		Gas:               NewGasAdapter(cfg.GasBaseURL, envKey("GAS")),
		News:              NewNewsAdapter(cfg.NewsBaseURL, envKey("NEWS"), cfg.NewsKeywords),
		Sentiment:         NewSentimentAdapter(cfg.SentimentBaseURL, envKey("SENTIMENT")),
		Macro:             NewMacroAdapter(cfg.MacroBaseURL, envKey("MACRO")),
		Futures:           NewFuturesAdapter(cfg.FuturesBaseURL, envKey("FUTURES")),
		PredictionMarkets: NewPredictionMarketAdapter(cfg.PredictionMarketBaseURL, envKey("PREDICTION_MARKET")),
		AIPredictors:      NewAIPredictorsAdapter(endpoints),
	}
}

func envKey(name string) string {
	return os.Getenv(name + "_API_KEY")
}
