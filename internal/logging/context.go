package logging

import "context"

type contextKey string

const loggerKey contextKey = "logger"

// FromContext retrieves the logger stashed in ctx, or the default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext returns a child context carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// AdapterContext scopes a logger to one source adapter fetch.
func AdapterContext(source, symbol string) *Logger {
	return Default().Named("adapter").WithFields(map[string]interface{}{
		"source": source,
		"symbol": symbol,
	})
}

// DecisionContext scopes a logger to one decision-pipeline invocation.
func DecisionContext(requestID, symbol string) *Logger {
	return Default().Named("decision").WithRequestID(requestID).WithField("symbol", symbol)
}

// BacktestContext scopes a logger to one backtest run.
func BacktestContext(symbol, interval string) *Logger {
	return Default().Named("backtest").WithFields(map[string]interface{}{
		"symbol":   symbol,
		"interval": interval,
	})
}
