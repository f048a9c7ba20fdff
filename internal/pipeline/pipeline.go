// Package pipeline wires the independent source adapters, the feature
// integrator, the AI sub-strategy layer, the decision engine, and the
// position planner into the single one-shot request both the CLI and the
// HTTP service drive. It is the only package in this module that
// performs the adapter fan-out: everything it calls downstream (feature,
// weights, decision, position, substrategy) stays pure CPU.
//
// Grounded on the prior internal/autopilot/signal_aggregator.go
// CollectAllSignals, which already fans out several independent AI signal
// sources with one goroutine apiece and a mutex-guarded accumulator;
// generalised here to all nine adapter families.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fusionquant/internal/adapters"
	"fusionquant/internal/candle"
	"fusionquant/internal/decision"
	"fusionquant/internal/feature"
	"fusionquant/internal/logging"
	"fusionquant/internal/position"
	"fusionquant/internal/substrategy"
)

// Config bundles every tunable the pipeline needs beyond what callers
// supply per request.
type Config struct {
	FeatureConfig    feature.Config
	Thresholds       decision.Thresholds
	Deadlines        adapters.Deadlines
	WholeRequestDeadline time.Duration
	CandleInterval   string
	CandleCount      int
	RunAILayer       bool
}

// DefaultConfig returns the pipeline's documented default configuration.
func DefaultConfig() Config {
	return Config{
		FeatureConfig:        feature.DefaultConfig(),
		Thresholds:           decision.DefaultThresholds(),
		WholeRequestDeadline: 30 * time.Second,
		CandleInterval:       "1h",
		CandleCount:          24,
		RunAILayer:           true,
	}
}

// Request carries everything caller-specific a single analysis needs: the
// symbol, the account state the safety gate consumes, and the account the
// planner sizes against. The planner's entry price and volatility are read
// from the vector once built, not carried here.
type Request struct {
	Symbol         string
	Account        decision.AccountState
	PositionAccount position.Account
}

// Outcome is the full result of one pipeline run: request id (for
// staleness discarding per), the decision, the optional position plan,
// and the feature vector/metadata for display or snapshotting.
type Outcome struct {
	RequestID uuid.UUID
	Decision  decision.Decision
	Plan      *position.Plan
	Vector    feature.Vector
	Metadata  feature.Metadata
}

// Run fans out the adapter bundle concurrently, integrates whatever comes
// back before the whole-request deadline, and runs the engine and planner.
// A canceled or timed-out ctx never produces a partial result: it behaves
// identically to every adapter having failed (DeadlineExceeded).
func Run(ctx context.Context, bundle adapters.Bundle, req Request, cfg Config) Outcome {
	requestID := uuid.New()
	log := logging.DecisionContext(requestID.String(), req.Symbol)

	deadline := cfg.WholeRequestDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	in := collect(ctx, bundle, req.Symbol, cfg)

	now := time.Now().UTC()
	vec, meta := feature.Integrate(req.Symbol, now, in, cfg.FeatureConfig)

	if ctx.Err() != nil {
		// Whole-request timeout: identical to every adapter having failed,
		// plus an explicit reason so display code can distinguish it from
		// an ordinary gate failure.
		gate := decision.SafetyGate{Passed: false, Reasons: []string{"time-out"}}
		d := decision.Decision{Action: decision.Hold, SafetyGate: gate, Reasons: gate.Reasons}
		log.Warn("pipeline request exceeded whole-request deadline")
		return Outcome{RequestID: requestID, Decision: d, Vector: vec, Metadata: meta}
	}

	var aiAggregate *substrategy.Aggregate
	if cfg.RunAILayer && in.CandlesAvailable {
		agg := substrategy.RunAll(in.Candles, vec)
		aiAggregate = &agg
	}

	d := decision.Decide(vec, req.Account, cfg.Thresholds, aiAggregate)

	outcome := Outcome{RequestID: requestID, Decision: d, Vector: vec, Metadata: meta}

	if d.Action != decision.Hold {
		plan, err := position.Build(d.Action, vec.At(feature.CurrentPrice), vec.At(feature.Volatility), req.PositionAccount)
		if err != nil {
			log.WithError(err).Warn("position planner failed, downgrading decision to HOLD")
			outcome.Decision.Action = decision.Hold
			outcome.Decision.Reasons = append(outcome.Decision.Reasons, "invalid inputs")
			return outcome
		}
		outcome.Plan = &plan
	}

	return outcome
}

// collect fans out all nine adapter families concurrently, each under its
// own per-family deadline, and assembles a feature.Inputs. A nil bundle
// field or a failed fetch both just leave that Inputs field unset, which
// the integrator already treats as "apply the neutral default".
func collect(ctx context.Context, bundle adapters.Bundle, symbol string, cfg Config) feature.Inputs {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
		in feature.Inputs
	)

	run := func(d time.Duration, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, deadlineOrDefault(d))
			defer cancel()
			fn(fctx)
		}()
	}

	if bundle.Candles != nil {
		run(cfg.Deadlines.Candles, func(ctx context.Context) {
			res := bundle.Candles.Fetch(ctx, symbol, cfg.CandleInterval, cfg.CandleCount)
			if !res.Available {
				return
			}
			series := make(candle.Series, len(res.Value))
			for i, c := range res.Value {
				series[i] = candle.Candle{OpenTime: c.OpenTime, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume}
			}
			mu.Lock()
			in.Candles, in.CandlesAvailable = series, true
			mu.Unlock()
		})
	}
	if bundle.OrderBook != nil {
		run(cfg.Deadlines.OrderBook, func(ctx context.Context) {
			res := bundle.OrderBook.Fetch(ctx, symbol)
			mu.Lock()
			in.OrderBook = res
			mu.Unlock()
		})
	}
	if bundle.Gas != nil {
		run(cfg.Deadlines.Gas, func(ctx context.Context) {
			res := bundle.Gas.Fetch(ctx)
			mu.Lock()
			in.Gas = res
			mu.Unlock()
		})
	}
	if bundle.News != nil {
		run(cfg.Deadlines.News, func(ctx context.Context) {
			res := bundle.News.Fetch(ctx, symbol, time.Now().UTC())
			mu.Lock()
			in.News = res
			mu.Unlock()
		})
	}
	if bundle.Sentiment != nil {
		run(cfg.Deadlines.Sentiment, func(ctx context.Context) {
			res := bundle.Sentiment.Fetch(ctx)
			mu.Lock()
			in.Sentiment = res
			mu.Unlock()
		})
	}
	if bundle.Macro != nil {
		run(cfg.Deadlines.Macro, func(ctx context.Context) {
			res := bundle.Macro.Fetch(ctx)
			mu.Lock()
			in.Macro = res
			mu.Unlock()
		})
	}
	if bundle.Futures != nil {
		run(cfg.Deadlines.Futures, func(ctx context.Context) {
			res := bundle.Futures.Fetch(ctx, symbol)
			mu.Lock()
			in.Futures = res
			mu.Unlock()
		})
	}
	if bundle.PredictionMarkets != nil {
		run(cfg.Deadlines.PredictionMarket, func(ctx context.Context) {
			res := bundle.PredictionMarkets.Fetch(ctx, symbol)
			mu.Lock()
			in.PredictionMarkets = res
			mu.Unlock()
		})
	}
	if bundle.AIPredictors != nil {
		run(cfg.Deadlines.AIPredictors, func(ctx context.Context) {
			res := bundle.AIPredictors.Fetch(ctx, symbol)
			mu.Lock()
			in.AIPredictors = res
			mu.Unlock()
		})
	}

	wg.Wait()
	return in
}

func deadlineOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return adapters.DefaultDeadline
	}
	return d
}
