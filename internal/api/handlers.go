package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fusionquant/internal/backtest"
	"fusionquant/internal/candle"
	"fusionquant/internal/decision"
	"fusionquant/internal/feature"
	"fusionquant/internal/pipeline"
	"fusionquant/internal/position"
)

// analyzeRequest is the POST /api/analyze body.
type analyzeRequest struct {
	Symbol          string  `json:"symbol" binding:"required"`
	AccountBalance  float64 `json:"account_balance"`
	OpenPositions   int     `json:"open_positions"`
	Leverage        int     `json:"leverage"`
	RiskPercent     float64 `json:"risk_percent"`
}

// analyzeResponse mirrors pipeline.Outcome in wire-friendly form.
type analyzeResponse struct {
	RequestID  string           `json:"request_id"`
	Symbol     string           `json:"symbol"`
	Action     string           `json:"action"`
	Confidence float64          `json:"confidence"`
	TotalScore float64          `json:"total_score"`
	Regime     string           `json:"regime"`
	Reasons    []string         `json:"reasons"`
	GatePassed bool             `json:"gate_passed"`
	Plan       *position.Plan   `json:"plan,omitempty"`
	Available  feature.Availability `json:"available_sources"`
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bundle := s.bundleFactory(req.Symbol)

	pipelineReq := pipeline.Request{
		Symbol: req.Symbol,
		Account: decision.AccountState{
			OpenPositions: req.OpenPositions,
			Balance:       req.AccountBalance,
		},
		PositionAccount: position.Account{
			Balance:     req.AccountBalance,
			Leverage:    nonZeroInt(req.Leverage, 5),
			RiskPercent: nonZeroFloat(req.RiskPercent, 0.01),
		},
	}

	outcome := pipeline.Run(c.Request.Context(), bundle, pipelineReq, s.pipelineCfg)

	if s.store != nil {
		requestID, _ := c.Get("request_id")
		id, _ := requestID.(string)
		if err := s.store.SaveDecisionSnapshot(c.Request.Context(), id, req.Symbol, outcome.Decision); err != nil {
			logAPIError(c, "persist decision snapshot", err)
		}
	}

	s.hub.BroadcastDecision(outcome)

	c.JSON(http.StatusOK, analyzeResponse{
		RequestID:  outcome.RequestID.String(),
		Symbol:     req.Symbol,
		Action:     outcome.Decision.Action.String(),
		Confidence: outcome.Decision.Confidence,
		TotalScore: outcome.Decision.TotalScore,
		Regime:     outcome.Decision.Regime.String(),
		Reasons:    outcome.Decision.Reasons,
		GatePassed: outcome.Decision.SafetyGate.Passed,
		Plan:       outcome.Plan,
		Available:  outcome.Metadata.Available,
	})
}

// backtestRequest is the POST /api/backtest body: a closed candle series
// plus the same account/risk shape as analyze.
type backtestRequest struct {
	Symbol      string          `json:"symbol" binding:"required"`
	Candles     []candleRequest `json:"candles" binding:"required"`
	Balance     float64         `json:"balance"`
	Leverage    int             `json:"leverage"`
	RiskPercent float64         `json:"risk_percent"`
	MaxHoldBars int             `json:"max_hold_bars"`
}

type candleRequest struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series := make(candle.Series, 0, len(req.Candles))
	for _, cr := range req.Candles {
		series = append(series, candle.Candle{
			OpenTime: cr.OpenTime,
			Open:     cr.Open,
			High:     cr.High,
			Low:      cr.Low,
			Close:    cr.Close,
			Volume:   cr.Volume,
		})
	}

	started := time.Now().UTC()
	result, err := backtest.Run(series, backtest.Config{
		Symbol:      req.Symbol,
		Balance:     nonZeroFloat(req.Balance, 10000),
		Leverage:    nonZeroInt(req.Leverage, 5),
		RiskPercent: nonZeroFloat(req.RiskPercent, 0.01),
		MaxHoldBars: req.MaxHoldBars,
	})
	finished := time.Now().UTC()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if s.store != nil {
		if _, err := s.store.SaveBacktestResult(c.Request.Context(), req.Symbol, started, finished, result); err != nil {
			logAPIError(c, "persist backtest result", err)
		}
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSummary(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}

	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"symbol": symbol, "results": []struct{}{}, "persistence": false})
		return
	}

	results, err := s.store.RecentBacktests(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "results": results, "persistence": true})
}

func logAPIError(c *gin.Context, action string, err error) {
	accessLog.Warn().Err(err).Str("action", action).Str("path", c.Request.URL.Path).Msg("api handler recoverable error")
}

func nonZeroInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func nonZeroFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
