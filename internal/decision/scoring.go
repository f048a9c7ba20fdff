package decision

import (
	"fusionquant/internal/feature"
	"fusionquant/internal/weights"
)

// CategoryScores holds the four category scores, each in 0..100.
type CategoryScores struct {
	News      float64
	Price     float64
	Sentiment float64
	AI        float64
}

// baseWeights is the fixed base weight map.
var baseWeights = CategoryScores{News: 0.30, Price: 0.25, Sentiment: 0.25, AI: 0.20}

func newsScore(v feature.Vector) float64 {
	score := 50.0
	switch v.At(feature.NewsSentimentLabel) {
	case 1:
		score += 15
	case -1:
		score -= 15
	}
	if v.At(feature.NewsPosRatio) > 0.6 {
		score += 10
	} else if v.At(feature.NewsNegRatio) > 0.6 {
		score -= 10
	}
	count := v.At(feature.NewsCount)
	if count > 15 {
		score += 5
	} else if count < 5 {
		score -= 5
	}
	return clamp(score)
}

func priceScore(v feature.Vector) float64 {
	score := 50.0
	switch v.At(feature.Trend) {
	case 1:
		score += 15
	case -1:
		score -= 15
	}

	change := v.At(feature.PriceChangePct)
	abs := change
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 0.5 && abs <= 2.5:
		if change > 0 {
			score += 10
		} else {
			score -= 10
		}
	case abs > 2.5:
		if change > 0 {
			score += 5
		} else {
			score -= 5
		}
	}

	vol := v.At(feature.Volatility)
	switch {
	case vol < 0.015:
		score += 10
	case vol < 0.025:
		score += 5
	case vol > 0.04:
		score -= 10
	}
	return clamp(score)
}

func sentimentScore(v feature.Vector) float64 {
	score := 50.0
	fgi := v.At(feature.FearGreedIndex)
	switch {
	case fgi > 50 && fgi < 65:
		score += 15
	case fgi > 35 && fgi < 50:
		score += 10
	case fgi >= 75:
		score -= 15
	case fgi <= 25:
		score -= 10
	}
	switch v.At(feature.MarketSentimentLabel) {
	case 1:
		score += 10
	case -1:
		score -= 10
	}
	return clamp(score)
}

func aiScore(v feature.Vector) float64 {
	score := 50.0
	switch v.At(feature.AIConsensus) {
	case 1:
		score += 10
	case -1:
		score -= 10
	}
	ratio := v.At(feature.AIAgreementRatio)
	if ratio > 0.7 {
		score += 10
	} else if ratio < 0.4 {
		score -= 5
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Score computes the four category scores and the weighted total
// for v under the given dynamic multipliers.
func Score(v feature.Vector, m weights.Multipliers) (CategoryScores, float64) {
	scores := CategoryScores{
		News:      newsScore(v),
		Price:     priceScore(v),
		Sentiment: sentimentScore(v),
		AI:        aiScore(v),
	}

	numerator := scores.News*baseWeights.News*m.News +
		scores.Price*baseWeights.Price*m.Price +
		scores.Sentiment*baseWeights.Sentiment*m.Sentiment +
		scores.AI*baseWeights.AI*m.AI
	denominator := baseWeights.News*m.News + baseWeights.Price*m.Price +
		baseWeights.Sentiment*m.Sentiment + baseWeights.AI*m.AI

	if denominator == 0 {
		return scores, 0
	}
	return scores, clamp(numerator / denominator)
}

// Consistency is the fraction of the four directional signals sharing the
// majority non-neutral sign.
func Consistency(v feature.Vector) float64 {
	signals := []float64{
		v.At(feature.NewsSentimentLabel),
		v.At(feature.Trend),
		v.At(feature.MarketSentimentLabel),
		v.At(feature.AIConsensus),
	}

	var pos, neg, total int
	for _, s := range signals {
		switch s {
		case 1:
			pos++
			total++
		case -1:
			neg++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	majority := pos
	if neg > majority {
		majority = neg
	}
	return float64(majority) / float64(total)
}
