package engine

import "math"

// trendNoiseFloorPct: moves smaller than this (in percent of the first
// observation) are reported flat no matter how steep the fitted slope is.
const trendNoiseFloorPct = 1.0

// ClassifyTrend labels an ordered price series as increasing, decreasing
// or flat. Order matters: the percentage change is measured from the
// first observation to the last, and the slope comes from a linear
// regression of price against observation index.
func ClassifyTrend(prices []float64) Trend {
	if len(prices) < 3 {
		return TrendFlat // not enough signal
	}

	first, last := prices[0], prices[len(prices)-1]
	pctChange := 0.0
	if first != 0 {
		pctChange = (last - first) / first * 100
	}
	if math.Abs(pctChange) < trendNoiseFloorPct {
		return TrendFlat
	}

	if regressionSlope(prices) > 0 {
		return TrendIncreasing
	}
	return TrendDecreasing
}

// regressionSlope fits y = a + b*x over x = 0..n-1 and returns b.
func regressionSlope(y []float64) float64 {
	n := float64(len(y))
	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
