// Package risk computes annualized risk metrics from a daily return series.
// The calculator is a pluggable capability: callers hold the Calculator
// interface and degrade every metric to zero when no calculator is installed
// or the series is unusable. Analytics must never fail on risk math.
package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Daily return series are produced by calendar-day resampling, so a year is
// 365 observations.
const periodsPerYear = 365

// Metrics holds the five annualized risk figures of a daily return series.
type Metrics struct {
	AnnualVolatility float64 `json:"annualVolatility"`
	AnnualReturn     float64 `json:"annualReturn"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	CalmarRatio      float64 `json:"calmarRatio"`
}

// Calculator turns a daily return series into risk metrics.
type Calculator interface {
	Compute(dailyReturns []float64) Metrics
}

// StatCalculator is the default Calculator, backed by gonum's statistics
// primitives.
type StatCalculator struct{}

// NewCalculator returns the default gonum-backed calculator.
func NewCalculator() *StatCalculator {
	return &StatCalculator{}
}

// Compute derives annualized volatility and return, maximum drawdown, Sharpe
// and Calmar ratios from the given daily returns. Series with fewer than two
// observations yield all zeros.
func (c *StatCalculator) Compute(dailyReturns []float64) Metrics {
	if len(dailyReturns) < 2 {
		return Metrics{}
	}

	mean, std := stat.MeanStdDev(dailyReturns, nil)

	m := Metrics{
		AnnualVolatility: std * math.Sqrt(periodsPerYear),
		AnnualReturn:     mean * periodsPerYear,
		MaxDrawdown:      maxDrawdown(dailyReturns),
	}
	if m.AnnualVolatility > 0 {
		m.SharpeRatio = m.AnnualReturn / m.AnnualVolatility
	}
	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.AnnualReturn / m.MaxDrawdown
	}

	return m
}

// maxDrawdown returns the deepest peak-to-trough loss of the compounded
// equity curve, as a positive fraction.
func maxDrawdown(dailyReturns []float64) float64 {
	equity := 1.0
	peak := 1.0
	deepest := 0.0

	for _, r := range dailyReturns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > deepest {
			deepest = dd
		}
	}

	return deepest
}

// Compute runs calc over the series, returning zero metrics when calc is nil.
func Compute(calc Calculator, dailyReturns []float64) Metrics {
	if calc == nil {
		return Metrics{}
	}
	return calc.Compute(dailyReturns)
}
