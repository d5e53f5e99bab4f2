package proportion

import (
	"fmt"
	"math"

	"cepop/domain/core"
	"cepop/domain/estimate"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidence is the confidence level used throughout the study.
const DefaultConfidence = 0.95

// Estimate computes a binomial proportion with a confidence interval.
//
// Interior counts (0 < k < n) use the Wilson score interval: closed form,
// bounded in [0,1], and well-behaved at the n of order 10-30 this system
// routinely sees. The k=0 and k=n edges use the exact rule-of-three bound
// derived from the binomial-beta relationship, where Wilson is known to
// undercover. All branches return the same shape; callers never need to
// know which fired.
func Estimate(successes, trials int, confidence float64) (estimate.ProportionEstimate, error) {
	return estimateWith(successes, trials, confidence, false)
}

// EstimateExact computes the Clopper-Pearson interval for interior counts
// via beta quantiles, with the same rule-of-three edges. The published
// population tables were computed with exact beta quantiles throughout, so
// reproducing them requires this method rather than Wilson.
func EstimateExact(successes, trials int, confidence float64) (estimate.ProportionEstimate, error) {
	return estimateWith(successes, trials, confidence, true)
}

func estimateWith(k, n int, confidence float64, exact bool) (estimate.ProportionEstimate, error) {
	if n < 0 {
		return estimate.ProportionEstimate{}, core.NewInvalidInputError("trials", fmt.Sprintf("must be non-negative, got %d", n))
	}
	if k < 0 || k > n {
		return estimate.ProportionEstimate{}, core.NewInvalidInputError("successes", fmt.Sprintf("need 0 <= successes <= trials, got %d/%d", k, n))
	}
	if confidence <= 0 || confidence >= 1 {
		return estimate.ProportionEstimate{}, core.NewInvalidInputError("confidence", fmt.Sprintf("must be in (0,1), got %g", confidence))
	}

	if n == 0 {
		// No trials: point undefined, interval maximally uninformative.
		return estimate.ProportionEstimate{
			Successes:  0,
			Trials:     0,
			HasPoint:   false,
			CILow:      0,
			CIHigh:     1,
			Confidence: confidence,
			Method:     estimate.MethodNoData,
		}, nil
	}

	alpha := 1 - confidence
	p := float64(k) / float64(n)
	est := estimate.ProportionEstimate{
		Successes:  k,
		Trials:     n,
		Point:      p,
		HasPoint:   true,
		Confidence: confidence,
	}

	switch {
	case k == 0:
		est.Method = estimate.MethodExactBeta
		est.CILow = 0
		est.CIHigh = 1 - math.Pow(alpha, 1/float64(n))
	case k == n:
		est.Method = estimate.MethodExactBeta
		est.CILow = math.Pow(alpha, 1/float64(n))
		est.CIHigh = 1
	case exact:
		est.Method = estimate.MethodExactBeta
		lower := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		upper := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		est.CILow = lower.Quantile(alpha / 2)
		est.CIHigh = upper.Quantile(1 - alpha/2)
	default:
		est.Method = estimate.MethodWilson
		est.CILow, est.CIHigh = wilson(p, n, alpha)
	}

	est.CILow = clamp01(est.CILow)
	est.CIHigh = clamp01(est.CIHigh)
	return est, nil
}

// wilson computes the Wilson score interval bounds.
func wilson(p float64, n int, alpha float64) (float64, float64) {
	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	nf := float64(n)
	z2 := z * z

	denom := 1 + z2/nf
	center := p + z2/(2*nf)
	margin := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))

	return (center - margin) / denom, (center + margin) / denom
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
