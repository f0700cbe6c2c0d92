// Package risk maps suspension probabilities and advisory context into the
// three-tier operational recommendation attached to each prediction. Every
// function here is pure; the probability and tier never depend on the
// formatting helpers.
package risk

import "github.com/couchcryptid/suspension-forecast/internal/domain"

// Tier boundaries were calibrated against three reference scenarios (clear
// ~0.376, heavy rain ~0.501, typhoon ~0.572) and must not be re-derived.
// Boundaries are closed on the upper tier: exactly 0.40 is alert, exactly
// 0.55 is suspension.
const (
	AlertThreshold      = 0.40
	SuspensionThreshold = 0.55
)

// DefaultDecisionThreshold is the binary suspended/not-suspended cut when no
// threshold is configured.
const DefaultDecisionThreshold = 0.5

// TierFor maps a probability to its risk tier. Out-of-range inputs are
// clamped: the scorer already guarantees [0,1], but the boundary is defended
// on both sides.
func TierFor(probability float64) domain.RiskTier {
	p := clamp(probability)
	switch {
	case p >= SuspensionThreshold:
		return domain.TierSuspension
	case p >= AlertThreshold:
		return domain.TierAlert
	default:
		return domain.TierNormal
	}
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
