// Package estimation credits numeric-estimation answers by closeness to the
// question's reference answer. The decay shapes changed between competition
// seasons, so each question carries its formula as data (model.EstimationSpec)
// instead of the formula living in code.
package estimation

import (
	"math"

	"github.com/okian/podium/internal/domain/model"
)

// Formula kinds understood by Credit.
const (
	// KindAbsWindow degrades by absolute error scaled down:
	// max(0, cap - |ref-est|/scale) / cap.
	KindAbsWindow = "abs_window"
	// KindAbsLinear degrades by absolute error scaled up:
	// max(0, cap - scale*|ref-est|) / cap.
	KindAbsLinear = "abs_linear"
	// KindRelWindow degrades by relative error:
	// max(0, 1 - scale*|ref-est|/ref).
	KindRelWindow = "rel_window"
	// KindLogRatio degrades by the order-of-magnitude ratio:
	// max(0, cap - log10(max(est/ref, ref/est))) / cap.
	KindLogRatio = "log_ratio"
)

// defaultSpec applies when a question has no formula configured.
var defaultSpec = model.EstimationSpec{Kind: KindLogRatio, Cap: 12}

// Credit computes the awarded score for an estimation answer. The result is
// always within [0, q.Weight]: missing values, non-positive estimates, and
// degenerate references (zero or negative where a ratio or division is
// taken) earn zero credit rather than propagating NaN or infinity.
func Credit(q model.Question, a model.Answer) float64 {
	if a.Value == nil || q.Answer == nil {
		return 0
	}
	est := *a.Value
	ref := *q.Answer
	if est <= 0 {
		return 0
	}
	spec := defaultSpec
	if q.Estimation != nil {
		spec = *q.Estimation
	}
	return clamp01(fraction(spec, ref, est)) * q.Weight
}

func fraction(spec model.EstimationSpec, ref, est float64) float64 {
	switch spec.Kind {
	case KindAbsWindow:
		if spec.Cap <= 0 || spec.Scale <= 0 {
			return 0
		}
		return math.Max(0, spec.Cap-math.Abs(ref-est)/spec.Scale) / spec.Cap
	case KindAbsLinear:
		if spec.Cap <= 0 || spec.Scale <= 0 {
			return 0
		}
		return math.Max(0, spec.Cap-spec.Scale*math.Abs(ref-est)) / spec.Cap
	case KindRelWindow:
		if ref <= 0 || spec.Scale <= 0 {
			return 0
		}
		return math.Max(0, 1-spec.Scale*math.Abs(ref-est)/ref)
	case KindLogRatio:
		if ref <= 0 || spec.Cap <= 0 {
			return 0
		}
		ratio := math.Max(est/ref, ref/est)
		return math.Max(0, spec.Cap-math.Log10(ratio)) / spec.Cap
	default:
		return 0
	}
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
