package budget

import "github.com/lixenwraith/perfgov/parameter"

// Splits are per-category fractions of a total budget
type Splits [CategoryCount]float64

// DefaultSplits is the heuristic texture-heavy split
func DefaultSplits() Splits {
	return Splits{
		CategoryTexture: parameter.TextureBudgetSplit,
		CategoryMesh:    parameter.MeshBudgetSplit,
		CategoryAudio:   parameter.AudioBudgetSplit,
		CategoryOther:   parameter.OtherBudgetSplit,
	}
}

// SplitBudget divides total across categories
// Negative fractions count as zero and the fractions are normalized when they
// do not sum to one; rounding remainder goes to CategoryOther
func SplitBudget(total int64, s Splits) [CategoryCount]int64 {
	var out [CategoryCount]int64
	if total <= 0 {
		return out
	}

	sum := 0.0
	for _, f := range s {
		if f > 0 {
			sum += f
		}
	}
	if sum <= 0 {
		s = DefaultSplits()
		sum = 1
	}

	var assigned int64
	for c, f := range s {
		if f <= 0 {
			continue
		}
		out[c] = int64(float64(total) * f / sum)
		assigned += out[c]
	}
	out[CategoryOther] += total - assigned
	return out
}
