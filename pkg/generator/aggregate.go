package generator

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// aggregate reduces instance risks to one probability. risks is non-empty.
func aggregate(risks []float64, how Aggregation, percentile float64) (float64, error) {
	if len(risks) == 0 {
		return 0, fmt.Errorf("no risk samples")
	}

	var p float64
	switch how {
	case AggregateMean:
		p = stat.Mean(risks, nil)
	case AggregateMax:
		p = floats.Max(risks)
	case AggregatePercentile:
		sorted := append([]float64(nil), risks...)
		sort.Float64s(sorted)
		p = stat.Quantile(percentile, stat.Empirical, sorted, nil)
	default:
		return 0, fmt.Errorf("%w: unknown aggregation %q", reliability.ErrInvalidConfig, how)
	}
	return reliability.Clamp(p), nil
}
