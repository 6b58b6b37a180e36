package hexbin

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reducer collapses the values that fell into one cell into a single
// number. The slice is reused between calls and must not be retained.
type Reducer func(values []float64) float64

// Aggregator is a named Reducer. An Aggregator with a nil Reduce counts
// samples instead of reducing value dimensions.
type Aggregator struct {
	Name   string
	Reduce Reducer
}

// IsCount reports whether a counts samples per cell.
func (a Aggregator) IsCount() bool { return a.Reduce == nil }

func (a Aggregator) String() string {
	if a.Name != "" {
		return a.Name
	}
	if a.IsCount() {
		return "count"
	}
	return "custom"
}

// Built-in aggregators.
var (
	Count  = Aggregator{Name: "count"}
	Sum    = Aggregator{Name: "sum", Reduce: floats.Sum}
	Mean   = Aggregator{Name: "mean", Reduce: mean}
	Median = Aggregator{Name: "median", Reduce: median}
	Min    = Aggregator{Name: "min", Reduce: floats.Min}
	Max    = Aggregator{Name: "max", Reduce: floats.Max}
	Std    = Aggregator{Name: "std", Reduce: popStd}
	Var    = Aggregator{Name: "var", Reduce: popVar}
)

var aggregators = map[string]Aggregator{
	"count":  Count,
	"size":   Count,
	"sum":    Sum,
	"mean":   Mean,
	"median": Median,
	"min":    Min,
	"max":    Max,
	"std":    Std,
	"var":    Var,
}

// LookupAggregator returns the built-in aggregator called name. An empty
// name yields Count.
func LookupAggregator(name string) (Aggregator, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Count, nil
	}
	a, ok := aggregators[name]
	if !ok {
		return Aggregator{}, fmt.Errorf("%w: %q", ErrUnknownAggregator, name)
	}
	return a, nil
}

// AggregatorNames lists the names accepted by LookupAggregator.
func AggregatorNames() []string {
	names := make([]string, 0, len(aggregators))
	for name := range aggregators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mean(v []float64) float64 {
	return stat.Mean(v, nil)
}

// median averages the two middle values for even lengths.
func median(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	s := make([]float64, len(v))
	copy(s, v)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// popVar is the population variance (divides by n).
func popVar(v []float64) float64 {
	return stat.PopVariance(v, nil)
}

func popStd(v []float64) float64 {
	return math.Sqrt(stat.PopVariance(v, nil))
}
