package tracker

import "fmt"

// Weighting decides how much each window in the lookback contributes.
type Weighting string

// Weighting schemes.
const (
	// WeightUniform gives every window weight 1.
	WeightUniform Weighting = "uniform"
	// WeightDiscount gives the i-th weight 1/(Lookback-i), oldest window first.
	WeightDiscount Weighting = "discount"
)

// ParseWeighting validates a weighting name. Empty selects uniform.
func ParseWeighting(s string) (Weighting, error) {
	switch Weighting(s) {
	case "", WeightUniform:
		return WeightUniform, nil
	case WeightDiscount:
		return WeightDiscount, nil
	default:
		return "", fmt.Errorf("unknown weighting %q", s)
	}
}

// Defaults for a live tracker.
const (
	DefaultLookback = 5
	DefaultKNN      = 100
	DefaultSearchK  = 100
)

// Options configures a Tracker.
type Options struct {
	// Lookback is the number of most recent windows searched per ingest.
	Lookback int
	// KNN is how many documents each history entry keeps. It is also the
	// position reported for a document absent from an entry.
	KNN int
	// SearchK is the hit count requested per window search.
	SearchK   int
	Weighting Weighting
}

func (o Options) withDefaults() Options {
	if o.Lookback <= 0 {
		o.Lookback = DefaultLookback
	}
	if o.KNN <= 0 {
		o.KNN = DefaultKNN
	}
	if o.SearchK <= 0 {
		o.SearchK = DefaultSearchK
	}
	if o.Weighting == "" {
		o.Weighting = WeightUniform
	}
	return o
}

// weights returns one weight per selected window, oldest first. With fewer
// windows than Lookback the leading weights are used, so under discounting the
// newest window only reaches weight 1 once the lookback is full.
func (o Options) weights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		switch o.Weighting {
		case WeightDiscount:
			w[i] = 1 / float64(o.Lookback-i)
		default:
			w[i] = 1
		}
	}
	return w
}
