package fusion

import "github.com/kailas-cloud/argrank/internal/domain/run"

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// ReciprocalRank merges runs by rank alone: score(d) = sum of 1/(k + rank_i(d))
// over every run ranking d, with 1-based ranks. Scores from different stages
// need no common scale. Like Interpolate, topic coverage follows the first run.
func ReciprocalRank(k int, runs ...run.Run) run.Run {
	if len(runs) == 0 {
		return run.NewBuilder().Build()
	}
	if k <= 0 {
		k = DefaultRRFK
	}

	b := run.NewBuilder()
	for _, topic := range runs[0].Topics() {
		acc := run.NewAccumulator(0)
		for _, r := range runs {
			ranking, ok := r.Ranking(topic)
			if !ok {
				continue
			}
			for rank, e := range ranking.Entries() {
				acc.Add(e.DocID, 1.0/float64(k+rank+1))
			}
		}
		b.Set(topic, acc.Ranking())
	}
	return b.Build()
}
