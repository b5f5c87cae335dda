package fusion

import "github.com/kailas-cloud/argrank/internal/domain/run"

// Interpolate merges second into seed as seed + alpha*second, per topic.
//
// Fusion is left-biased: only topics present in seed appear in the result,
// topics found only in second are dropped. Each topic is seeded with seed's
// entries in seed order, then second's entries are added in second's order,
// so equal fused scores keep that encounter order. Alpha is unconstrained;
// a negative alpha subtracts the second signal.
func Interpolate(seed, second run.Run, alpha float64) run.Run {
	b := run.NewBuilder()
	for _, topic := range seed.Topics() {
		base, _ := seed.Ranking(topic)
		add, _ := second.Ranking(topic)

		acc := run.NewAccumulator(base.Len() + add.Len())
		for _, e := range base.Entries() {
			acc.Add(e.DocID, e.Score)
		}
		for _, e := range add.Entries() {
			acc.Add(e.DocID, alpha*e.Score)
		}
		b.Set(topic, acc.Ranking())
	}
	return b.Build()
}
