package passage

// Neighbor is one ANN hit: the passage row and its distance to the query vector.
type Neighbor struct {
	Idx      int
	Distance float64
}

// Similarity converts a cosine distance into a similarity score.
func (n Neighbor) Similarity() float64 { return 1 - n.Distance }
