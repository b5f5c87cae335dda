package db

// DefaultVectorField is the vector attribute queried when KNNQuery.VectorField is empty.
const DefaultVectorField = "vector"

// DefaultContentField is the text attribute matched when TextQuery.Field is empty.
const DefaultContentField = "contents"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	TopK         int
	ReturnFields []string
	// Scorer selects the FT.SEARCH scoring function, e.g. BM25STD. Empty keeps the index default.
	Scorer string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// KNN entries carry the raw __vector_score distance in Score, BM25 entries the text score.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
