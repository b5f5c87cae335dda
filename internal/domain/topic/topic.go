// Package topic holds query topics and the topics XML reader.
package topic

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/argrank/internal/domain"
)

// Topic is one query.
type Topic struct {
	ID          string
	Title       string
	Description string
	Narrative   string
}

// Set is an ordered, id-addressable collection of topics.
type Set struct {
	order []Topic
	byID  map[string]int
}

// NewSet builds a Set. A repeated id replaces the earlier topic in place.
func NewSet(topics ...Topic) Set {
	s := Set{byID: make(map[string]int, len(topics))}
	for _, t := range topics {
		if i, ok := s.byID[t.ID]; ok {
			s.order[i] = t
			continue
		}
		s.byID[t.ID] = len(s.order)
		s.order = append(s.order, t)
	}
	return s
}

// Get returns the topic with the given id.
func (s Set) Get(id string) (Topic, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Topic{}, false
	}
	return s.order[i], true
}

// All returns the topics in document order.
func (s Set) All() []Topic {
	out := make([]Topic, len(s.order))
	copy(out, s.order)
	return out
}

// IDs returns topic ids in document order.
func (s Set) IDs() []string {
	out := make([]string, len(s.order))
	for i, t := range s.order {
		out[i] = t.ID
	}
	return out
}

// Len returns the number of topics.
func (s Set) Len() int { return len(s.order) }

type xmlTopics struct {
	Topics []xmlTopic `xml:",any"`
}

type xmlTopic struct {
	Number      *string `xml:"number"`
	Title       *string `xml:"title"`
	Description string  `xml:"description"`
	Narrative   string  `xml:"narrative"`
}

// Parse reads a topics document: a root element whose children each carry
// number and title elements, and optionally description and narrative.
// Text is whitespace-trimmed; number becomes the topic id verbatim.
func Parse(r io.Reader) (Set, error) {
	var doc xmlTopics
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Set{}, fmt.Errorf("decode topics: %v: %w", err, domain.ErrMalformedTopics)
	}

	topics := make([]Topic, 0, len(doc.Topics))
	for i, x := range doc.Topics {
		id := trimmed(x.Number)
		if id == "" {
			return Set{}, fmt.Errorf("topic %d: missing number: %w", i+1, domain.ErrMalformedTopics)
		}
		title := trimmed(x.Title)
		if title == "" {
			return Set{}, fmt.Errorf("topic %s: missing title: %w", id, domain.ErrMalformedTopics)
		}
		topics = append(topics, Topic{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(x.Description),
			Narrative:   strings.TrimSpace(x.Narrative),
		})
	}
	return NewSet(topics...), nil
}

// ParseFile reads topics from path.
func ParseFile(path string) (Set, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Set{}, fmt.Errorf("open topics: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return Set{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
