package orchestrate

import (
	"sort"

	"simulation-parsers/internal/grammar"
)

// Sources maps a source tag to the active parsed record of the run.
type Sources struct {
	records map[string]grammar.Record
}

// NewSources creates an empty registry.
func NewSources() *Sources {
	return &Sources{records: make(map[string]grammar.Record)}
}

// Set registers rec as the active record of tag, replacing any previous one.
func (s *Sources) Set(tag string, rec grammar.Record) {
	s.records[tag] = rec
}

// Get returns the active record of tag.
func (s *Sources) Get(tag string) (grammar.Record, bool) {
	rec, ok := s.records[tag]
	return rec, ok
}

// Tags returns the registered tags sorted.
func (s *Sources) Tags() []string {
	tags := make([]string, 0, len(s.records))
	for t := range s.records {
		tags = append(tags, t)
	}

	sort.Strings(tags)

	return tags
}
