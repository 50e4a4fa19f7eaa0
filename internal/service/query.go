package service

import (
	"fmt"

	"bookrec/internal/catalog"
)

const (
	DefaultCandidatePoolSize = 150
	DefaultResultLimit       = 50
)

// Query is one recommendation request.
type Query struct {
	Text string
	// Category and Tone are optional; "" and catalog.All mean no filter.
	Category string
	Tone     string
	// Zero values fall back to the engine defaults.
	CandidatePoolSize int
	ResultLimit       int
}

// Status tells adapters which path produced a Result.
type Status int

const (
	// StatusEmptyQuery: the query text was blank; nothing was searched.
	StatusEmptyQuery Status = iota
	// StatusNoCandidates: the index returned no neighbours.
	StatusNoCandidates
	// StatusExact: the filters were satisfied.
	StatusExact
	// StatusFallback: the filters removed everything, so unfiltered
	// semantic matches are returned instead.
	StatusFallback
)

func (s Status) String() string {
	switch s {
	case StatusEmptyQuery:
		return "empty_query"
	case StatusNoCandidates:
		return "no_candidates"
	case StatusExact:
		return "exact"
	case StatusFallback:
		return "fallback"
	}
	return "unknown"
}

// MarshalText renders the status name in JSON responses.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusEmptyQuery, StatusNoCandidates, StatusExact, StatusFallback} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Result is the outcome of Retrieve.
type Result struct {
	Books    []catalog.Book
	Status   Status
	Degraded bool
	Notice   string
	// Candidates is the number of hits returned by the index.
	Candidates int
}

func filterSet(v string) bool {
	return v != "" && v != catalog.All
}
