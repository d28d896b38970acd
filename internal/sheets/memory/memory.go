package memory

import (
	"context"
	"fmt"
	"sync"

	"backoffice/internal/core"
	ports "backoffice/internal/sheets"
)

// Publication is one block written to the store.
type Publication struct {
	Kind   string
	Values [][]any
}

// Store keeps published reports in memory. Used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu    sync.Mutex
	items []Publication
}

var _ ports.ReportPublisher = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) PublishAggregate(_ context.Context, agg core.Aggregate) (string, error) {
	return s.add("aggregate", ports.AggregateValues(agg)), nil
}

func (s *Store) PublishComparison(_ context.Context, c core.Comparison) (string, error) {
	return s.add("comparison", ports.ComparisonValues(c)), nil
}

func (s *Store) add(kind string, values [][]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, Publication{Kind: kind, Values: values})
	return fmt.Sprintf("mem:%d", len(s.items))
}

// Publications returns a copy of everything published so far.
func (s *Store) Publications() []Publication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Publication(nil), s.items...)
}
