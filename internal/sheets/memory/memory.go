package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Store is an in-process mirror used when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows map[int]map[string][]string
	seq  int
}

var _ ports.EntryMirror = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int]map[string][]string)}
}

// UpsertEntry stores the rendered row and returns a synthetic row reference.
func (s *Store) UpsertEntry(_ context.Context, e core.Entry) (string, error) {
	if e.ID == "" {
		return "", errors.New("entry without id")
	}
	year := e.Date.Year()
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet, ok := s.rows[year]
	if !ok {
		sheet = make(map[string][]string)
		s.rows[year] = sheet
	}
	if _, exists := sheet[e.ID]; !exists {
		s.seq++
	}
	sheet[e.ID] = ports.Row(e)
	return fmt.Sprintf("mem:%d:%s", year, e.ID), nil
}

func (s *Store) RemoveEntry(_ context.Context, id string, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows[year], id)
	return nil
}

// Rows returns the rows of a year ordered by entry id.
func (s *Store) Rows(year int) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.rows[year]))
	for id := range s.rows[year] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([][]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, append([]string(nil), s.rows[year][id]...))
	}
	return out
}

// Writes reports how many distinct rows were ever written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
