// Package memory is an in-process Mirror used in development and tests.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"gestion/internal/sheets"
)

// Store keeps mirrored rows per resource in insertion order.
type Store struct {
	mu   sync.Mutex
	tabs map[string][]sheets.Row
}

var _ sheets.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{tabs: make(map[string][]sheets.Row)}
}

// AppendRow stores row, replacing a row with the same id.
func (s *Store) AppendRow(_ context.Context, recurso string, row sheets.Row) error {
	if !sheets.Mirrored(recurso) {
		return fmt.Errorf("recurso %q is not mirrored", recurso)
	}
	if len(row) == 0 {
		return fmt.Errorf("empty row for %s", recurso)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := sheets.RowID(row)
	tab := s.tabs[recurso]
	for i, existing := range tab {
		if sheets.RowID(existing) == id {
			tab[i] = append(sheets.Row(nil), row...)
			return nil
		}
	}
	s.tabs[recurso] = append(tab, append(sheets.Row(nil), row...))
	return nil
}

// DeleteRow removes the row with id if present.
func (s *Store) DeleteRow(_ context.Context, recurso string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := strconv.FormatInt(id, 10)
	tab := s.tabs[recurso]
	for i, existing := range tab {
		if sheets.RowID(existing) == want {
			s.tabs[recurso] = append(tab[:i], tab[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the rows mirrored for recurso.
func (s *Store) Rows(recurso string) []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Row, len(s.tabs[recurso]))
	copy(out, s.tabs[recurso])
	return out
}
