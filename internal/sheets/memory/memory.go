package memory

import (
	"context"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
)

var _ sheets.ExpenseExporter = (*Store)(nil)

// Store keeps the last export in memory. It backs the sync worker when no
// spreadsheet is configured and doubles as a test fake.
type Store struct {
	mu      sync.Mutex
	items   []core.Expense
	exports int
	err     error
}

func New() *Store {
	return &Store{}
}

// ReplaceAll stores a copy of expenses as the current export.
func (s *Store) ReplaceAll(_ context.Context, expenses []core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.items = append([]core.Expense(nil), expenses...)
	s.exports++
	return nil
}

// FailWith makes subsequent exports return err. A nil err clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Items returns a copy of the last exported rows.
func (s *Store) Items() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...)
}

// Exports reports how many exports succeeded.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
