// Package memstore provides in-memory repositories that emulate the live-only
// unique indexes and role join of the PostgreSQL schema. Tests only.
package memstore

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	_ "github.com/bizhub-io/bizhub/internal/testing/guard"
)

// Store holds every table behind one lock.
type Store struct {
	mu         sync.Mutex
	roles      map[uuid.UUID]roleRow
	persons    map[uuid.UUID]personRow
	businesses map[uuid.UUID]businessRow
	failures   map[string]error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		roles:      make(map[uuid.UUID]roleRow),
		persons:    make(map[uuid.UUID]personRow),
		businesses: make(map[uuid.UUID]businessRow),
		failures:   make(map[string]error),
	}
}

// FailNext makes the next call to op return err. op is "<table>.<Method>",
// for example "persons.FindByID".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op string) error {
	err, ok := s.failures[op]
	if ok {
		delete(s.failures, op)
	}
	return err
}

func page[T any](items []T, offset, limit int) []T {
	start := min(offset, len(items))
	end := min(start+limit, len(items))
	return slices.Clone(items[start:end])
}

func sortByCreated[T any](items []T, created func(T) int64, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if ci != cj {
			return ci < cj
		}
		return strings.Compare(id(items[i]), id(items[j])) < 0
	})
}
