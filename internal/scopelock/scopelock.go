// Package scopelock hands out one mutex per scope so file-backed stores can
// treat each load-mutate-persist cycle as a critical section without
// serializing unrelated scopes.
package scopelock

import "sync"

type Set struct {
	mtx   sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Set {
	return &Set{locks: map[string]*sync.Mutex{}}
}

// Get returns the mutex for the scope, creating it on first use.
func (s *Set) Get(scope string) *sync.Mutex {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	lock, ok := s.locks[scope]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[scope] = lock
	}

	return lock
}
