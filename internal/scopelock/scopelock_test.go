package scopelock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsSameMutexPerScope(t *testing.T) {
	set := New()

	a := set.Get("proj-a")
	b := set.Get("proj-b")

	assert.Same(t, a, set.Get("proj-a"))
	assert.NotSame(t, a, b)
}

func TestConcurrentGetIsSafe(t *testing.T) {
	set := New()

	var wg sync.WaitGroup
	locks := make([]*sync.Mutex, 32)

	for i := range locks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			locks[i] = set.Get("shared")
		}(i)
	}
	wg.Wait()

	for _, lock := range locks {
		assert.Same(t, locks[0], lock)
	}
}
