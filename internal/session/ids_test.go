package session

import (
	"sync"
	"testing"
)

func TestAllocatorStartsAtZeroAndIncrements(t *testing.T) {
	alloc := NewAllocator()

	for want := ID(0); want < 5; want++ {
		if got := alloc.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
}

func TestAllocatorNeverReturnsNone(t *testing.T) {
	alloc := NewAllocator()

	for i := 0; i < 1000; i++ {
		if alloc.Next() == None {
			t.Fatal("allocator returned the sentinel id")
		}
	}
}

func TestAllocatorConcurrentUniqueness(t *testing.T) {
	alloc := NewAllocator()

	const workers = 8
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[ID]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]ID, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, alloc.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if seen[id] {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d unique ids, got %d", workers*perWorker, len(seen))
	}
}
