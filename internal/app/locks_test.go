package app

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	locks := newKeyedMutex()
	var counts [2]int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(key int64) {
			defer wg.Done()
			unlock := locks.Lock(key)
			defer unlock()
			counts[key]++
		}(int64(i % 2))
	}
	wg.Wait()

	if counts[0] != 50 || counts[1] != 50 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if locks.size() != 0 {
		t.Fatalf("expected idle locks to be released, got %d", locks.size())
	}
}
