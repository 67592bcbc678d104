package tasksvc

import (
	"sync"
	"testing"
	"time"
)

func TestNowStrictlyIncreasing(t *testing.T) {
	prev := Now()
	for i := 0; i < 1000; i++ {
		next := Now()
		if !next.After(prev) {
			t.Fatalf("Now() = %v after %v", next, prev)
		}
		if next.Location() != time.UTC {
			t.Fatalf("Now() location = %v, want UTC", next.Location())
		}
		if next.Nanosecond()%1000 != 0 {
			t.Fatalf("Now() = %v has sub-microsecond precision", next)
		}
		prev = next
	}
}

func TestNowConcurrentUnique(t *testing.T) {
	const workers, per = 8, 200

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, workers*per)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				us := Now().UnixMicro()
				mu.Lock()
				seen[us] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*per {
		t.Fatalf("got %d distinct timestamps, want %d", len(seen), workers*per)
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == "" || a == b {
		t.Fatalf("NewID() = %q, %q", a, b)
	}
	if len(a) != 36 {
		t.Fatalf("NewID() = %q, want canonical uuid", a)
	}
}
