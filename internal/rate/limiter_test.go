package rate

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{MaxRequests: 10, Window: 60 * time.Second}
}

func TestAdmitWithinBudget(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewWithClock(testConfig(), func() time.Time { return now })

	for i := 0; i < 10; i++ {
		if !l.Admit("10.0.0.1") {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if l.Admit("10.0.0.1") {
		t.Fatal("11th request within the window should be rejected")
	}
}

func TestRejectionDoesNotResetWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewWithClock(testConfig(), func() time.Time { return now })

	for i := 0; i < 10; i++ {
		l.Admit("10.0.0.1")
	}

	// Rejections half-way through the window must not extend it.
	now = now.Add(30 * time.Second)
	if l.Admit("10.0.0.1") {
		t.Fatal("request should still be rejected mid-window")
	}

	now = now.Add(30*time.Second + time.Millisecond)
	if !l.Admit("10.0.0.1") {
		t.Fatal("request after the window elapsed should reset and be admitted")
	}
}

func TestWindowResetAfterElapse(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewWithClock(testConfig(), func() time.Time { return now })

	for i := 0; i < 10; i++ {
		l.Admit("10.0.0.1")
	}

	now = now.Add(60*time.Second + time.Millisecond)
	for i := 0; i < 10; i++ {
		if !l.Admit("10.0.0.1") {
			t.Fatalf("request %d of fresh window should be admitted", i+1)
		}
	}
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewWithClock(testConfig(), func() time.Time { return now })

	for i := 0; i < 10; i++ {
		l.Admit("10.0.0.1")
	}
	if l.Admit("10.0.0.1") {
		t.Fatal("exhausted key should be rejected")
	}
	if !l.Admit("10.0.0.2") {
		t.Fatal("fresh key should be admitted")
	}
}

func TestStaleEntriesEvicted(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewWithClock(testConfig(), func() time.Time { return now })

	// Pick a second key that lands in the same shard as the first, so
	// admitting it runs an eviction pass over the stale entry.
	const stale = "10.0.0.1"
	var fresh string
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("10.0.0.%d", i+2)
		if shardIndex(candidate) == shardIndex(stale) {
			fresh = candidate
			break
		}
	}

	l.Admit(stale)
	now = now.Add(2*time.Minute + time.Second)
	l.Admit(fresh)

	if got := l.Len(); got != 1 {
		t.Fatalf("expected stale window evicted, tracking %d keys", got)
	}
}

func TestConcurrentAdmit(t *testing.T) {
	l := New(Config{MaxRequests: 1000, Window: time.Minute})

	var wg sync.WaitGroup
	admitted := make([]int, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if l.Admit("shared") {
					admitted[g]++
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, n := range admitted {
		total += n
	}
	if total != 800 {
		t.Fatalf("expected all 800 requests admitted under the budget, got %d", total)
	}
}
