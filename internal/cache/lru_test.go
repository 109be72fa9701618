package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestLRU_EvictsOldest(t *testing.T) {
	c := New[string, int](2)
	c.Add("a", 1)
	c.Add("b", 2)

	// Touch a so b becomes the eviction candidate.
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	c.Add("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestLRU_UpdateAndRemove(t *testing.T) {
	c := New[string, int](2)
	c.Add("a", 1)
	c.Add("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("Get(a) = %d, want 10", v)
	}
	c.Remove("a")
	c.Remove("missing")
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := New[string, int](16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := strconv.Itoa((n*100 + j) % 32)
				c.Add(k, j)
				c.Get(k)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Fatalf("Len = %d exceeds capacity", c.Len())
	}
}

func TestNew_PanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New[string, int](0)
}
