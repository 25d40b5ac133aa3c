package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestGetOrCreateMemoizes(t *testing.T) {
	c := New[uint64, string](8)

	calls := 0
	rewrite := func() string {
		calls++
		return "#version 450\nvoid main() {}\n"
	}

	first := c.GetOrCreate(0xdeadbeef, rewrite)
	second := c.GetOrCreate(0xdeadbeef, rewrite)
	if calls != 1 {
		t.Fatalf("create ran %d times, want 1", calls)
	}
	if first != second {
		t.Errorf("cached value differs: %q vs %q", first, second)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[uint64, string](2)
	for i := uint64(0); i < 3; i++ {
		c.GetOrCreate(i, func() string { return fmt.Sprintf("stage %d", i) })
	}

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get(0); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get(2); !ok {
		t.Error("newest entry was evicted")
	}
}

func TestCacheGetRefreshesRecency(t *testing.T) {
	c := New[uint64, string](2)
	c.GetOrCreate(1, func() string { return "one" })
	c.GetOrCreate(2, func() string { return "two" })

	if _, ok := c.Get(1); !ok {
		t.Fatal("entry 1 missing before eviction")
	}
	c.GetOrCreate(3, func() string { return "three" })

	if _, ok := c.Get(1); !ok {
		t.Error("recently read entry was evicted")
	}
	if _, ok := c.Get(2); ok {
		t.Error("least recently used entry survived")
	}
}

func TestCacheZeroCapacityNeverEvicts(t *testing.T) {
	c := New[uint64, string](0)
	for i := uint64(0); i < 100; i++ {
		c.GetOrCreate(i, func() string { return fmt.Sprintf("stage %d", i) })
	}
	if c.Len() != 100 {
		t.Errorf("Len = %d, want 100", c.Len())
	}
}

func TestRecencyListOrder(t *testing.T) {
	var l list[int]
	n1 := l.pushFront(1)
	l.pushFront(2)
	l.pushFront(3)
	l.moveToFront(n1)

	for _, want := range []int{2, 3, 1} {
		got, ok := l.popBack()
		if !ok || got != want {
			t.Fatalf("popBack = %d, %v, want %d", got, ok, want)
		}
	}
	if _, ok := l.popBack(); ok {
		t.Error("popBack on empty list reported a value")
	}
}

type portedProgram struct {
	name string
}

func TestShardedSetAndGet(t *testing.T) {
	c := NewSharded[uint64, *portedProgram](4, Uint64Hasher)
	p := &portedProgram{name: "composite"}
	c.Set(0x1234, p)

	got, ok := c.Get(0x1234)
	if !ok || got != p {
		t.Fatalf("Get = %v, %v, want original pointer", got, ok)
	}
	if _, ok := c.Get(0x9999); ok {
		t.Error("unknown key reported as cached")
	}
}

func TestShardedSetReplaces(t *testing.T) {
	c := NewSharded[uint64, *portedProgram](4, Uint64Hasher)
	c.Set(7, &portedProgram{name: "gbuffers_terrain"})
	c.Set(7, &portedProgram{name: "gbuffers_water"})

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	got, _ := c.Get(7)
	if got.name != "gbuffers_water" {
		t.Errorf("value = %q, want the replacement", got.name)
	}
}

func TestShardedEvictionIsPerShard(t *testing.T) {
	// Uint64Hasher keeps keys 0 and 16 in shard zero, so a per-shard
	// capacity of 1 makes the second Set evict the first. Key 1 lives
	// in another shard and must be untouched.
	c := NewSharded[uint64, *portedProgram](1, Uint64Hasher)
	c.Set(0, &portedProgram{name: "a"})
	c.Set(1, &portedProgram{name: "b"})
	c.Set(16, &portedProgram{name: "c"})

	if _, ok := c.Get(0); ok {
		t.Error("shard zero kept both entries")
	}
	if _, ok := c.Get(16); !ok {
		t.Error("newest entry in shard zero was evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("eviction crossed shard boundaries")
	}
}

func TestShardedConcurrentAccess(t *testing.T) {
	c := NewSharded[uint64, string](32, Uint64Hasher)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := uint64(g*200 + i)
				want := fmt.Sprintf("program %d", key)
				c.Set(key, want)
				if v, ok := c.Get(key); ok && v != want {
					t.Errorf("key %d: got %q, want %q", key, v, want)
				}
			}
		}(g)
	}
	wg.Wait()
}
