package parsecache

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/zephyrtronium/counter"
)

func TestCacheHit(t *testing.T) {
	c := New(4)
	a, err := c.Parse("roll 2d6 + 3")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Parse("roll 2d6 + 3")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("second parse gave a different expression: %v vs %v", a, b)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("want 1 hit and 1 miss, got %d and %d", hits, misses)
	}
	if c.Len() != 1 {
		t.Errorf("want 1 entry, got %d", c.Len())
	}
}

func TestCacheErrors(t *testing.T) {
	c := New(4)
	_, err := c.Parse("nothing at all")
	var np *counter.NoParseError
	if !errors.As(err, &np) {
		t.Fatalf("want NoParseError, got %v", err)
	}
	_, err = c.Parse("nothing at all")
	if !errors.As(err, &np) {
		t.Fatalf("cached result lost its error: %v", err)
	}
	if hits, _ := c.Stats(); hits != 1 {
		t.Errorf("error was not cached")
	}
}

func TestCacheEvict(t *testing.T) {
	c := New(3)
	for i := 0; i < 5; i++ {
		if _, err := c.Parse(strconv.Itoa(i) + " + 1"); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 3 {
		t.Errorf("want 3 entries, got %d", c.Len())
	}
	// 0 and 1 were evicted first.
	c.Parse("4 + 1")
	c.Parse("2 + 1")
	c.Parse("0 + 1")
	if hits, misses := c.Stats(); hits != 2 || misses != 6 {
		t.Errorf("want 2 hits and 6 misses, got %d and %d", hits, misses)
	}
	if c.Len() != 3 {
		t.Errorf("want 3 entries after refill, got %d", c.Len())
	}
}

func TestCacheDisabled(t *testing.T) {
	c := New(0)
	for i := 0; i < 3; i++ {
		if _, err := c.Parse("1 + 1"); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 0 {
		t.Errorf("disabled cache holds %d entries", c.Len())
	}
	if hits, misses := c.Stats(); hits != 0 || misses != 0 {
		t.Errorf("disabled cache counted %d hits and %d misses", hits, misses)
	}
}

func TestCacheOptions(t *testing.T) {
	c := New(4, counter.Strict())
	if _, err := c.Parse("1 + 2 junk"); err == nil {
		t.Error("strict cache accepted trailing junk")
	}
	if _, err := c.Parse("1 + 2"); err != nil {
		t.Errorf("strict cache rejected clean input: %v", err)
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := New(8)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				src := strconv.Itoa((g+i)%16) + " * 2"
				e, err := c.Parse(src)
				if err != nil {
					t.Error(err)
					return
				}
				if e.Size() != 3 {
					t.Errorf("%q parsed as %v", src, e)
				}
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Errorf("cache grew to %d entries", c.Len())
	}
	if hits, misses := c.Stats(); hits+misses != 800 {
		t.Errorf("lookups don't add up: %d hits, %d misses", hits, misses)
	}
}
