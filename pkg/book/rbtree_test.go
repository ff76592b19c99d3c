package book

import (
	"math/rand"
	"sort"
	"testing"
)

func TestLevelTree_OrderedTraversal(t *testing.T) {
	tree := newLevelTree()
	prices := []float64{100.5, 99, 103.25, 101, 98.75, 102, 100}

	for _, p := range prices {
		tree.GetOrCreate(p)
	}
	if tree.Size() != len(prices) {
		t.Fatalf("Size() = %d, want %d", tree.Size(), len(prices))
	}

	var got []float64
	tree.Ascending(func(lvl *priceLevel) bool {
		got = append(got, lvl.price)
		return true
	})

	want := append([]float64(nil), prices...)
	sort.Float64s(want)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Ascending[%d] = %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}

	var desc []float64
	tree.Descending(func(lvl *priceLevel) bool {
		desc = append(desc, lvl.price)
		return true
	})
	for i := range want {
		if desc[i] != want[len(want)-1-i] {
			t.Fatalf("Descending[%d] = %v, want %v", i, desc[i], want[len(want)-1-i])
		}
	}

	if min := tree.Min(); min == nil || min.price != 98.75 {
		t.Errorf("Min() = %v, want 98.75", min)
	}
	if max := tree.Max(); max == nil || max.price != 103.25 {
		t.Errorf("Max() = %v, want 103.25", max)
	}
}

func TestLevelTree_GetOrCreateIdempotent(t *testing.T) {
	tree := newLevelTree()
	a := tree.GetOrCreate(100)
	b := tree.GetOrCreate(100)
	if a != b {
		t.Fatal("GetOrCreate(100) returned distinct levels for the same price")
	}
	if tree.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", tree.Size())
	}
}

func TestLevelTree_RandomInsertDelete(t *testing.T) {
	tree := newLevelTree()
	rng := rand.New(rand.NewSource(1))

	live := make(map[float64]bool)
	for i := 0; i < 2000; i++ {
		p := float64(rng.Intn(500))
		if live[p] {
			tree.Delete(p)
			delete(live, p)
		} else {
			tree.GetOrCreate(p)
			live[p] = true
		}
	}

	if tree.Size() != len(live) {
		t.Fatalf("Size() = %d, want %d", tree.Size(), len(live))
	}

	prev := -1.0
	count := 0
	tree.Ascending(func(lvl *priceLevel) bool {
		if lvl.price <= prev {
			t.Fatalf("traversal out of order: %v after %v", lvl.price, prev)
		}
		if !live[lvl.price] {
			t.Fatalf("deleted price %v still in tree", lvl.price)
		}
		prev = lvl.price
		count++
		return true
	})
	if count != len(live) {
		t.Fatalf("traversal visited %d levels, want %d", count, len(live))
	}
}
