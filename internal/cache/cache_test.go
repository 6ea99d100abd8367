package cache

import "testing"

func TestSet_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New[string, string](5)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	c.Set("A", "a", 2)
	c.Set("B", "b", 2)
	c.Set("C", "c", 2)

	if _, ok := c.Get("A"); ok {
		t.Error("A should have been evicted as least recently used")
	}
	if _, ok := c.Get("B"); !ok {
		t.Error("B should remain")
	}
	if _, ok := c.Get("C"); !ok {
		t.Error("C should remain")
	}
	if c.Cost() != 4 {
		t.Errorf("Cost() = %d, want 4", c.Cost())
	}
}

func TestSet_EvictionFollowsAccessRecency(t *testing.T) {
	c, _ := New[string, string](5)

	c.Set("A", "a", 2)
	c.Set("B", "b", 2)
	// Touch A so B becomes least recently used.
	if _, ok := c.Get("A"); !ok {
		t.Fatal("A missing before eviction")
	}
	c.Set("C", "c", 2)

	if _, ok := c.Get("B"); ok {
		t.Error("B should have been evicted; A was touched more recently")
	}
	if _, ok := c.Get("A"); !ok {
		t.Error("A should remain after being touched")
	}
}

func TestSet_OversizedEntryIsNoopStore(t *testing.T) {
	c, _ := New[string, string](5)

	c.Set("big", "x", 10)
	if _, ok := c.Get("big"); ok {
		t.Error("entry costing more than the budget must not be stored")
	}
	if c.Len() != 0 || c.Cost() != 0 {
		t.Errorf("Len/Cost = %d/%d, want 0/0", c.Len(), c.Cost())
	}

	// An oversized replacement also drops the previous value.
	c.Set("k", "v", 2)
	c.Set("k", "v2", 10)
	if _, ok := c.Get("k"); ok {
		t.Error("previous value must be removed when replacement is oversized")
	}
	if c.Cost() != 0 {
		t.Errorf("Cost() = %d, want 0", c.Cost())
	}
}

func TestSet_ReplaceAdjustsCost(t *testing.T) {
	c, _ := New[string, string](5)

	c.Set("k", "v", 2)
	c.Set("k", "v2", 3)
	if c.Cost() != 3 {
		t.Errorf("Cost() = %d, want 3 after replacement", c.Cost())
	}
	v, ok := c.Get("k")
	if !ok || v != "v2" {
		t.Errorf("Get(k) = %q, %v, want v2, true", v, ok)
	}
}

func TestRemoveAndPurge(t *testing.T) {
	c, _ := New[string, int](10)

	c.Set("a", 1, 3)
	c.Set("b", 2, 3)
	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Error("removed entry still present")
	}
	if c.Cost() != 3 {
		t.Errorf("Cost() = %d, want 3 after remove", c.Cost())
	}

	c.Purge()
	if c.Len() != 0 || c.Cost() != 0 {
		t.Errorf("Len/Cost after Purge = %d/%d, want 0/0", c.Len(), c.Cost())
	}
}

func TestNew_RejectsNonPositiveBudget(t *testing.T) {
	if _, err := New[string, string](0); err == nil {
		t.Error("expected error for zero budget")
	}
}
