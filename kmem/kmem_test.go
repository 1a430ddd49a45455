package kmem

import (
	"bytes"
	"testing"
)

func TestKmallocZeroFills(t *testing.T) {
	k, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	obj, err := k.Kmalloc(64)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(obj, make([]byte, 64)) {
		t.Fatal("kmalloc did not zero-fill")
	}
}

func TestKmallocRefusesOverPageSize(t *testing.T) {
	k, _ := New(2)

	if _, err := k.Kmalloc(PageSize + 1); err == nil {
		t.Fatal("expected allocation over page size to fail")
	}
}

// TestSizeClassRoundTrip allocates one object of every size class, writes
// a signature into each, verifies no overlap, then frees in reverse order
// and verifies the pages return to FREE.
func TestSizeClassRoundTrip(t *testing.T) {
	k, err := New(len(classSizes) + 1)
	if err != nil {
		t.Fatal(err)
	}

	objs := make([][]byte, len(classSizes))

	for i, class := range classSizes {
		obj, err := k.Kmalloc(class)
		if err != nil {
			t.Fatalf("Kmalloc(%d): %v", class, err)
		}
		if len(obj) != class {
			t.Fatalf("Kmalloc(%d) returned %d bytes", class, len(obj))
		}

		for j := range obj {
			obj[j] = byte(i + 1)
		}
		objs[i] = obj
	}

	for i, obj := range objs {
		for j, b := range obj {
			if b != byte(i+1) {
				t.Fatalf("object %d corrupted at offset %d: got %d", i, j, b)
			}
		}
	}

	for i := len(objs) - 1; i >= 0; i-- {
		if err := k.Kfree(objs[i]); err != nil {
			t.Fatalf("Kfree(%d): %v", i, err)
		}
	}

	for p := 0; p < k.arena.NumPages(); p++ {
		if !k.arena.IsFree(p) {
			t.Fatalf("page %d not returned to FREE after all objects freed", p)
		}
	}
}

func TestKfreeReturnsSlabPageToFree(t *testing.T) {
	k, _ := New(2)

	a, err := k.Kmalloc(16)
	if err != nil {
		t.Fatal(err)
	}
	b, err := k.Kmalloc(16)
	if err != nil {
		t.Fatal(err)
	}

	idx, ok := k.arena.pageIndexOf(a)
	if !ok {
		t.Fatal("could not locate page")
	}
	if k.arena.IsFree(idx) {
		t.Fatal("page should be SLAB, not FREE, while objects are live")
	}

	if err := k.Kfree(a); err != nil {
		t.Fatal(err)
	}
	if k.arena.IsFree(idx) {
		t.Fatal("page should still be in use: one object remains live")
	}

	if err := k.Kfree(b); err != nil {
		t.Fatal(err)
	}
	if !k.arena.IsFree(idx) {
		t.Fatal("page should return to FREE once all objects are freed")
	}
}

func TestKcallocOverflow(t *testing.T) {
	k, _ := New(2)

	if _, err := k.Kcalloc(1<<30, 1<<30); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestKstrdup(t *testing.T) {
	k, _ := New(2)

	s, err := k.Kstrdup("hello")
	if err != nil {
		t.Fatal(err)
	}
	if string(s[:5]) != "hello" || s[5] != 0 {
		t.Fatalf("kstrdup mismatch: %v", s)
	}
}

func TestStatsTracksUsage(t *testing.T) {
	k, _ := New(2)

	if _, err := k.Kmalloc(16); err != nil {
		t.Fatal(err)
	}

	stats := k.Stats()
	found := false
	for _, s := range stats {
		if s.Size == 16 {
			found = true
			if s.Used != 1 {
				t.Errorf("Used = %d, want 1", s.Used)
			}
		}
	}
	if !found {
		t.Fatal("expected a stat entry for size class 16")
	}
}

func TestBlockPageAccessors(t *testing.T) {
	a, err := NewArena(1)
	if err != nil {
		t.Fatal(err)
	}

	idx, err := a.AllocPage()
	if err != nil {
		t.Fatal(err)
	}

	a.SetBlock(idx)
	a.SetValid(idx)
	a.SetLBA(idx, 0, 5)
	a.IncRefcount(idx)

	if !a.IsBlock(idx) || !a.IsValid(idx) {
		t.Fatal("block page flags not set")
	}
	bdev, lba := a.GetLBA(idx)
	if bdev != 0 || lba != 5 {
		t.Fatalf("GetLBA = (%d,%d), want (0,5)", bdev, lba)
	}
	if a.GetRefcount(idx) != 1 {
		t.Fatalf("refcount = %d, want 1", a.GetRefcount(idx))
	}

	a.SetDirty(idx)
	if !a.IsDirty(idx) {
		t.Fatal("dirty flag not set")
	}
	a.ClrDirty(idx)
	if a.IsDirty(idx) {
		t.Fatal("dirty flag not cleared")
	}
}
