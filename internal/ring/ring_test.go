package ring_test

import (
	"testing"

	"github.com/tavernmx/tmxchat/internal/ring"
)

func TestNewPanicsOnSmallCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(1) did not panic")
		}
	}()
	ring.New[int](1)
}

func TestEmptyBufferInvariants(t *testing.T) {
	b := ring.New[int](4)
	if !b.Empty() {
		t.Error("Empty() = false on fresh buffer")
	}
	if b.Full() {
		t.Error("Full() = true on fresh buffer")
	}
	if b.Size() != 0 {
		t.Errorf("Size() = %d, want 0", b.Size())
	}
	if _, ok := b.Tail(); ok {
		t.Error("Tail() ok = true on empty buffer")
	}
}

func TestInsertAndSize(t *testing.T) {
	b := ring.New[int](4) // accessible capacity 3
	b.Insert(1)
	b.Insert(2)
	if b.Size() != 2 {
		t.Errorf("Size() = %d, want 2", b.Size())
	}
	b.Insert(3)
	if !b.Full() {
		t.Error("Full() = false after inserting capacity-1 elements")
	}
	if b.Size() != 3 {
		t.Errorf("Size() = %d, want 3", b.Size())
	}
}

func TestInsertEvictsOldestWhenFull(t *testing.T) {
	b := ring.New[int](4) // accessible capacity 3
	b.Insert(1)
	b.Insert(2)
	b.Insert(3)
	b.Insert(4) // evicts 1

	if b.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", b.Size())
	}
	tail, ok := b.Tail()
	if !ok || tail != 2 {
		t.Errorf("Tail() = (%d, %v), want (2, true)", tail, ok)
	}
	got := b.Items()
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Items() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Items()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestReset(t *testing.T) {
	b := ring.New[int](4)
	b.Insert(1)
	b.Insert(2)
	b.Reset()
	if !b.Empty() {
		t.Error("Empty() = false after Reset")
	}
	if b.Size() != 0 {
		t.Errorf("Size() = %d after Reset, want 0", b.Size())
	}
}

// TestBoundedHistorySize mirrors a 1500-insert run into a Ring of capacity
// 1000: one slot is reserved as the empty/full sentinel, so 999 elements are
// retained, oldest first.
func TestBoundedHistorySize(t *testing.T) {
	const capacity = 1000
	const accessible = capacity - 1
	b := ring.New[int](capacity)
	for i := 0; i < 1500; i++ {
		b.Insert(i)
	}
	if b.Size() != accessible {
		t.Fatalf("Size() = %d, want %d", b.Size(), accessible)
	}
	tail, ok := b.Tail()
	if !ok || tail != 501 {
		t.Errorf("Tail() = (%d, %v), want (501, true)", tail, ok)
	}
	items := b.Items()
	if items[0] != 501 {
		t.Errorf("Items()[0] = %d, want 501", items[0])
	}
	if items[len(items)-1] != 1499 {
		t.Errorf("Items()[last] = %d, want 1499", items[len(items)-1])
	}
}
