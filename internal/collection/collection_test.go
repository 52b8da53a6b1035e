package collection

import (
	"errors"
	"testing"
)

type item struct {
	key   string
	value int
}

type itemComparer struct{}

func (itemComparer) Equal(a, b *item) bool         { return a.key == b.key }
func (itemComparer) HasID(e *item, id string) bool { return e.key == id }
func (itemComparer) ID(e *item) string             { return e.key }

func newTestCollection(t *testing.T, keys ...string) *Collection[*item] {
	t.Helper()
	c := New[*item](itemComparer{})
	for i, k := range keys {
		if err := c.Add(&item{key: k, value: i}); err != nil {
			t.Fatalf("Add(%q) failed: %v", k, err)
		}
	}
	return c
}

func TestFindByID(t *testing.T) {
	c := newTestCollection(t, "a", "b")

	got, err := c.FindByID("b")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.value != 1 {
		t.Errorf("FindByID() value = %d, want 1", got.value)
	}

	_, err = c.FindByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID(missing) error = %v, want ErrNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != "missing" {
		t.Errorf("FindByID(missing) error = %#v, want *NotFoundError with ID", err)
	}
}

func TestContains(t *testing.T) {
	c := newTestCollection(t, "a")

	if !c.Contains("a") {
		t.Error("Contains(a) = false, want true")
	}
	if c.Contains("A") {
		t.Error("Contains(A) = true, ids must match exactly")
	}
}

func TestAdd_Duplicate(t *testing.T) {
	c := newTestCollection(t, "a")

	err := c.Add(&item{key: "a", value: 99})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Add(duplicate) error = %v, want ErrDuplicate", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	got, _ := c.FindByID("a")
	if got.value != 0 {
		t.Errorf("original entity replaced, value = %d", got.value)
	}
}

func TestRemove_ByEquivalentValue(t *testing.T) {
	c := newTestCollection(t, "a", "b", "c")

	// A reconstructed entity must remove the stored one.
	if err := c.Remove(&item{key: "b"}); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if c.Contains("b") {
		t.Error("entity b still present after Remove")
	}

	err := c.Remove(&item{key: "b"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}

func TestRemoveIf_Keep(t *testing.T) {
	c := newTestCollection(t, "a")

	err := c.RemoveIf(&item{key: "a"}, func(*item) bool { return true })
	if err != nil {
		t.Fatalf("RemoveIf() error = %v", err)
	}
	if !c.Contains("a") {
		t.Error("RemoveIf removed an entity the predicate kept")
	}
}

func TestFindAll_InsertionOrder(t *testing.T) {
	c := newTestCollection(t, "z", "a", "m")
	if err := c.Remove(&item{key: "a"}); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := c.Add(&item{key: "a"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	all := c.FindAll()
	want := []string{"z", "m", "a"}
	if len(all) != len(want) {
		t.Fatalf("FindAll() len = %d, want %d", len(all), len(want))
	}
	for i, k := range want {
		if all[i].key != k {
			t.Errorf("FindAll()[%d] = %q, want %q", i, all[i].key, k)
		}
	}
}

func TestAddIfAbsent(t *testing.T) {
	c := New[*item](itemComparer{})
	calls := 0
	create := func() (*item, error) {
		calls++
		return &item{key: "x", value: calls}, nil
	}

	first, created, err := c.AddIfAbsent("x", create)
	if err != nil || !created {
		t.Fatalf("AddIfAbsent() = %v, %v; want created", created, err)
	}
	second, created, err := c.AddIfAbsent("x", create)
	if err != nil || created {
		t.Fatalf("AddIfAbsent() second = %v, %v; want existing", created, err)
	}
	if first != second {
		t.Error("AddIfAbsent returned a different entity for the same id")
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	_, _, err = c.AddIfAbsent("y", func() (*item, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("AddIfAbsent() error = %v, want boom", err)
	}
	if c.Contains("y") {
		t.Error("failed create must not store an entity")
	}
}
