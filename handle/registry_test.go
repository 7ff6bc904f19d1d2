package handle

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryNew(t *testing.T) {
	reg := NewRegistry(Config{})

	h, err := reg.New("res", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if h == 0 {
		t.Fatal("expected non-zero handle")
	}

	count, err := reg.RefCount(h)
	if err != nil {
		t.Fatalf("RefCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("RefCount = %d, want 1", count)
	}

	res, err := reg.Resource(h)
	if err != nil {
		t.Fatalf("Resource failed: %v", err)
	}
	if res != "res" {
		t.Errorf("Resource = %v, want 'res'", res)
	}

	deps, err := reg.Dependencies(h)
	if err != nil {
		t.Fatalf("Dependencies failed: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("Dependencies = %v, want empty", deps)
	}

	if !reg.Valid(h) {
		t.Error("Valid = false, want true")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistryNewDistinctHandles(t *testing.T) {
	reg := NewRegistry(Config{})

	h1, _ := reg.New(1, nil)
	h2, _ := reg.New(2, nil)

	if h1 == h2 {
		t.Error("New returned same handle for different resources")
	}
}

func TestRegistryMaxHandles(t *testing.T) {
	reg := NewRegistry(Config{MaxHandles: 2})

	h1, err := reg.New(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.New(2, nil); err != nil {
		t.Fatal(err)
	}

	_, err = reg.New(3, nil)
	if err == nil {
		t.Fatal("expected allocation error at bound")
	}
	if !errors.Is(err, ErrAllocation) {
		t.Errorf("error = %v, want allocation", err)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	// Releasing frees capacity.
	if err := reg.Release(h1); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.New(3, nil); err != nil {
		t.Errorf("New after release failed: %v", err)
	}
}

func TestRegistryFreeListReuse(t *testing.T) {
	reg := NewRegistry(Config{})

	h1, _ := reg.New(1, nil)
	if err := reg.Release(h1); err != nil {
		t.Fatal(err)
	}

	// New allocation should reuse the freed slot.
	h2, _ := reg.New(2, nil)
	if h2 != h1 {
		t.Error("expected handle reuse from free list")
	}

	res, err := reg.Resource(h2)
	if err != nil {
		t.Fatalf("Resource failed for reused handle: %v", err)
	}
	if res != 2 {
		t.Errorf("Resource = %v, want 2", res)
	}
	count, _ := reg.RefCount(h2)
	if count != 1 {
		t.Errorf("RefCount = %d, want 1 for reused slot", count)
	}
}

func TestRegistryInvalidHandle(t *testing.T) {
	reg := NewRegistry(Config{})

	for _, h := range []Handle{0, 999} {
		if _, err := reg.Resource(h); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("Resource(%d) error = %v, want invalid_handle", h, err)
		}
		if _, err := reg.RefCount(h); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("RefCount(%d) error = %v, want invalid_handle", h, err)
		}
		if _, err := reg.Dependencies(h); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("Dependencies(%d) error = %v, want invalid_handle", h, err)
		}
		if reg.Valid(h) {
			t.Errorf("Valid(%d) = true, want false", h)
		}
	}
}

func TestRegistryEach(t *testing.T) {
	reg := NewRegistry(Config{})

	h1, _ := reg.New("a", nil)
	h2, _ := reg.New("b", nil)
	h3, _ := reg.New("c", nil)
	if err := reg.Release(h2); err != nil {
		t.Fatal(err)
	}

	seen := map[Handle]any{}
	reg.Each(func(h Handle, res any) bool {
		seen[h] = res
		return true
	})

	if len(seen) != 2 {
		t.Fatalf("Each visited %d handles, want 2", len(seen))
	}
	if seen[h1] != "a" || seen[h3] != "c" {
		t.Errorf("Each saw %v", seen)
	}

	// Early stop.
	visits := 0
	reg.Each(func(Handle, any) bool {
		visits++
		return false
	})
	if visits != 1 {
		t.Errorf("Each visited %d handles after stop, want 1", visits)
	}
}

func TestRegistryClose(t *testing.T) {
	reg := NewRegistry(Config{})

	var order []string
	record := func(name string) Destructor {
		return func(any) { order = append(order, name) }
	}

	c, _ := reg.New("C", record("C"))
	b, _ := reg.New("B", record("B"))
	a, _ := reg.New("A", record("A"))
	if err := reg.AddDependency(b, c); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddDependency(a, b); err != nil {
		t.Fatal(err)
	}

	// Outstanding claims do not stop Close.
	if err := reg.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("destructors ran %d times, want 3 (%v)", len(order), order)
	}
	if order[0] != "C" || order[1] != "B" || order[2] != "A" {
		t.Errorf("teardown order = %v, want [C B A]", order)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}

	// Operations fail once closed.
	if _, err := reg.New("late", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("New error = %v, want closed", err)
	}
	if _, err := reg.Resource(a); !errors.Is(err, ErrClosed) {
		t.Errorf("Resource error = %v, want closed", err)
	}

	// Close is idempotent.
	if err := reg.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestRegistryCloseReportsPanic(t *testing.T) {
	reg := NewRegistry(Config{})

	if _, err := reg.New("bad", func(any) { panic("boom") }); err != nil {
		t.Fatal(err)
	}

	err := reg.Close()
	if err == nil {
		t.Fatal("expected destructor_panic from Close")
	}
	if !errors.Is(err, ErrDestructorPanic) {
		t.Errorf("error = %v, want destructor_panic", err)
	}
}

func TestRegistryConcurrentSmoke(t *testing.T) {
	reg := NewRegistry(Config{})

	const goroutines = 8
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				dep, err := reg.New(i, nil)
				if err != nil {
					t.Errorf("New failed: %v", err)
					return
				}
				dependent, err := reg.New(i, nil)
				if err != nil {
					t.Errorf("New failed: %v", err)
					return
				}
				if err := reg.AddDependency(dependent, dep); err != nil {
					t.Errorf("AddDependency failed: %v", err)
					return
				}
				if err := reg.Release(dep); err != nil {
					t.Errorf("Release failed: %v", err)
					return
				}
				if err := reg.Release(dependent); err != nil {
					t.Errorf("Release failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after all goroutines drained", reg.Len())
	}
}
