package capsule

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/wippyai/handle-graph/handle"
)

func TestCapsuleNew(t *testing.T) {
	reg := handle.NewRegistry(handle.Config{})

	c, err := New(reg, "res", "db_conn_t", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if c.Tag() != "db_conn_t" {
		t.Errorf("Tag() = %q, want 'db_conn_t'", c.Tag())
	}
	if c.Handle() == 0 {
		t.Fatal("expected non-zero handle")
	}

	count, err := reg.RefCount(c.Handle())
	if err != nil {
		t.Fatalf("RefCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("RefCount = %d, want 1", count)
	}
}

func TestCapsulePointer(t *testing.T) {
	reg := handle.NewRegistry(handle.Config{})

	c, _ := New(reg, "res", "db_conn_t", nil)

	res, err := c.Pointer("db_conn_t")
	if err != nil {
		t.Fatalf("Pointer failed: %v", err)
	}
	if res != "res" {
		t.Errorf("Pointer = %v, want 'res'", res)
	}
}

func TestCapsulePointerTagMismatch(t *testing.T) {
	reg := handle.NewRegistry(handle.Config{})

	c, _ := New(reg, "res", "db_conn_t", nil)

	_, err := c.Pointer("db_stmt_t")
	if err == nil {
		t.Fatal("expected tag mismatch error")
	}
	if !errors.Is(err, ErrTagMismatch) {
		t.Errorf("error = %v, want tag_mismatch", err)
	}
}

func TestCapsuleRelease(t *testing.T) {
	reg := handle.NewRegistry(handle.Config{})

	calls := 0
	c, _ := New(reg, "res", "tag", func(any) { calls++ })

	if err := c.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("destructor ran %d times, want 1", calls)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}

	// Second release is a no-op, not a double decrement.
	if err := c.Release(); err != nil {
		t.Errorf("second Release = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("destructor ran %d times after double release, want 1", calls)
	}

	// The boxed resource is gone.
	if _, err := c.Pointer("tag"); err == nil {
		t.Error("Pointer should fail after Release")
	}
}

func TestCapsuleReleaseDoesNotTouchReusedSlot(t *testing.T) {
	reg := handle.NewRegistry(handle.Config{})

	c, _ := New(reg, "old", "tag", nil)
	if err := c.Release(); err != nil {
		t.Fatal(err)
	}

	// The freed slot is recycled for an unrelated handle.
	h, _ := reg.New("new", nil)
	if h != c.Handle() {
		t.Skip("slot not reused")
	}

	if err := c.Release(); err != nil {
		t.Errorf("stale capsule release = %v, want nil no-op", err)
	}
	if !reg.Valid(h) {
		t.Error("stale capsule must not release the reused slot")
	}
	if _, err := c.Pointer("tag"); err == nil {
		t.Error("stale capsule must not read the reused slot")
	}
}

func TestCapsuleAddDependency(t *testing.T) {
	reg := handle.NewRegistry(handle.Config{})

	depCalls := 0
	dep, _ := New(reg, "dep", "db_conn_t", func(any) { depCalls++ })
	dependent, _ := New(reg, "dependent", "db_stmt_t", nil)

	if err := AddDependency(dependent, dep); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	count, _ := reg.RefCount(dep.Handle())
	if count != 2 {
		t.Errorf("RefCount(dep) = %d, want 2", count)
	}

	// Releasing the dependency capsule leaves the edge's claim.
	if err := dep.Release(); err != nil {
		t.Fatal(err)
	}
	if depCalls != 0 {
		t.Error("dependency destroyed while dependent alive")
	}

	// Releasing the dependent cascades.
	if err := dependent.Release(); err != nil {
		t.Fatal(err)
	}
	if depCalls != 1 {
		t.Errorf("dependency destructor ran %d times, want 1", depCalls)
	}
}

func TestCapsuleAddDependencyDifferentRegistries(t *testing.T) {
	regA := handle.NewRegistry(handle.Config{})
	regB := handle.NewRegistry(handle.Config{})

	a, _ := New(regA, "a", "tag", nil)
	b, _ := New(regB, "b", "tag", nil)

	if err := AddDependency(a, b); err == nil {
		t.Error("expected error for capsules from different registries")
	}
}

func TestCapsuleAddDependencyReleased(t *testing.T) {
	reg := handle.NewRegistry(handle.Config{})

	a, _ := New(reg, "a", "tag", nil)
	b, _ := New(reg, "b", "tag", nil)
	if err := b.Release(); err != nil {
		t.Fatal(err)
	}

	if err := AddDependency(a, b); err == nil {
		t.Error("expected error for released dependency capsule")
	}
	if err := AddDependency(b, a); err == nil {
		t.Error("expected error for released dependent capsule")
	}
}

func TestCapsuleCleanupReleasesOnCollection(t *testing.T) {
	reg := handle.NewRegistry(handle.Config{})

	var h handle.Handle
	func() {
		c, err := New(reg, "res", "tag", nil)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		h = c.Handle()
	}()

	// Once the capsule is unreachable, collection must release the claim.
	deadline := time.Now().Add(5 * time.Second)
	for reg.Valid(h) {
		if time.Now().After(deadline) {
			t.Fatal("handle not released after capsule became unreachable")
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
}
