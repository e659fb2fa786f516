package sweeper

import (
	"testing"

	"contextd/internal/metadata"
)

func TestSweepDeletesOnlyOrphans(t *testing.T) {
	store := metadata.NewMemStore()
	store.SetValue(metadata.PendingWarningKey("task1").String(), "[]")
	store.SetValue(metadata.PendingWarningKey("task2").String(), "[]")

	removed, err := Sweep(store, map[string]struct{}{"task1": {}})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}

	if _, ok, _ := store.GetValue(metadata.PendingWarningKey("task1").String()); !ok {
		t.Error("live task's key must survive")
	}
	if _, ok, _ := store.GetValue(metadata.PendingWarningKey("task2").String()); ok {
		t.Error("orphaned key must be deleted")
	}
}

func TestSweepIgnoresForeignKeys(t *testing.T) {
	store := metadata.NewMemStore()
	store.SetValue("someOtherState_task9", "x")

	removed, err := Sweep(store, map[string]struct{}{})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected no removals, got %d", removed)
	}
	if _, ok, _ := store.GetValue("someOtherState_task9"); !ok {
		t.Error("non-warning keys must not be touched")
	}
}

func TestSweepIdempotent(t *testing.T) {
	store := metadata.NewMemStore()
	store.SetValue(metadata.PendingWarningKey("gone").String(), "[]")

	existing := map[string]struct{}{}
	if _, err := Sweep(store, existing); err != nil {
		t.Fatalf("first Sweep failed: %v", err)
	}
	removed, err := Sweep(store, existing)
	if err != nil {
		t.Fatalf("second Sweep failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("second sweep should remove nothing, got %d", removed)
	}
}

func TestSweepKnownUsesStoreTasks(t *testing.T) {
	store := metadata.NewMemStore()
	store.Save("task1", metadata.NewTaskMetadata())
	store.SetValue(metadata.PendingWarningKey("task1").String(), "[]")
	store.SetValue(metadata.PendingWarningKey("deleted").String(), "[]")

	removed, err := SweepKnown(store)
	if err != nil {
		t.Fatalf("SweepKnown failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	if _, ok, _ := store.GetValue(metadata.PendingWarningKey("task1").String()); !ok {
		t.Error("key for an existing task must survive")
	}
}
