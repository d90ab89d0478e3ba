package history

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSaveGet(t *testing.T) {
	s := NewMemoryStore()
	r := &RenderRecord{JobID: "a", State: "encoding"}
	if err := s.Save(r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if r.ID == 0 || r.CreatedAt.IsZero() {
		t.Fatalf("expected ID and CreatedAt to be assigned, got %+v", r.Model)
	}
	created := r.CreatedAt

	update := &RenderRecord{JobID: "a", State: "succeeded", Frames: 300}
	if err := s.Save(update); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if update.ID != r.ID || !update.CreatedAt.Equal(created) {
		t.Errorf("update must keep identity, got %+v", update.Model)
	}

	got, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != "succeeded" || got.Frames != 300 || !got.Succeeded() {
		t.Errorf("unexpected record %+v", got)
	}

	// Callers cannot mutate stored records.
	got.State = "failed"
	if again, _ := s.Get("a"); again.State != "succeeded" {
		t.Errorf("store leaked internal record")
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		r := &RenderRecord{JobID: id}
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.Save(r)
	}

	all, err := s.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, r := range all {
		ids = append(ids, r.JobID)
	}
	if len(ids) != 3 || ids[0] != "new" || ids[2] != "old" {
		t.Errorf("unexpected order %v", ids)
	}

	two, _ := s.List(2)
	if len(two) != 2 || two[0].JobID != "new" || two[1].JobID != "mid" {
		t.Errorf("unexpected limited list %+v", two)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	s.Save(&RenderRecord{JobID: "a"})
	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("record still present: %v", err)
	}
	if err := s.Delete("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestElapsed(t *testing.T) {
	r := &RenderRecord{ElapsedMs: 1500}
	if r.Elapsed() != 1500*time.Millisecond {
		t.Errorf("unexpected elapsed %v", r.Elapsed())
	}
}
