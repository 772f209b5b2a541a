package store

import (
	"context"
	"errors"
	"testing"
)

func TestListRuns_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "zeta")
	createTestRun(t, s, "alpha")
	createTestRun(t, s, "mid")

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}

	want := []string{"zeta", "alpha", "mid"}
	if len(runs) != len(want) {
		t.Fatalf("got %d runs, want %d", len(runs), len(want))
	}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, id)
		}
		if runs[i].Seq != int64(i+1) {
			t.Errorf("runs[%d].Seq = %d, want %d", i, runs[i].Seq, i+1)
		}
	}
}

func TestListRuns_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil {
		t.Error("ListRuns() returned nil, want empty slice")
	}
}

func TestReadRun(t *testing.T) {
	s := createTestStore(t)
	written := createTestRun(t, s, "run-1")

	got, err := s.ReadRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got != written {
		t.Errorf("ReadRun() = %+v, want %+v", got, written)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestReadEvents_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "run-1")
	createTestRun(t, s, "run-2")
	ctx := context.Background()

	// Written out of order on purpose.
	if err := s.WriteEvents(ctx, "run-1", []EventRecord{
		createTestEvent(3, "source", "b", "complete", ""),
		createTestEvent(1, "sink", "a", "next", `"x"`),
		createTestEvent(2, "source", "b", "error", "malfunction"),
	}); err != nil {
		t.Fatalf("WriteEvents() failed: %v", err)
	}
	if err := s.WriteEvents(ctx, "run-2", []EventRecord{
		createTestEvent(1, "source", "other", "next", "1"),
	}); err != nil {
		t.Fatalf("WriteEvents() failed: %v", err)
	}

	got, err := s.ReadEvents(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	for i, ev := range got {
		if ev.Seq != int64(i+1) {
			t.Errorf("events[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
	}
	if got[1].Kind != "error" || got[1].Value != "malfunction" {
		t.Errorf("events[1] = %+v, want error event with message", got[1])
	}
}

func TestReadEvents_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadEvents(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ReadEvents() = %v, want empty slice", got)
	}
}
