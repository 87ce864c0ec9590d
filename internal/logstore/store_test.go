package logstore

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStreamLevel(t *testing.T) {
	tests := []struct {
		stream Stream
		want   Level
	}{
		{StreamStdout, LevelInfo},
		{StreamStderr, LevelError},
	}

	for _, tt := range tests {
		t.Run(string(tt.stream), func(t *testing.T) {
			if got := tt.stream.Level(); got != tt.want {
				t.Errorf("Level() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppendAndGetNewestFirst(t *testing.T) {
	store := New(Options{})

	store.Append(1, StreamStdout, "first")
	store.Append(1, StreamStderr, "second")
	store.Append(1, StreamStdout, "third")

	entries := store.Get(1, 0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	want := []string{"third", "second", "first"}
	for i, msg := range want {
		if entries[i].Message != msg {
			t.Errorf("entries[%d].Message = %q, want %q", i, entries[i].Message, msg)
		}
	}

	if entries[1].Level != LevelError {
		t.Errorf("stderr entry level = %q, want %q", entries[1].Level, LevelError)
	}
	if entries[0].ServiceID != 1 {
		t.Errorf("ServiceID = %d, want 1", entries[0].ServiceID)
	}
}

func TestGetLimit(t *testing.T) {
	store := New(Options{})
	for i := 0; i < 10; i++ {
		store.Append(7, StreamStdout, fmt.Sprintf("line %d", i))
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"no limit", 0, 10},
		{"negative limit", -1, 10},
		{"smaller limit", 3, 3},
		{"larger limit", 50, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := store.Get(7, tt.limit)
			if len(entries) != tt.want {
				t.Fatalf("Get(limit=%d) returned %d entries, want %d", tt.limit, len(entries), tt.want)
			}
			if entries[0].Message != "line 9" {
				t.Errorf("first entry = %q, want newest %q", entries[0].Message, "line 9")
			}
		})
	}
}

func TestGetUnknownServiceReturnsEmpty(t *testing.T) {
	store := New(Options{})

	entries := store.Get(42, 0)
	if entries == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	store := New(Options{})

	total := DefaultCapacity + 250
	for i := 0; i < total; i++ {
		store.Append(1, StreamStdout, fmt.Sprintf("line %d", i))
	}

	if got := store.Count(1); got != DefaultCapacity {
		t.Fatalf("Count() = %d, want %d", got, DefaultCapacity)
	}

	history := store.History(1)
	if history[0].Message != "line 250" {
		t.Errorf("oldest retained = %q, want %q", history[0].Message, "line 250")
	}
	if history[len(history)-1].Message != fmt.Sprintf("line %d", total-1) {
		t.Errorf("newest retained = %q", history[len(history)-1].Message)
	}

	stats := store.Stats()
	if stats.Evictions != 250 {
		t.Errorf("Evictions = %d, want 250", stats.Evictions)
	}
}

func TestCustomCapacity(t *testing.T) {
	store := New(Options{Capacity: 3})
	for i := 0; i < 5; i++ {
		store.Append(1, StreamStdout, fmt.Sprintf("%d", i))
	}

	entries := store.Get(1, 0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "4" || entries[2].Message != "2" {
		t.Errorf("unexpected entries: %q .. %q", entries[0].Message, entries[2].Message)
	}
}

func TestIDsIncreaseAcrossServices(t *testing.T) {
	store := New(Options{})

	a := store.Append(1, StreamStdout, "a")
	b := store.Append(2, StreamStdout, "b")
	c := store.Append(1, StreamStderr, "c")

	if !(a.ID < b.ID && b.ID < c.ID) {
		t.Errorf("ids not increasing: %d, %d, %d", a.ID, b.ID, c.ID)
	}
	if a.ID != 1 {
		t.Errorf("first id = %d, want 1", a.ID)
	}
}

func TestClearKeepsIDCounter(t *testing.T) {
	store := New(Options{})

	store.Append(1, StreamStdout, "a")
	last := store.Append(1, StreamStdout, "b")
	store.Clear(1)

	if got := store.Count(1); got != 0 {
		t.Fatalf("Count() after Clear = %d, want 0", got)
	}

	next := store.Append(1, StreamStdout, "c")
	if next.ID <= last.ID {
		t.Errorf("id reused after Clear: %d <= %d", next.ID, last.ID)
	}
}

func TestClearOnlyAffectsOneService(t *testing.T) {
	store := New(Options{})
	store.Append(1, StreamStdout, "a")
	store.Append(2, StreamStdout, "b")

	store.Clear(1)

	if store.Count(2) != 1 {
		t.Errorf("service 2 lost entries after clearing service 1")
	}
}

func TestConcurrentAppendOrdering(t *testing.T) {
	store := New(Options{Capacity: 5000})

	var wg sync.WaitGroup
	for _, stream := range []Stream{StreamStdout, StreamStderr} {
		wg.Add(1)
		go func(s Stream) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				store.Append(1, s, "x")
			}
		}(stream)
	}
	wg.Wait()

	history := store.History(1)
	if len(history) != 2000 {
		t.Fatalf("expected 2000 entries, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].ID <= history[i-1].ID {
			t.Fatalf("append order broken at %d: %d after %d", i, history[i].ID, history[i-1].ID)
		}
	}
}

func TestOnAppendCallback(t *testing.T) {
	var (
		mu       sync.Mutex
		got      []Entry
		evicted  int
		fixedNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	)

	store := New(Options{
		Capacity: 2,
		Now:      func() time.Time { return fixedNow },
		OnAppend: func(entry Entry, ev bool) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, entry)
			if ev {
				evicted++
			}
		},
	})

	store.Append(3, StreamStdout, "one")
	store.Append(3, StreamStdout, "two")
	store.Append(3, StreamStdout, "three")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("callback called %d times, want 3", len(got))
	}
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if !got[0].Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, fixedNow)
	}
}

func TestStats(t *testing.T) {
	store := New(Options{})
	store.Append(1, StreamStdout, "a")
	store.Append(1, StreamStdout, "b")
	store.Append(2, StreamStderr, "c")

	stats := store.Stats()
	if stats.Services != 2 {
		t.Errorf("Services = %d, want 2", stats.Services)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
	if stats.LastID != 3 {
		t.Errorf("LastID = %d, want 3", stats.LastID)
	}
}
