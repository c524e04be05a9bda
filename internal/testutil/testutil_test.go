package testutil

import (
	"context"
	"errors"
	"testing"
)

func TestDaysAgo(t *testing.T) {
	got := DateStrings(Today, 0, 4, 30)
	want := []string{"2026-10-19", "2026-10-15", "2026-09-19"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("seeded", func(t *testing.T) {
		m := NewMemoryStore(DaysAgo(Today, 10, 20, 10)...)
		got := m.Strings()
		if len(got) != 2 || got[0] != "2026-09-29" || got[1] != "2026-10-09" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("add and remove", func(t *testing.T) {
		m := NewMemoryStore()
		m.AddDate(ctx, Today)
		m.AddDate(ctx, Today)
		if n := len(m.Strings()); n != 1 {
			t.Errorf("expected 1 date, got %d", n)
		}
		m.RemoveDate(ctx, Today)
		if n := len(m.Strings()); n != 0 {
			t.Errorf("expected 0 dates, got %d", n)
		}
		if m.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", m.Calls())
		}
	})

	t.Run("failure injection", func(t *testing.T) {
		boom := errors.New("connection refused")
		m := NewMemoryStore()
		m.FailWith(boom)

		if _, err := m.ListDates(ctx); !errors.Is(err, boom) {
			t.Errorf("ListDates: got %v, want %v", err, boom)
		}
		if err := m.Ping(ctx); !errors.Is(err, boom) {
			t.Errorf("Ping: got %v, want %v", err, boom)
		}

		m.FailWith(nil)
		if err := m.AddDate(ctx, Today); err != nil {
			t.Errorf("AddDate after recovery: %v", err)
		}
	})
}
