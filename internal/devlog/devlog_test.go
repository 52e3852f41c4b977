package devlog

import "testing"

func TestAddStampsCurrentTickWhenUnset(t *testing.T) {
	l := New()
	l.SetTick(42)
	l.Add(Entry{Category: "combat_fsm", Key: "mode_change", Value: "idle -> chase"})

	entries := l.Entries()
	if len(entries) != 1 || entries[0].Tick != 42 {
		t.Fatalf("expected the entry to be stamped with the current tick 42, got %+v", entries)
	}
}

func TestAddPreservesExplicitTick(t *testing.T) {
	l := New()
	l.SetTick(99)
	l.Add(Entry{Tick: 5, Category: "x"})

	entries := l.Entries()
	if entries[0].Tick != 5 {
		t.Fatalf("expected an explicitly-set Tick to be preserved over the current tick, got %d", entries[0].Tick)
	}
}

func TestEntriesPreservesChronologicalOrder(t *testing.T) {
	l := NewWithCapacity(10)
	for i := 0; i < 5; i++ {
		l.Add(Entry{Key: string(rune('a' + i))})
	}
	entries := l.Entries()
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		want := string(rune('a' + i))
		if e.Key != want {
			t.Fatalf("expected entries in insertion order, index %d: want %q got %q", i, want, e.Key)
		}
	}
}

func TestRingEvictsOldestBeyondCapacity(t *testing.T) {
	l := NewWithCapacity(3)
	for i := 0; i < 5; i++ {
		l.Add(Entry{Key: string(rune('a' + i))})
	}
	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected the ring to cap at 3 entries, got %d", len(entries))
	}
	got := []string{entries[0].Key, entries[1].Key, entries[2].Key}
	want := []string{"c", "d", "e"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected the oldest entries to be evicted leaving %v, got %v", want, got)
		}
	}
}

func TestFilterReturnsOnlyMatchingCategory(t *testing.T) {
	l := New()
	l.Add(Entry{Category: "combat_fsm", Key: "a"})
	l.Add(Entry{Category: "needs", Key: "b"})
	l.Add(Entry{Category: "combat_fsm", Key: "c"})

	got := l.Filter("combat_fsm")
	if len(got) != 2 {
		t.Fatalf("expected 2 combat_fsm entries, got %d", len(got))
	}
	if got[0].Key != "a" || got[1].Key != "c" {
		t.Fatalf("expected filtered entries in original order, got %+v", got)
	}
}

func TestNewWithCapacityNonPositiveFallsBackToDefault(t *testing.T) {
	l := NewWithCapacity(0)
	if l.capacity != defaultCapacity {
		t.Fatalf("expected a non-positive capacity request to fall back to defaultCapacity, got %d", l.capacity)
	}
}

func TestEntryStringIncludesNumValSuffixOnlyWhenNonzero(t *testing.T) {
	withNum := Entry{Tick: 1, Entity: 7, Category: "damage", Key: "hit", Value: "from=2", NumVal: 12.5}
	withoutNum := Entry{Tick: 1, Entity: 7, Category: "damage", Key: "hit", Value: "from=2"}

	if s := withNum.String(); s == withoutNum.String() {
		t.Fatalf("expected a nonzero NumVal to change the rendered line, got identical strings %q", s)
	}
}
