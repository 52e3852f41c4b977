package particles

import "testing"

func TestEmitAddsABurst(t *testing.T) {
	m := NewManager()
	m.Emit("spark", 1, 2, "zone", 5)

	active := m.Active()
	if len(active) != 1 {
		t.Fatalf("expected one active burst after a single Emit, got %d", len(active))
	}
	b := active[0]
	if b.Preset != "spark" || b.X != 1 || b.Y != 2 || b.Zone != "zone" || b.Count != 5 {
		t.Fatalf("unexpected burst fields: %+v", b)
	}
	if b.Remaining != defaultLifetime {
		t.Fatalf("expected a fresh burst's Remaining to equal defaultLifetime, got %v", b.Remaining)
	}
}

func TestTickAgesAndEvictsExpiredBursts(t *testing.T) {
	m := NewManager()
	m.Emit("spark", 0, 0, "zone", 1)

	m.Tick(defaultLifetime / 2)
	if len(m.Active()) != 1 {
		t.Fatalf("expected the burst to still be active at half its lifetime")
	}

	m.Tick(defaultLifetime/2 + 1e-6)
	if len(m.Active()) != 0 {
		t.Fatalf("expected the burst to expire once its remaining lifetime drops to zero")
	}
}

func TestEmitEvictsOldestWhenAtCapacity(t *testing.T) {
	m := NewManager()
	for i := 0; i < maxActive; i++ {
		m.Emit("spark", float64(i), 0, "zone", 1)
	}
	if len(m.Active()) != maxActive {
		t.Fatalf("expected the queue to be exactly at capacity, got %d", len(m.Active()))
	}

	m.Emit("spark", 999, 0, "zone", 1)

	active := m.Active()
	if len(active) != maxActive {
		t.Fatalf("expected the queue to stay capped at maxActive, got %d", len(active))
	}
	if active[0].X != 1 {
		t.Fatalf("expected the oldest burst (x=0) to be evicted, leaving x=1 as the new oldest, got x=%v", active[0].X)
	}
	if active[len(active)-1].X != 999 {
		t.Fatalf("expected the newly emitted burst to be appended at the end, got x=%v", active[len(active)-1].X)
	}
}
