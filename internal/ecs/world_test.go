package ecs

import "testing"

func TestSpawnAddGetHas(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	if !w.Alive(e) {
		t.Fatalf("expected freshly spawned entity to be alive")
	}
	if Has[Position](w, e) {
		t.Fatalf("expected no Position before Add")
	}
	Add(w, e, Position{X: 1, Y: 2, Zone: "a"})
	if !Has[Position](w, e) {
		t.Fatalf("expected Position after Add")
	}
	pos, ok := Get[Position](w, e)
	if !ok || pos.X != 1 || pos.Y != 2 {
		t.Fatalf("unexpected Position: %+v ok=%v", pos, ok)
	}
}

func TestMutateWritesBack(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	Add(w, e, Health{Current: 10, Maximum: 10})
	Mutate(w, e, func(h *Health) { h.Current -= 4 })
	h, ok := Get[Health](w, e)
	if !ok || h.Current != 6 {
		t.Fatalf("expected Current=6 after Mutate, got %+v", h)
	}
}

func TestKillIsDeferredUntilPurge(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	Add(w, e, Health{Current: 1, Maximum: 1})
	w.Kill(e)
	if w.Alive(e) {
		t.Fatalf("expected Kill to mark dead immediately")
	}
	if !Has[Health](w, e) {
		t.Fatalf("expected component table to retain entry until Purge")
	}
	w.Purge()
	if Has[Health](w, e) {
		t.Fatalf("expected Purge to remove the component")
	}
}

func TestAllIterationOrderIsStableByEntityID(t *testing.T) {
	w := NewWorld()
	var ids []Entity
	for i := 0; i < 5; i++ {
		e := w.Spawn()
		Add(w, e, Health{Current: float64(i), Maximum: 10})
		ids = append(ids, e)
	}
	var seen []Entity
	for e := range All[Health](w) {
		seen = append(seen, e)
	}
	if len(seen) != len(ids) {
		t.Fatalf("expected %d entities, got %d", len(ids), len(seen))
	}
	for i := range seen {
		if seen[i] != ids[i] {
			t.Fatalf("expected ascending entity-id order, got %v", seen)
		}
	}
}

func TestQuery2RequiresBothComponents(t *testing.T) {
	w := NewWorld()
	e1 := w.Spawn()
	Add(w, e1, Position{Zone: "a"})
	Add(w, e1, Health{Current: 5, Maximum: 5})

	e2 := w.Spawn()
	Add(w, e2, Position{Zone: "a"}) // no Health

	count := 0
	for e, v := range Query2[Position, Health](w) {
		if e != e1 {
			t.Fatalf("expected only e1 to match, got %d", e)
		}
		if v.B.Current != 5 {
			t.Fatalf("unexpected Health: %+v", v.B)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 match, got %d", count)
	}
}

func TestZoneAddAndQueryZone2(t *testing.T) {
	w := NewWorld()
	e1 := w.Spawn()
	Add(w, e1, Position{Zone: "a"})
	Add(w, e1, Health{Current: 1, Maximum: 1})
	w.ZoneAdd(e1, "a")

	e2 := w.Spawn()
	Add(w, e2, Position{Zone: "b"})
	Add(w, e2, Health{Current: 1, Maximum: 1})
	w.ZoneAdd(e2, "b")

	var seen []Entity
	for e := range QueryZone2[Position, Health](w, "a") {
		seen = append(seen, e)
	}
	if len(seen) != 1 || seen[0] != e1 {
		t.Fatalf("expected only e1 in zone a, got %v", seen)
	}
}

func TestZoneSetMovesIndexAtomically(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	w.ZoneAdd(e, "a")
	w.ZoneSet(e, "b")
	if w.ZoneOf(e) != "b" {
		t.Fatalf("expected zone b, got %s", w.ZoneOf(e))
	}
	count := 0
	for range w.zoneMembersSorted("a") {
		count++
	}
	if count != 0 {
		t.Fatalf("expected zone a to have no members after ZoneSet, got %d", count)
	}
}

func TestResSetAndGet(t *testing.T) {
	w := NewWorld()
	if _, ok := Res[GameClock](w); ok {
		t.Fatalf("expected no GameClock resource before SetRes")
	}
	SetRes(w, GameClock{Time: 5})
	c, ok := Res[GameClock](w)
	if !ok || c.Time != 5 {
		t.Fatalf("unexpected GameClock: %+v ok=%v", c, ok)
	}
}
