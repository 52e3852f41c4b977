package ecs

import "iter"

// All returns a lazy, non-restartable sequence of every (entity, component)
// pair for type T, in ascending entity-id order. Each call to All produces
// a fresh iterator; ranging over the same returned Seq2 twice is undefined
// since Go range-over-func sequences are documented as single-pass.
func All[T any](w *World) iter.Seq2[Entity, T] {
	ct := tableFor[T](w)
	ct.refresh()
	ids := ct.sorted
	return func(yield func(Entity, T) bool) {
		for _, e := range ids {
			v, ok := ct.data[e]
			if !ok {
				continue // purged mid-iteration
			}
			if !yield(e, v) {
				return
			}
		}
	}
}

// Query2 yields entities holding both A and B, iterating the smaller
// table and probing the other for membership, which keeps the common case
// of one rare component (e.g. Projectile) and one common one (Position)
// cheap without needing archetype bookkeeping.
func Query2[A, B any](w *World) iter.Seq2[Entity, struct {
	A A
	B B
}] {
	ta := tableFor[A](w)
	tb := tableFor[B](w)
	ta.refresh()
	tb.refresh()
	driveIsA := true
	if len(tb.sorted) < len(ta.sorted) {
		driveIsA = false
	}
	return func(yield func(Entity, struct {
		A A
		B B
	}) bool) {
		if driveIsA {
			for _, e := range ta.sorted {
				av, ok := ta.data[e]
				if !ok {
					continue
				}
				bv, ok := tb.data[e]
				if !ok {
					continue
				}
				if !yield(e, struct {
					A A
					B B
				}{av, bv}) {
					return
				}
			}
			return
		}
		for _, e := range tb.sorted {
			bv, ok := tb.data[e]
			if !ok {
				continue
			}
			av, ok := ta.data[e]
			if !ok {
				continue
			}
			if !yield(e, struct {
				A A
				B B
			}{av, bv}) {
				return
			}
		}
	}
}

// Query3 yields entities holding A, B, and C.
func Query3[A, B, C any](w *World) iter.Seq2[Entity, struct {
	A A
	B B
	C C
}] {
	ta := tableFor[A](w)
	tb := tableFor[B](w)
	tc := tableFor[C](w)
	ta.refresh()
	return func(yield func(Entity, struct {
		A A
		B B
		C C
	}) bool) {
		for _, e := range ta.sorted {
			av, ok := ta.data[e]
			if !ok {
				continue
			}
			bv, ok := tb.data[e]
			if !ok {
				continue
			}
			cv, ok := tc.data[e]
			if !ok {
				continue
			}
			if !yield(e, struct {
				A A
				B B
				C C
			}{av, bv, cv}) {
				return
			}
		}
	}
}

// QueryOne2 returns the first (lowest entity id) entity holding both A and
// B, or ok=false if none exists.
func QueryOne2[A, B any](w *World) (e Entity, a A, b B, ok bool) {
	for e, v := range Query2[A, B](w) {
		return e, v.A, v.B, true
	}
	return 0, a, b, false
}

// QueryZone2 yields entities in zone holding both A and B, iterating the
// zone's member set (kept in ascending-id order) rather than the whole
// world, giving O(k) behavior in zone population.
func QueryZone2[A, B any](w *World, zone string) iter.Seq2[Entity, struct {
	A A
	B B
}] {
	members := w.zoneMembersSorted(zone)
	ta := tableFor[A](w)
	tb := tableFor[B](w)
	return func(yield func(Entity, struct {
		A A
		B B
	}) bool) {
		for _, e := range members {
			av, ok := ta.data[e]
			if !ok {
				continue
			}
			bv, ok := tb.data[e]
			if !ok {
				continue
			}
			if !yield(e, struct {
				A A
				B B
			}{av, bv}) {
				return
			}
		}
	}
}

// Nearby yields entities in zone holding A whose Position lies within the
// square bounding box of radius around (x, y); callers that need a strict
// circle gate by d2 themselves. d2 is the squared distance from (x, y),
// provided so callers avoid recomputing it.
func Nearby[A any](w *World, zone string, x, y, radius float64) iter.Seq[struct {
	E  Entity
	A  A
	D2 float64
}] {
	members := w.zoneMembersSorted(zone)
	ta := tableFor[A](w)
	tp := tableFor[Position](w)
	r2 := radius * radius
	return func(yield func(struct {
		E  Entity
		A  A
		D2 float64
	}) bool) {
		for _, e := range members {
			av, ok := ta.data[e]
			if !ok {
				continue
			}
			pos, ok := tp.data[e]
			if !ok {
				continue
			}
			dx := pos.X - x
			dy := pos.Y - y
			if dx < -radius || dx > radius || dy < -radius || dy > radius {
				continue
			}
			d2 := dx*dx + dy*dy
			if d2 > r2*2 { // box prefilter only, not an exact radius test
				continue
			}
			if !yield(struct {
				E  Entity
				A  A
				D2 float64
			}{e, av, d2}) {
				return
			}
		}
	}
}
