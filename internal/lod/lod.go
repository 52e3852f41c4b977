// Package lod implements distance-based fidelity promotion/demotion with
// a transition-grace hysteresis window: entities are banded by distance
// from the player into a per-entity Lod level consumed by the AI
// dispatcher and movement system.
package lod

import (
	"math"

	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/tuning"
)

// Tick compares every (Position, Lod) entity's distance to playerPos and
// promotes/demotes it, setting TransitionUntil to suppress immediate
// re-flip.
func Tick(w *ecs.World, tn *tuning.Tuning, playerPos ecs.Vec2, playerZone string, now float64) {
	highRadius := tn.Get("lod", "high_radius", 20.0)
	mediumRadius := tn.Get("lod", "medium_radius", 45.0)
	grace := tn.Get("lod", "transition_grace", 1.0)

	for e, v := range ecs.Query2[ecs.Position, ecs.Lod](w) {
		if now < v.B.TransitionUntil {
			continue
		}
		if v.A.Zone != playerZone {
			if v.B.Level != ecs.LodLow {
				ecs.Mutate(w, e, func(l *ecs.Lod) { l.Level, l.TransitionUntil = ecs.LodLow, now+grace })
			}
			continue
		}
		dist := math.Hypot(v.A.X-playerPos.X, v.A.Y-playerPos.Y)
		var next ecs.LodLevel
		switch {
		case dist < highRadius:
			next = ecs.LodHigh
		case dist < mediumRadius:
			next = ecs.LodMedium
		default:
			next = ecs.LodLow
		}
		if next != v.B.Level {
			ecs.Mutate(w, e, func(l *ecs.Lod) { l.Level, l.TransitionUntil = next, now+grace })
		}
	}
}
