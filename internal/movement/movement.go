// Package movement implements the shared per-frame movement system:
// wall-slide integration, entity soft-separation, and knockback friction.
package movement

import (
	"math"

	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/tilemap"
)

// knockbackFriction decays velocity each frame; knockbackFloor clamps the
// remainder to zero once it gets negligible.
const (
	knockbackFriction = 0.85
	knockbackFloor    = 0.05
)

// Tick integrates every (Position, Velocity) entity by dt, applying
// wall-slide collision against grid, then entity soft-separation among
// colliders in the same zone, then knockback friction. playerEID is
// exempt from the low-LOD velocity freeze: non-player entities at Lod.Low
// have their velocity zeroed and skip movement entirely.
func Tick(w *ecs.World, grid *tilemap.Grid, playerEID ecs.Entity, dt float64) {
	var bodies []collisionBody

	for e, v := range ecs.Query2[ecs.Position, ecs.Velocity](w) {
		if e != playerEID {
			if lod, ok := ecs.Get[ecs.Lod](w, e); ok && lod.Level == ecs.LodLow {
				ecs.Mutate(w, e, func(vel *ecs.Velocity) { vel.X, vel.Y = 0, 0 })
				continue
			}
		}
		pos, vel := v.A, v.B
		nx := pos.X + vel.X*dt
		ny := pos.Y + vel.Y*dt

		if grid != nil {
			if grid.AABBHitsWall(nx-tilemap.HitboxW/2, pos.Y-tilemap.HitboxH/2, tilemap.HitboxW, tilemap.HitboxH) {
				nx = pos.X
				ecs.Mutate(w, e, func(vv *ecs.Velocity) { vv.X = 0 })
			}
			if grid.AABBHitsWall(nx-tilemap.HitboxW/2, ny-tilemap.HitboxH/2, tilemap.HitboxW, tilemap.HitboxH) {
				ny = pos.Y
				ecs.Mutate(w, e, func(vv *ecs.Velocity) { vv.Y = 0 })
			}
		}

		ecs.Mutate(w, e, func(p *ecs.Position) { p.X, p.Y = nx, ny })

		if c, ok := ecs.Get[ecs.Collider](w, e); ok {
			bodies = append(bodies, collisionBody{e: e, x: nx, y: ny, w2: c.W / 2, h2: c.H / 2})
		}
	}

	separate(w, bodies)

	for e, hf := range ecs.All[ecs.HitFlash](w) {
		if e == playerEID || hf.Remaining <= 0 {
			continue
		}
		ecs.Mutate(w, e, func(v *ecs.Velocity) {
			v.X *= knockbackFriction
			v.Y *= knockbackFriction
			if math.Abs(v.X) < knockbackFloor {
				v.X = 0
			}
			if math.Abs(v.Y) < knockbackFloor {
				v.Y = 0
			}
		})
	}
}

// collisionBody is a snapshot of one collider's post-move center and
// half-extents, used only within a single Tick call.
type collisionBody struct {
	e      ecs.Entity
	x, y   float64
	w2, h2 float64
}

// separate pushes overlapping colliders apart by 40% of their overlap
// along the unit separation vector.
func separate(w *ecs.World, bodies []collisionBody) {
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			posA, okA := ecs.Get[ecs.Position](w, a.e)
			posB, okB := ecs.Get[ecs.Position](w, b.e)
			if !okA || !okB || posA.Zone != posB.Zone {
				continue
			}
			dx, dy := b.x-a.x, b.y-a.y
			dist := math.Hypot(dx, dy)
			minDist := a.w2 + b.w2
			if dist >= minDist || dist < 1e-6 {
				continue
			}
			overlap := minDist - dist
			ux, uy := dx/dist, dy/dist
			push := overlap * 0.4
			ecs.Mutate(w, a.e, func(p *ecs.Position) { p.X -= ux * push; p.Y -= uy * push })
			ecs.Mutate(w, b.e, func(p *ecs.Position) { p.X += ux * push; p.Y += uy * push })
		}
	}
}
