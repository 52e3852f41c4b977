// Package projectile implements the single per-frame kinematic
// projectile system: advance, wall/out-of-bounds collision, hurtbox
// overlap with falloff damage, and friendly-fire filtering. A projectile
// is ecs.Projectile + ecs.Position, nothing else — it never carries
// Health, Faction, or Brain. Age/traveled bookkeeping and
// first-hit-wins resolution carry over from a tracer lifecycle, with
// rendering stripped.
package projectile

import (
	"math"
	"math/rand/v2"

	"github.com/papsh-soup/simcore/internal/damage"
	"github.com/papsh-soup/simcore/internal/devlog"
	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/event"
	"github.com/papsh-soup/simcore/internal/particles"
	"github.com/papsh-soup/simcore/internal/tilemap"
)

// falloffMin is the damage multiplier floor at traveled == max_range:
// the multiplier is 1 - (1 - falloffMin)*t for t = traveled/maxRange.
const falloffMin = 0.5

// defaultHurtboxSize is the fallback AABB size, full width and height (a centered
// 0.8x0.8 box) used when a candidate target has no explicit Hurtbox.
const defaultHurtboxSize = 0.8

// Tick advances every (Position, Projectile) entity by dt, resolving
// wall/out-of-bounds kills, range expiry, and hit detection in a single
// deterministic ascending-entity-id pass.
func Tick(w *ecs.World, grid *tilemap.Grid, bus *event.Bus, log *devlog.Log, pm *particles.Manager, rng *rand.Rand, dt float64) {
	type hit struct {
		e      ecs.Entity
		target ecs.Entity
	}
	var kills []ecs.Entity
	var hits []hit

	for e, v := range ecs.Query2[ecs.Position, ecs.Projectile](w) {
		pos, proj := v.A, v.B
		nx := pos.X + proj.Dir.X*proj.Speed*dt
		ny := pos.Y + proj.Dir.Y*proj.Speed*dt
		step := math.Hypot(nx-pos.X, ny-pos.Y)

		if grid != nil && grid.AABBHitsWall(nx-proj.Radius, ny-proj.Radius, proj.Radius*2, proj.Radius*2) {
			if pm != nil {
				pm.Emit("debris", nx, ny, pos.Zone, 4)
			}
			kills = append(kills, e)
			continue
		}

		newTraveled := proj.Traveled + step
		if newTraveled >= proj.MaxRange {
			kills = append(kills, e)
			continue
		}

		ecs.Mutate(w, e, func(p *ecs.Position) { p.X, p.Y = nx, ny })
		ecs.Mutate(w, e, func(p *ecs.Projectile) { p.Traveled = newTraveled })

		target, ok := checkHit(w, e, proj, nx, ny, pos.Zone)
		if ok {
			hits = append(hits, hit{e: e, target: target})
		}
	}

	for _, h := range hits {
		resolveHit(w, grid, bus, log, pm, rng, h.e, h.target)
	}
	for _, e := range kills {
		w.Kill(e)
	}
}

func checkHit(w *ecs.World, self ecs.Entity, proj ecs.Projectile, x, y float64, zone string) (ecs.Entity, bool) {
	for e, v := range ecs.Query2[ecs.Position, ecs.Health](w) {
		if e == proj.Owner {
			continue
		}
		if ownerFaction, ok := ecs.Get[ecs.Faction](w, proj.Owner); ok {
			if targetFaction, ok := ecs.Get[ecs.Faction](w, e); ok && targetFaction.Group == ownerFaction.Group {
				continue
			}
		}
		if v.A.Zone != zone {
			continue
		}
		hw, hh := defaultHurtboxSize/2, defaultHurtboxSize/2
		cx, cy := v.A.X, v.A.Y
		if hb, ok := ecs.Get[ecs.Hurtbox](w, e); ok {
			hw, hh = hb.W/2, hb.H/2
			cx, cy = v.A.X+hb.OX, v.A.Y+hb.OY
		}
		if circleAABBOverlap(x, y, proj.Radius, cx-hw, cy-hh, hw*2, hh*2) {
			return e, true
		}
	}
	return 0, false
}

func circleAABBOverlap(cx, cy, r, bx, by, bw, bh float64) bool {
	closestX := math.Max(bx, math.Min(cx, bx+bw))
	closestY := math.Max(by, math.Min(cy, by+bh))
	return math.Hypot(cx-closestX, cy-closestY) <= r
}

func resolveHit(w *ecs.World, grid *tilemap.Grid, bus *event.Bus, log *devlog.Log, pm *particles.Manager, rng *rand.Rand, self, target ecs.Entity) {
	proj, ok := ecs.Get[ecs.Projectile](w, self)
	if !ok {
		return
	}
	t := math.Min(1, proj.Traveled/math.Max(proj.MaxRange, 1e-6))
	falloff := 1 - (1-falloffMin)*t
	dmg := proj.Damage * falloff

	dir := proj.Dir
	res := damage.Apply(w, log, pm, rng, proj.Owner, target, dmg, damage.Params{
		Knockback:      2.0,
		KnockbackDir:   &dir,
		ParticlePreset: "impact",
		LogPrefix:      "projectile",
	})
	bus.Emit(event.EntityHit{Target: target, Attacker: proj.Owner, Damage: res.DamageDealt})

	if res.IsDead {
		zone := ""
		if p, ok := ecs.Get[ecs.Position](w, target); ok {
			zone = p.Zone
		}
		bus.Emit(event.EntityDied{EID: target, KillerEID: proj.Owner, Zone: zone})
	} else if faction, ok := ecs.Get[ecs.Faction](w, target); ok {
		if p, ok := ecs.Get[ecs.Position](w, target); ok {
			bus.Emit(event.FactionAlert{Group: faction.Group, X: p.X, Y: p.Y, Zone: p.Zone, Threat: proj.Owner})
		}
	}

	w.Kill(self)
}
