// Package brains implements the non-combat AI brains dispatched by the
// tick orchestrator's AI runner: wander and villager locomotion.
// Dispatch is a plain switch over ecs.BrainKind rather than a runtime
// registry, since the full set of non-combat kinds is closed and known
// at compile time.
package brains

import (
	"math"
	"math/rand/v2"

	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/tilemap"
	"github.com/papsh-soup/simcore/internal/tuning"
)

// Deps bundles the dependencies a non-combat brain tick needs, mirroring
// combatfsm.World's shape so the tick orchestrator can build one struct
// per frame and hand it to either dispatcher.
type Deps struct {
	W    *ecs.World
	Grid *tilemap.Grid
	Tune *tuning.Tuning
	Rng  *rand.Rand
	Now  float64
	Dt   float64
}

// Dispatch runs the registered non-combat brain for self's Brain.Kind.
// Entities reaching Dispatch already failed the tick orchestrator's
// combat-brain gate (no Threat+AttackConfig, or not engaging and not a
// guard/hostile_* kind), so only Wander and Villager are live kinds here;
// any other value is a precondition miss and is a silent no-op.
func Dispatch(d Deps, self ecs.Entity, kind ecs.BrainKind) {
	if flee, ok := ecs.Get[ecs.FleeState](d.W, self); ok {
		if d.Now < flee.Until {
			Flee(d, self, *flee)
			return
		}
		ecs.Remove[ecs.FleeState](d.W, self)
	}
	switch kind {
	case ecs.BrainWander:
		Wander(d, self)
	case ecs.BrainVillager:
		Villager(d, self)
	}
}

// fleeSpeedMult scales an unarmed fleeing civilian's patrol speed.
// combatfsm's flee mode for armed NPCs uses its own multiplier (1.3).
const fleeSpeedMult = 1.6

// Flee moves self directly away from flee.Source at fleeSpeedMult times
// its patrol speed (or a flat fallback if it has no HomeRange).
func Flee(d Deps, self ecs.Entity, flee ecs.FleeState) {
	pos, ok := ecs.Get[ecs.Position](d.W, self)
	if !ok {
		return
	}
	speed := 2.0
	if home, ok := ecs.Get[ecs.HomeRange](d.W, self); ok && home.PatrolSpeed > 0 {
		speed = home.PatrolSpeed
	}
	speed *= fleeSpeedMult

	dx, dy := pos.X-flee.Source.X, pos.Y-flee.Source.Y
	dist := math.Hypot(dx, dy)
	vx, vy := 0.0, 0.0
	if dist > 1e-6 {
		vx, vy = dx/dist*speed, dy/dist*speed
	}
	ecs.Mutate(d.W, self, func(v *ecs.Velocity) { v.X, v.Y = vx, vy })
}

// SetFlee (re)arms self's FleeState for duration seconds. Only meaningful
// for entities without AttackConfig — armed
// entities flee via CombatState.Mode == ModeFlee (combatfsm owns that).
// Safe to call from alerts (no import cycle: alerts -> brains, never the
// reverse) since it touches only ecs.FleeState, not combatfsm's state.
func SetFlee(w *ecs.World, self ecs.Entity, source ecs.Vec2, now, duration float64) {
	ecs.Add(w, self, ecs.FleeState{Source: source, Until: now + duration})
}

// wanderArriveDist is how close a wanderer must get to its target before
// it picks a new one.
const wanderArriveDist = 0.3

// Wander picks a random point inside its HomeRange patrol radius, walks
// toward it at patrol speed, and re-picks on arrival. Entities without a
// HomeRange are a precondition miss (no-op); a missing WanderState is
// created.
func Wander(d Deps, self ecs.Entity) {
	home, ok := ecs.Get[ecs.HomeRange](d.W, self)
	if !ok {
		return
	}
	pos, ok := ecs.Get[ecs.Position](d.W, self)
	if !ok {
		return
	}
	ws, hadState := ecs.Get[ecs.WanderState](d.W, self)
	if !hadState {
		fresh := ecs.WanderState{}
		ecs.Add(d.W, self, fresh)
		ws = &fresh
	}

	needsTarget := !ws.HasGoal
	if ws.HasGoal {
		dx, dy := ws.Target.X-pos.X, ws.Target.Y-pos.Y
		if math.Hypot(dx, dy) <= wanderArriveDist {
			needsTarget = true
		}
	}
	if needsTarget {
		rng := d.Rng
		if rng == nil {
			rng = rand.New(rand.NewPCG(1, 1))
		}
		angle := rng.Float64() * 2 * math.Pi
		r := rng.Float64() * home.PatrolRadius
		target := ecs.Vec2{
			X: home.Origin.X + math.Cos(angle)*r,
			Y: home.Origin.Y + math.Sin(angle)*r,
		}
		ecs.Mutate(d.W, self, func(s *ecs.WanderState) { s.Target, s.HasGoal = target, true })
		ws.Target = target
	}

	dx, dy := ws.Target.X-pos.X, ws.Target.Y-pos.Y
	dist := math.Hypot(dx, dy)
	vx, vy := 0.0, 0.0
	if dist > 1e-6 {
		vx = dx / dist * home.PatrolSpeed
		vy = dy / dist * home.PatrolSpeed
	}
	ecs.Mutate(d.W, self, func(v *ecs.Velocity) { v.X, v.Y = vx, vy })
	if math.Abs(vx) > 0.01 || math.Abs(vy) > 0.01 {
		dir := velocityToFacing(vx, vy)
		ecs.Mutate(d.W, self, func(f *ecs.Facing) { f.Direction = dir })
	}
}

// villagerEatCheckInterval is how many seconds after VillagerState.LastEatAt
// the villager's schedule slot is left unchanged.
const villagerEatCheckInterval = 5.0

// Villager runs the settlement NPC's schedule: wander its HomeRange like
// any idle entity, then record the current simulated hour in
// VillagerState.ScheduleSlot. LastEatAt is written by the needs package's
// AutoEatSystem, not here. Movement itself reuses Wander's HomeRange-based
// patrol — villagers and wanderers share the same idle locomotion.
func Villager(d Deps, self ecs.Entity) {
	Wander(d, self)

	vs, ok := ecs.Get[ecs.VillagerState](d.W, self)
	if !ok {
		return
	}
	if d.Now-vs.LastEatAt < villagerEatCheckInterval {
		return
	}
	slot := int(d.Now/3600.0) % 24 // one schedule slot per simulated hour
	ecs.Mutate(d.W, self, func(s *ecs.VillagerState) { s.ScheduleSlot = slot })
}

func velocityToFacing(vx, vy float64) ecs.Direction {
	if math.Abs(vx) >= math.Abs(vy) {
		if vx > 0 {
			return ecs.DirRight
		}
		return ecs.DirLeft
	}
	if vy > 0 {
		return ecs.DirDown
	}
	return ecs.DirUp
}
