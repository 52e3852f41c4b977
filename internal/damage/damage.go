// Package damage implements the shared damage-application pipeline and
// death handling: armor subtraction, crit roll, knockback velocity,
// hit-flash window, and particle burst. This package is pure simulation,
// not rendering.
package damage

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/papsh-soup/simcore/internal/devlog"
	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/event"
	"github.com/papsh-soup/simcore/internal/particles"
)

// minBaseDamage is the floor applied after armor subtraction, so a
// heavily-armored defender still takes token chip damage.
const minBaseDamage = 1.0

// hitFlashDuration is the default post-hit stun/knockback-friction
// window; movement's knockback-friction gate reads HitFlash.Remaining > 0.
const hitFlashDuration = 0.35

// Params bundles Apply's optional knobs; zero values take sensible
// defaults (no crit, no knockback, generic particle preset).
type Params struct {
	Knockback      float64
	KnockbackDir   *ecs.Vec2 // nil -> computed from attacker->defender
	CritChance     float64
	CritMult       float64
	ParticlePreset string
	LogPrefix      string
}

// Result is the outcome of one Apply call: damage dealt, whether it
// crit, and whether the defender died.
type Result struct {
	DamageDealt float64
	IsCrit      bool
	IsDead      bool
}

// Apply runs the full apply_damage pipeline against defender, writing
// Health/Velocity/HitFlash and emitting a particle burst via pm.
func Apply(w *ecs.World, log *devlog.Log, pm *particles.Manager, rng *rand.Rand, attacker, defender ecs.Entity, rawDamage float64, p Params) Result {
	defenderHealth, ok := ecs.Get[ecs.Health](w, defender)
	if !ok {
		return Result{}
	}

	armor := 0.0
	if stats, ok := ecs.Get[ecs.CombatStats](w, defender); ok {
		armor = stats.Defense
	}
	dmg := math.Max(minBaseDamage, rawDamage-armor)

	isCrit := p.CritChance > 0 && rng != nil && rng.Float64() < p.CritChance
	if isCrit {
		mult := p.CritMult
		if mult <= 0 {
			mult = 1.5
		}
		dmg *= mult
	}

	newHP := defenderHealth.Current - dmg
	ecs.Mutate(w, defender, func(h *ecs.Health) { h.Current = newHP })

	if p.Knockback > 0 {
		dir := ecs.Vec2{}
		if p.KnockbackDir != nil {
			dir = *p.KnockbackDir
		} else if aPos, ok := ecs.Get[ecs.Position](w, attacker); ok {
			if dPos, ok := ecs.Get[ecs.Position](w, defender); ok {
				dx, dy := dPos.X-aPos.X, dPos.Y-aPos.Y
				if d := math.Hypot(dx, dy); d > 1e-6 {
					dir = ecs.Vec2{X: dx / d, Y: dy / d}
				}
			}
		}
		ecs.Mutate(w, defender, func(v *ecs.Velocity) {
			v.X, v.Y = dir.X*p.Knockback, dir.Y*p.Knockback
		})
	}

	if ecs.Has[ecs.HitFlash](w, defender) {
		ecs.Mutate(w, defender, func(hf *ecs.HitFlash) { hf.Remaining = hitFlashDuration })
	} else {
		ecs.Add(w, defender, ecs.HitFlash{Remaining: hitFlashDuration})
	}

	preset := p.ParticlePreset
	if isCrit && preset != "" {
		preset += "_crit"
	}
	if dPos, ok := ecs.Get[ecs.Position](w, defender); ok && pm != nil {
		pm.Emit(preset, dPos.X, dPos.Y, dPos.Zone, 8)
	}

	if log != nil {
		prefix := p.LogPrefix
		if prefix == "" {
			prefix = "damage"
		}
		log.Add(devlog.Entry{
			Entity:   uint32(defender),
			Category: prefix,
			Key:      "hit",
			Value:    fmt.Sprintf("from=%d crit=%v", attacker, isCrit),
			NumVal:   dmg,
		})
	}

	return Result{DamageDealt: dmg, IsCrit: isCrit, IsDead: newHP <= 0}
}

// HandleDeath is the EntityDied subscriber: skips the player, spawns a
// larger particle burst, drops logged loot, and kills the entity (its components are removed at the next Purge).
// playerEID identifies the non-killable player entity (ecs.Entity(0) if
// there is none in this simulation run).
func HandleDeath(w *ecs.World, log *devlog.Log, pm *particles.Manager, bus *event.Bus, playerEID ecs.Entity, eid ecs.Entity) {
	if eid == playerEID {
		return
	}
	var zone string
	if pos, ok := ecs.Get[ecs.Position](w, eid); ok {
		zone = pos.Zone
		if pm != nil {
			pm.Emit("death", pos.X, pos.Y, pos.Zone, 24)
		}
	}
	if log != nil {
		log.Add(devlog.Entry{Entity: uint32(eid), Category: "state", Key: "change", Value: "alive -> dead: zone=" + zone})
	}
	if inv, ok := ecs.Get[ecs.Inventory](w, eid); ok && log != nil {
		for item, count := range inv.Items {
			if count <= 0 {
				continue
			}
			log.Add(devlog.Entry{
				Entity:   uint32(eid),
				Category: "loot",
				Key:      item,
				NumVal:   float64(count),
			})
		}
	}
	w.Kill(eid)
}
