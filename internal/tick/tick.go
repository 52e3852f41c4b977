// Package tick implements the fixed-order tick orchestrator that drives
// every other system: a single function running a fixed list of systems
// in a fixed order every frame — clock, LOD, needs, AI, movement,
// projectiles, events, particles, subzones.
package tick

import (
	"math"
	"math/rand/v2"

	"github.com/papsh-soup/simcore/internal/alerts"
	"github.com/papsh-soup/simcore/internal/brains"
	"github.com/papsh-soup/simcore/internal/combatfsm"
	"github.com/papsh-soup/simcore/internal/damage"
	"github.com/papsh-soup/simcore/internal/devlog"
	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/event"
	"github.com/papsh-soup/simcore/internal/lod"
	"github.com/papsh-soup/simcore/internal/movement"
	"github.com/papsh-soup/simcore/internal/needs"
	"github.com/papsh-soup/simcore/internal/particles"
	"github.com/papsh-soup/simcore/internal/perception"
	"github.com/papsh-soup/simcore/internal/projectile"
	"github.com/papsh-soup/simcore/internal/subzone"
	"github.com/papsh-soup/simcore/internal/tilemap"
	"github.com/papsh-soup/simcore/internal/tuning"
)

// Options gates individual pipeline stages, letting scenario tests skip
// LOD/needs/brains and isolate the stage under test.
type Options struct {
	SkipLOD    bool
	SkipNeeds  bool
	SkipBrains bool
}

// Orchestrator bundles every resource the tick pipeline needs as explicit
// fields rather than process-level globals. One Orchestrator is built per
// simulation run; every system call goes through it.
type Orchestrator struct {
	W         *ecs.World
	Bus       *event.Bus
	Tune      *tuning.Tuning
	Log       *devlog.Log
	Particles *particles.Manager
	Intel     *alerts.SharedIntel
	Subzones  *subzone.Graph
	Rng       *rand.Rand

	// PlayerEID identifies the non-killable player entity; zero if this
	// run has no player (e.g. an all-NPC scenario test).
	PlayerEID ecs.Entity

	// TickN counts completed Run calls, stamped onto every DevLog entry
	// added during a tick so a report can bucket events by tick number.
	TickN int

	// Grids maps zone name to its tile grid. Only the zone(s) currently
	// holding high/medium-LOD entities need an entry; nil is a valid
	// "no collision data for this zone" value everywhere a *tilemap.Grid
	// is threaded through (tilemap/pathfind/perception/tactical all
	// nil-check).
	Grids map[string]*tilemap.Grid
}

// New builds an Orchestrator and wires its event-bus subscriptions. The
// caller retains ownership of every passed-in resource; New never stores
// anything beyond what's given here. No system retains a resource
// reference across ticks beyond what the Orchestrator itself holds.
func New(w *ecs.World, bus *event.Bus, tune *tuning.Tuning, log *devlog.Log, pm *particles.Manager, intel *alerts.SharedIntel, sz *subzone.Graph, rng *rand.Rand, playerEID ecs.Entity) *Orchestrator {
	o := &Orchestrator{
		W: w, Bus: bus, Tune: tune, Log: log, Particles: pm,
		Intel: intel, Subzones: sz, Rng: rng, PlayerEID: playerEID,
		Grids: make(map[string]*tilemap.Grid),
	}
	ecs.SetRes(w, *log)
	o.wireEvents()
	return o
}

// SetGrid registers zone's tile grid for collision/LOS/pathfinding.
func (o *Orchestrator) SetGrid(zone string, g *tilemap.Grid) {
	o.Grids[zone] = g
}

func (o *Orchestrator) now() float64 {
	c, ok := ecs.Res[ecs.GameClock](o.W)
	if !ok {
		return 0
	}
	return c.Time
}

// wireEvents subscribes the core event handlers: EntityDied -> handle
// death, AttackIntent -> npc melee/ranged attack resolution, FactionAlert
// -> alert same-group entities nearby.
func (o *Orchestrator) wireEvents() {
	event.Subscribe(o.Bus, func(w *ecs.World, e event.EntityDied) {
		damage.HandleDeath(w, o.Log, o.Particles, o.Bus, o.PlayerEID, e.EID)
	})
	event.Subscribe(o.Bus, func(w *ecs.World, e event.AttackIntent) {
		switch e.Kind {
		case event.AttackMelee:
			o.npcMeleeAttack(e.Attacker, e.Target)
		case event.AttackRanged:
			o.npcRangedAttack(e.Attacker, e.Target)
		}
	})
	event.Subscribe(o.Bus, func(w *ecs.World, e event.FactionAlert) {
		alerts.SweepFaction(w, e, o.now(), o.isFighting, o.onArmed)
	})
}

// isFighting reports whether eid's combat FSM already has it engaged, so
// alert sweeps don't redirect an NPC that's already chasing, attacking,
// or fleeing.
func (o *Orchestrator) isFighting(eid ecs.Entity) bool {
	cs, ok := ecs.Get[combatfsm.CombatState](o.W, eid)
	if !ok {
		return false
	}
	switch cs.Mode {
	case combatfsm.ModeChase, combatfsm.ModeAttack, combatfsm.ModeFlee:
		return true
	default:
		return false
	}
}

// onArmed is the alerts/combatfsm bridge callback (see alerts.go's
// package doc): pushes an armed listener straight into chase.
func (o *Orchestrator) onArmed(eid, threat ecs.Entity, threatPos ecs.Vec2) {
	combatfsm.ForceChase(o.W, eid, threat, threatPos)
}

// onHeard bridges alerts.EmitCombatSound's armed-listener callback to the
// combat FSM's own OnHeardSound: a heard noise only sends a listener to
// search the source, not straight into chase the way onArmed does.
func (o *Orchestrator) onHeard(eid ecs.Entity, source ecs.Vec2, searchUntil float64) {
	combatfsm.OnHeardSound(o.W, eid, source, o.now(), searchUntil)
}

// emitCombatSound broadcasts a combat noise from self at radius (read from
// Tuning's alerts.* table), routing armed listeners through onHeard and
// unarmed ones through alerts.EmitCombatSound's own flee branch.
func (o *Orchestrator) emitCombatSound(self ecs.Entity, radiusKey string, defaultRadius float64) {
	pos, ok := ecs.Get[ecs.Position](o.W, self)
	if !ok {
		return
	}
	group := ""
	if f, ok := ecs.Get[ecs.Faction](o.W, self); ok {
		group = f.Group
	}
	radius := o.Tune.Get("alerts", radiusKey, defaultRadius)
	alerts.EmitCombatSound(o.W, self, group, pos.X, pos.Y, pos.Zone, radius, o.now(), o.isFighting, o.onHeard)
}

// gridForZone returns zone's grid, or nil if unregistered (every
// downstream consumer nil-checks).
func (o *Orchestrator) gridForZone(zone string) *tilemap.Grid {
	return o.Grids[zone]
}

// playerZone returns the player entity's current zone, or "" if this run
// has no live player.
func (o *Orchestrator) playerZone() string {
	if o.PlayerEID == 0 {
		return ""
	}
	pos, ok := ecs.Get[ecs.Position](o.W, o.PlayerEID)
	if !ok {
		return ""
	}
	return pos.Zone
}

// Run advances the simulation by one tick in a fixed order: clock -> LOD
// -> needs -> AI -> movement -> item pickup -> projectiles -> event
// drain -> particles -> subzone.
func (o *Orchestrator) Run(dt float64, opts Options) {
	o.TickN++
	o.Log.SetTick(o.TickN)

	clock, ok := ecs.Res[ecs.GameClock](o.W)
	if !ok {
		ecs.SetRes(o.W, ecs.GameClock{})
		clock, _ = ecs.Res[ecs.GameClock](o.W)
	}
	clock.Time += dt
	now := clock.Time

	playerZone := o.playerZone()
	grid := o.gridForZone(playerZone)

	if !opts.SkipLOD {
		if playerPos, ok := ecs.Get[ecs.Position](o.W, o.PlayerEID); ok {
			lod.Tick(o.W, o.Tune, ecs.Vec2{X: playerPos.X, Y: playerPos.Y}, playerPos.Zone, now)
		} else {
			// No live player (headless scenario runs): there is no anchor
			// to measure distance from, so the LOD pass is skipped and
			// every Lod keeps its current level.
		}
	}

	if !opts.SkipNeeds {
		needs.HungerSystem(o.W, o.Tune, dt)
		needs.AutoEatSystem(o.W, o.PlayerEID, now)
		needs.SettlementFoodProduction(o.W, o.Tune, now)
	}

	if !opts.SkipBrains {
		o.runBrains(grid, now, dt)
	}

	movement.Tick(o.W, grid, o.PlayerEID, dt)
	o.itemPickupSystem()
	projectile.Tick(o.W, grid, o.Bus, o.Log, o.Particles, o.Rng, dt)
	event.Drain(o.W, o.Bus)
	o.Particles.Tick(dt)

	if o.Subzones != nil {
		o.Subzones.Tick(o.W, now)
	}

	o.W.Purge()
}

// runBrains dispatches every active, non-low-LOD, non-transitioning
// Brain to either the combat FSM or its registered non-combat brain.
func (o *Orchestrator) runBrains(grid *tilemap.Grid, now, dt float64) {
	type candidate struct {
		eid  ecs.Entity
		kind ecs.BrainKind
	}
	var candidates []candidate
	for e, b := range ecs.All[ecs.Brain](o.W) {
		if !b.Active {
			continue
		}
		if lodC, ok := ecs.Get[ecs.Lod](o.W, e); ok {
			if lodC.Level == ecs.LodLow {
				continue
			}
			if now < lodC.TransitionUntil {
				continue
			}
		}
		candidates = append(candidates, candidate{e, b.Kind})
	}

	for _, c := range candidates {
		o.ensureCombatComponents(c.eid, c.kind)

		hasThreat := ecs.Has[ecs.Threat](o.W, c.eid)
		hasAtk := ecs.Has[ecs.AttackConfig](o.W, c.eid)
		isCombatKind := c.kind == ecs.BrainGuard || c.kind == ecs.BrainHostileMelee || c.kind == ecs.BrainHostileRanged

		if hasThreat && hasAtk && (perception.ShouldEngage(o.W, c.eid) || isCombatKind) {
			combatfsm.Tick(combatfsm.World{
				W: o.W, Grid: grid, Bus: o.Bus, Intel: o.Intel, Tune: o.Tune, Log: o.Log, Rng: o.Rng, Now: now,
			}, c.eid)
			continue
		}

		brains.Dispatch(brains.Deps{W: o.W, Grid: grid, Tune: o.Tune, Rng: o.Rng, Now: now, Dt: dt}, c.eid, c.kind)
	}
}

// ensureCombatComponents attaches default Threat/AttackConfig to an armed
// (CombatStats-carrying), hostile entity that doesn't have them yet.
// Defaults come from Tuning so a scenario's tuning.toml can override
// them; falls back to the combat FSM's own defaults otherwise.
func (o *Orchestrator) ensureCombatComponents(eid ecs.Entity, kind ecs.BrainKind) {
	faction, hasFaction := ecs.Get[ecs.Faction](o.W, eid)
	armed := ecs.Has[ecs.CombatStats](o.W, eid)
	hostile := hasFaction && faction.Disposition == ecs.DispositionHostile
	if !armed || !hostile {
		return
	}
	if !ecs.Has[ecs.Threat](o.W, eid) {
		ecs.Add(o.W, eid, ecs.Threat{
			AggroRadius:    o.Tune.Get("combat", "default_aggro_radius", 10.0),
			LeashRadius:    o.Tune.Get("combat", "default_leash_radius", 20.0),
			FleeThreshold:  o.Tune.Get("combat", "default_flee_threshold", 0.2),
			SensorInterval: o.Tune.Get("combat", "default_sensor_interval", 0.35),
		})
	}
	if !ecs.Has[ecs.AttackConfig](o.W, eid) {
		kindAttack := ecs.AttackMelee
		if kind == ecs.BrainHostileRanged {
			kindAttack = ecs.AttackRanged
		}
		ecs.Add(o.W, eid, ecs.AttackConfig{
			Kind:            kindAttack,
			Range:           o.Tune.Get("combat", "default_range", 1.5),
			Cooldown:        o.Tune.Get("combat", "default_cooldown", 1.0),
			Accuracy:        o.Tune.Get("combat", "default_accuracy", 0.85),
			ProjectileSpeed: o.Tune.Get("combat", "default_projectile_speed", 14.0),
		})
	}
}

// npcMeleeAttack resolves a melee AttackIntent synchronously: an accuracy
// roll, then damage applied directly against the target, then the full
// defender-flip + ally-sweep alert cascade — available here because both
// attacker and defender are known.
func (o *Orchestrator) npcMeleeAttack(attacker, target ecs.Entity) {
	if !o.W.Alive(attacker) || !o.W.Alive(target) {
		return
	}
	atkCfg, ok := ecs.Get[ecs.AttackConfig](o.W, attacker)
	if !ok {
		return
	}
	stats, ok := ecs.Get[ecs.CombatStats](o.W, attacker)
	if !ok {
		return
	}
	if o.Rng != nil && o.Rng.Float64() > atkCfg.Accuracy {
		o.Log.Add(devlog.Entry{Entity: uint32(attacker), Category: "melee", Key: "miss", Value: "accuracy"})
		return
	}

	res := damage.Apply(o.W, o.Log, o.Particles, o.Rng, attacker, target, stats.Damage, damage.Params{
		Knockback:      1.5,
		ParticlePreset: "melee_hit",
		LogPrefix:      "melee",
	})
	o.emitCombatSound(attacker, "melee_sound_radius", 4.0)

	if res.IsDead {
		zone := ""
		if p, ok := ecs.Get[ecs.Position](o.W, target); ok {
			zone = p.Zone
		}
		o.Bus.Emit(event.EntityDied{EID: target, KillerEID: attacker, Zone: zone})
		return
	}
	alerts.AlertNearbyFaction(o.W, o.Bus, target, attacker, o.now(), o.isFighting, o.onArmed)
}

// npcRangedAttack resolves a ranged AttackIntent by spawning a kinematic
// projectile entity aimed at target's position at the instant of firing
// (with an accuracy-scaled aim jitter); the projectile package's own
// per-tick system resolves the eventual hit, friendly-fire filtering, and
// damage falloff.
func (o *Orchestrator) npcRangedAttack(attacker, target ecs.Entity) {
	if !o.W.Alive(attacker) || !o.W.Alive(target) {
		return
	}
	aPos, ok := ecs.Get[ecs.Position](o.W, attacker)
	if !ok {
		return
	}
	tPos, ok := ecs.Get[ecs.Position](o.W, target)
	if !ok {
		return
	}
	atkCfg, ok := ecs.Get[ecs.AttackConfig](o.W, attacker)
	if !ok {
		return
	}
	stats, ok := ecs.Get[ecs.CombatStats](o.W, attacker)
	if !ok {
		return
	}

	dx, dy := tPos.X-aPos.X, tPos.Y-aPos.Y
	dist := math.Hypot(dx, dy)
	if dist < 1e-6 {
		return
	}
	dirX, dirY := dx/dist, dy/dist

	if o.Rng != nil && atkCfg.Accuracy < 1 {
		jitter := (1 - atkCfg.Accuracy) * 0.35
		theta := (o.Rng.Float64()*2 - 1) * jitter
		dirX, dirY = rotate(dirX, dirY, theta)
	}

	proj := o.W.Spawn()
	ecs.Add(o.W, proj, ecs.Position{X: aPos.X, Y: aPos.Y, Zone: aPos.Zone})
	ecs.Add(o.W, proj, ecs.Projectile{
		Owner:    attacker,
		Damage:   stats.Damage,
		Speed:    atkCfg.ProjectileSpeed,
		Dir:      ecs.Vec2{X: dirX, Y: dirY},
		MaxRange: atkCfg.Range * 2.5,
		Radius:   0.15,
	})
	o.emitCombatSound(attacker, "gunshot_radius", 12.0)
}

func rotate(x, y, theta float64) (float64, float64) {
	cos, sin := math.Cos(theta), math.Sin(theta)
	return x*cos - y*sin, x*sin + y*cos
}
