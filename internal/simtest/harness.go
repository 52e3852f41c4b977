// Package simtest implements a headless simulation harness used by tests
// and by cmd/headless-report: a functional-options builder that wires one
// Orchestrator plus its resources and spawns a scripted cast of entities,
// then drives it tick by tick with no rendering involved. Options apply
// in three passes — infrastructure first, then zone grids, then
// entities — since entities may need a grid to path against.
package simtest

import (
	"math/rand/v2"

	"github.com/papsh-soup/simcore/internal/alerts"
	"github.com/papsh-soup/simcore/internal/devlog"
	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/event"
	"github.com/papsh-soup/simcore/internal/particles"
	"github.com/papsh-soup/simcore/internal/subzone"
	"github.com/papsh-soup/simcore/internal/tick"
	"github.com/papsh-soup/simcore/internal/tilemap"
	"github.com/papsh-soup/simcore/internal/tuning"
)

// TestSim is a headless simulation run: one World, one Orchestrator, and
// the resources it owns, built and driven with no dependency on a
// windowing toolkit.
type TestSim struct {
	World     *ecs.World
	Orch      *tick.Orchestrator
	Bus       *event.Bus
	Tune      *tuning.Tuning
	Log       *devlog.Log
	Particles *particles.Manager
	Intel     *alerts.SharedIntel
	Subzones  *subzone.Graph
	Rng       *rand.Rand

	tuneOverrides []tuneOverride
	tickN         int
}

type tuneOverride struct {
	section, key string
	value        float64
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra simOptionKind = iota // seed, tuning overrides — applied first
	simOptZone                       // zone grids — applied once the World exists
	simOptEntity                     // spawned entities — applied last
)

// SimOption is a builder function applied to a TestSim during construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*TestSim)
}

// WithSeed sets the deterministic, world-owned PRNG seed.
func WithSeed(seed1, seed2 uint64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.Rng = rand.New(rand.NewPCG(seed1, seed2))
	}}
}

// WithTuning overrides a single Tuning scalar, applied after any loaded
// TOML defaults so a scenario test can pin exactly the values its
// assertions depend on.
func WithTuning(section, key string, value float64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.tuneOverrides = append(ts.tuneOverrides, tuneOverride{section, key, value})
	}}
}

// WithZone registers zone's collision grid with the orchestrator.
func WithZone(zone string, grid *tilemap.Grid) SimOption {
	return SimOption{simOptZone, func(ts *TestSim) {
		ts.Orch.SetGrid(zone, grid)
	}}
}

// WithGeneratedZone builds a procedurally carved grid (internal/tilemap's
// GenerateZone) and registers it under zone.
func WithGeneratedZone(zone string, seed uint64, rows, cols, roomCount int) SimOption {
	return SimOption{simOptZone, func(ts *TestSim) {
		ts.Orch.SetGrid(zone, tilemap.GenerateZone(seed, rows, cols, roomCount))
	}}
}

// WithPlayer spawns the player entity at (x, y) in zone and marks it the
// orchestrator's PlayerEID.
func WithPlayer(x, y float64, zone string) SimOption {
	return SimOption{simOptEntity, func(ts *TestSim) {
		e := ts.World.Spawn()
		ecs.Add(ts.World, e, ecs.Position{X: x, Y: y, Zone: zone})
		ecs.Add(ts.World, e, ecs.Velocity{})
		ecs.Add(ts.World, e, ecs.Collider{W: tilemap.HitboxW, H: tilemap.HitboxH})
		ecs.Add(ts.World, e, ecs.Health{Current: 100, Maximum: 100})
		ecs.Add(ts.World, e, ecs.Inventory{Items: make(map[string]int)})
		ecs.Add(ts.World, e, ecs.Identity{Kind: "player", Name: "player"})
		ecs.Add(ts.World, e, ecs.Lod{Level: ecs.LodHigh})
		ts.World.ZoneAdd(e, zone)
		ts.Orch.PlayerEID = e
	}}
}

// WithNPC spawns one scripted NPC; configure sets the NPCBuilder fields
// before the entity is built.
func WithNPC(x, y float64, zone string, configure func(*NPCBuilder)) SimOption {
	return SimOption{simOptEntity, func(ts *TestSim) {
		b := &NPCBuilder{ts: ts, x: x, y: y, zone: zone, health: 30, damage: 5, defense: 0}
		if configure != nil {
			configure(b)
		}
		b.spawn()
	}}
}

// NPCBuilder accumulates one NPC's components before Spawn commits them.
type NPCBuilder struct {
	ts     *TestSim
	x, y   float64
	zone   string
	group  string
	disp   ecs.Disposition
	brain  *ecs.BrainKind
	armed  bool
	kind   ecs.AttackKind
	rng    float64
	cd     float64
	acc    float64
	speed  float64
	aggro  float64
	leash  float64
	flee   float64
	home   float64
	pspeed float64
	health float64
	damage float64
	defense float64
}

func (b *NPCBuilder) Faction(group string, disposition ecs.Disposition) *NPCBuilder {
	b.group, b.disp = group, disposition
	return b
}

func (b *NPCBuilder) Brain(kind ecs.BrainKind) *NPCBuilder {
	b.brain = &kind
	return b
}

func (b *NPCBuilder) Health(hp float64) *NPCBuilder {
	b.health = hp
	return b
}

func (b *NPCBuilder) Armed(kind ecs.AttackKind, damage, atkRange, cooldown, accuracy, projSpeed float64) *NPCBuilder {
	b.armed = true
	b.kind = kind
	b.damage, b.rng, b.cd, b.acc, b.speed = damage, atkRange, cooldown, accuracy, projSpeed
	return b
}

func (b *NPCBuilder) Threat(aggroRadius, leashRadius, fleeThreshold float64) *NPCBuilder {
	b.aggro, b.leash, b.flee = aggroRadius, leashRadius, fleeThreshold
	return b
}

func (b *NPCBuilder) HomeRange(patrolRadius, patrolSpeed float64) *NPCBuilder {
	b.home, b.pspeed = patrolRadius, patrolSpeed
	return b
}

func (b *NPCBuilder) spawn() {
	w := b.ts.World
	e := w.Spawn()
	ecs.Add(w, e, ecs.Position{X: b.x, Y: b.y, Zone: b.zone})
	ecs.Add(w, e, ecs.Velocity{})
	ecs.Add(w, e, ecs.Collider{W: tilemap.HitboxW, H: tilemap.HitboxH})
	ecs.Add(w, e, ecs.Health{Current: b.health, Maximum: b.health})
	w.ZoneAdd(e, b.zone)

	if b.group != "" {
		ecs.Add(w, e, ecs.Faction{Group: b.group, Disposition: b.disp, HomeDisposition: b.disp, AlertRadius: 8})
	}
	if b.brain != nil {
		ecs.Add(w, e, ecs.Brain{Kind: *b.brain, Active: true})
		ecs.Add(w, e, ecs.Lod{Level: ecs.LodHigh})
	}
	if b.home > 0 {
		ecs.Add(w, e, ecs.HomeRange{Origin: ecs.Vec2{X: b.x, Y: b.y}, PatrolRadius: b.home, PatrolSpeed: b.pspeed})
	}
	if b.armed {
		ecs.Add(w, e, ecs.CombatStats{Damage: b.damage, Defense: b.defense})
		ecs.Add(w, e, ecs.AttackConfig{Kind: b.kind, Range: b.rng, Cooldown: b.cd, Accuracy: b.acc, ProjectileSpeed: b.speed})
		ecs.Add(w, e, ecs.Threat{AggroRadius: b.aggro, LeashRadius: b.leash, FleeThreshold: b.flee, SensorInterval: 0.35})
	}
}

// WithItem drops a pickup-able item entity at (x, y) in zone.
func WithItem(x, y float64, zone, name string) SimOption {
	return SimOption{simOptEntity, func(ts *TestSim) {
		e := ts.World.Spawn()
		ecs.Add(ts.World, e, ecs.Position{X: x, Y: y, Zone: zone})
		ecs.Add(ts.World, e, ecs.Identity{Kind: "item", Name: name})
		ts.World.ZoneAdd(e, zone)
	}}
}

// New constructs a TestSim from the given options in three ordered
// passes: infrastructure, zone grids, entities.
func New(opts ...SimOption) *TestSim {
	ts := &TestSim{
		Rng:       rand.New(rand.NewPCG(1, 1)),
		Bus:       event.NewBus(),
		Tune:      tuning.New(),
		Log:       devlog.New(),
		Particles: particles.NewManager(),
		Intel:     alerts.NewSharedIntel(),
		Subzones:  subzone.NewGraph(),
	}
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.fn(ts)
		}
	}
	for _, ov := range ts.tuneOverrides {
		ts.Tune.Override(ov.section, ov.key, ov.value)
	}

	ts.World = ecs.NewWorld()
	ts.Orch = tick.New(ts.World, ts.Bus, ts.Tune, ts.Log, ts.Particles, ts.Intel, ts.Subzones, ts.Rng, 0)

	for _, o := range opts {
		if o.kind == simOptZone {
			o.fn(ts)
		}
	}
	for _, o := range opts {
		if o.kind == simOptEntity {
			o.fn(ts)
		}
	}
	return ts
}

// RunTicks advances the simulation n ticks of dt seconds each.
func (ts *TestSim) RunTicks(n int, dt float64) {
	for i := 0; i < n; i++ {
		ts.tickN++
		ts.Orch.Run(dt, tick.Options{})
	}
}

// RunUntil advances up to maxTicks, stopping early once predicate
// returns true. Returns the tick at which it returned true, or -1.
func (ts *TestSim) RunUntil(predicate func(*TestSim) bool, maxTicks int, dt float64) int {
	for i := 0; i < maxTicks; i++ {
		ts.tickN++
		ts.Orch.Run(dt, tick.Options{})
		if predicate(ts) {
			return ts.tickN
		}
	}
	return -1
}

// CurrentTick returns the number of ticks run so far.
func (ts *TestSim) CurrentTick() int { return ts.tickN }
