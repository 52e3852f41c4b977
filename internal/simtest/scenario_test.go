package simtest

import (
	"strings"
	"testing"

	"github.com/papsh-soup/simcore/internal/alerts"
	"github.com/papsh-soup/simcore/internal/combatfsm"
	"github.com/papsh-soup/simcore/internal/ecs"
)

const dt = 1.0 / 60.0

func hasModeChangeTo(ts *TestSim, suffix string) bool {
	for _, e := range ts.Log.Filter("combat_fsm") {
		if e.Key == "mode_change" && strings.HasSuffix(e.Value, suffix) {
			return true
		}
	}
	return false
}

// A hostile melee NPC that spots a hostile target closes in and starts
// attacking it.
func TestMeleeEngagementReachesAttack(t *testing.T) {
	ts := New(
		WithSeed(1, 2),
		WithZone("arena", nil),
		WithNPC(2, 2, "arena", func(b *NPCBuilder) {
			b.Faction("red", ecs.DispositionHostile).
				Brain(ecs.BrainHostileMelee).
				Armed(ecs.AttackMelee, 8, 1.2, 0.8, 0.95, 0).
				Threat(15, 30, 0.2)
		}),
		WithNPC(4, 2, "arena", func(b *NPCBuilder) {
			b.Faction("blue", ecs.DispositionHostile).
				Health(40)
		}),
	)

	tick := ts.RunUntil(func(ts *TestSim) bool {
		return hasModeChangeTo(ts, "-> attack")
	}, 600, dt)

	if tick == -1 {
		t.Fatalf("expected the melee NPC to reach attack mode within 600 ticks")
	}
}

// A combat sound broadcast sends an armed, unengaged listener into
// searching toward the source without forcing it straight into chase.
func TestCombatSoundSendsListenerSearching(t *testing.T) {
	ts := New(
		WithSeed(3, 4),
		WithZone("arena", nil),
		WithNPC(0, 0, "arena", func(b *NPCBuilder) {
			b.Faction("red", ecs.DispositionHostile).
				Brain(ecs.BrainHostileMelee).
				Armed(ecs.AttackMelee, 5, 1.0, 0.8, 0.9, 0).
				Threat(3, 10, 0.2)
		}),
	)

	listener := ecs.Entity(0)
	for e := range ecs.All[ecs.Brain](ts.World) {
		listener = e
	}

	combatfsm.OnHeardSound(ts.World, listener, ecs.Vec2{X: 20, Y: 20}, 0, 5.0)

	cs, ok := ecs.Get[combatfsm.CombatState](ts.World, listener)
	if !ok || cs.Mode != combatfsm.ModeSearching {
		t.Fatalf("expected a heard combat sound to push the listener into searching, got %+v ok=%v", cs, ok)
	}
}

// A listener already engaged in chase ignores a fresh combat sound.
func TestCombatSoundIgnoredWhileAlreadyChasing(t *testing.T) {
	ts := New(WithSeed(9, 10), WithZone("arena", nil))
	self := ts.World.Spawn()
	target := ts.World.Spawn()
	ecs.Add(ts.World, self, combatfsm.CombatState{Mode: combatfsm.ModeChase, MeleeTimers: make(map[combatfsm.MeleeSubState]float64)})

	combatfsm.OnHeardSound(ts.World, self, ecs.Vec2{X: 1, Y: 1}, 0, 5.0)

	cs, _ := ecs.Get[combatfsm.CombatState](ts.World, self)
	if cs.Mode != combatfsm.ModeChase {
		t.Fatalf("expected an already-chasing entity to ignore a new combat sound, got mode=%v", cs.Mode)
	}
	_ = target
}

// Two projectile-armed factions at range exchange fire and eventually
// produce at least one death.
func TestRangedSkirmishProducesACasualty(t *testing.T) {
	ts := New(
		WithSeed(5, 6),
		WithZone("arena", nil),
		WithNPC(2, 5, "arena", func(b *NPCBuilder) {
			b.Faction("red", ecs.DispositionHostile).
				Brain(ecs.BrainHostileRanged).
				Armed(ecs.AttackRanged, 15, 8, 0.5, 0.9, 20).
				Threat(20, 40, 0.1).
				Health(20)
		}),
		WithNPC(8, 5, "arena", func(b *NPCBuilder) {
			b.Faction("blue", ecs.DispositionHostile).
				Brain(ecs.BrainHostileRanged).
				Armed(ecs.AttackRanged, 15, 8, 0.5, 0.9, 20).
				Threat(20, 40, 0.1).
				Health(20)
		}),
	)

	tick := ts.RunUntil(func(ts *TestSim) bool {
		for _, e := range ts.Log.Filter("state") {
			if e.Key == "change" && strings.Contains(e.Value, "alive -> dead") {
				return true
			}
		}
		return false
	}, 1200, dt)

	if tick == -1 {
		t.Fatalf("expected a ranged skirmish to resolve at least one death within 1200 ticks")
	}
}

// An unarmed NPC in the same faction as a victim flees rather than
// engaging when an ally is attacked nearby.
func TestUnarmedAllyFleesOnNearbyAttack(t *testing.T) {
	ts := New(
		WithSeed(7, 8),
		WithZone("arena", nil),
		WithNPC(5, 5, "arena", func(b *NPCBuilder) {
			b.Faction("green", ecs.DispositionFriendly).Health(20)
		}),
		WithNPC(5.5, 5, "arena", func(b *NPCBuilder) {
			b.Faction("green", ecs.DispositionFriendly).Health(20)
		}),
	)
	outsider := ts.World.Spawn()
	ecs.Add(ts.World, outsider, ecs.Position{X: 5, Y: 5, Zone: "arena"})
	ecs.Add(ts.World, outsider, ecs.Faction{Group: "red", Disposition: ecs.DispositionHostile})

	var victim, ally ecs.Entity
	i := 0
	for e := range ecs.All[ecs.Faction](ts.World) {
		if f, _ := ecs.Get[ecs.Faction](ts.World, e); f.Group != "green" {
			continue
		}
		if i == 0 {
			victim = e
		} else {
			ally = e
		}
		i++
	}

	alerts.AlertNearbyFaction(ts.World, ts.Bus, victim, outsider, 0, func(ecs.Entity) bool { return false }, nil)

	flee, ok := ecs.Get[ecs.FleeState](ts.World, ally)
	if !ok {
		t.Fatalf("expected the unarmed ally to gain a FleeState after a nearby attack on its faction")
	}
	if flee.Until <= 0 {
		t.Fatalf("expected a positive flee window, got %+v", flee)
	}

	victimFaction, _ := ecs.Get[ecs.Faction](ts.World, victim)
	if victimFaction.Disposition != ecs.DispositionHostile {
		t.Fatalf("expected the attacked victim's own disposition to flip hostile, got %v", victimFaction.Disposition)
	}
}
