package projectile

import (
	"testing"

	"github.com/papsh-soup/simcore/internal/devlog"
	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/event"
	"github.com/papsh-soup/simcore/internal/particles"
)

func spawnShooter(w *ecs.World, group string, zone string) ecs.Entity {
	e := w.Spawn()
	ecs.Add(w, e, ecs.Position{Zone: zone})
	ecs.Add(w, e, ecs.Faction{Group: group})
	return e
}

func spawnTarget(w *ecs.World, group string, x, y float64, zone string) ecs.Entity {
	e := w.Spawn()
	ecs.Add(w, e, ecs.Position{X: x, Y: y, Zone: zone})
	ecs.Add(w, e, ecs.Health{Current: 100, Maximum: 100})
	if group != "" {
		ecs.Add(w, e, ecs.Faction{Group: group})
	}
	w.ZoneAdd(e, zone)
	return e
}

// Damage falloff is ~full at traveled/max_range≈0 and ~half at
// traveled/max_range≈1.
func TestFalloffNearZeroAndNearMaxRange(t *testing.T) {
	w := ecs.NewWorld()
	shooter := spawnShooter(w, "red", "arena")
	bus := event.NewBus()
	log := devlog.New()
	pm := particles.NewManager()

	target1 := spawnTarget(w, "blue", 5, 5, "arena")
	proj1 := w.Spawn()
	ecs.Add(w, proj1, ecs.Position{X: 5, Y: 5, Zone: "arena"})
	ecs.Add(w, proj1, ecs.Projectile{Owner: shooter, Damage: 20, Traveled: 0.0, MaxRange: 10, Radius: 0.2})
	w.ZoneAdd(proj1, "arena")
	resolveHit(w, nil, bus, log, pm, nil, proj1, target1)
	h1, _ := ecs.Get[ecs.Health](w, target1)
	dealt1 := 100 - h1.Current
	if dealt1 < 18 || dealt1 > 20.01 {
		t.Fatalf("expected ~20 damage at traveled≈0, got %v", dealt1)
	}

	target2 := spawnTarget(w, "blue", 5, 5, "arena")
	proj2 := w.Spawn()
	ecs.Add(w, proj2, ecs.Position{X: 5, Y: 5, Zone: "arena"})
	ecs.Add(w, proj2, ecs.Projectile{Owner: shooter, Damage: 20, Traveled: 9.999, MaxRange: 10, Radius: 0.2})
	w.ZoneAdd(proj2, "arena")
	resolveHit(w, nil, bus, log, pm, nil, proj2, target2)
	h2, _ := ecs.Get[ecs.Health](w, target2)
	dealt2 := 100 - h2.Current
	if dealt2 < 9.9 || dealt2 > 10.1 {
		t.Fatalf("expected ~10 damage at traveled≈max_range, got %v", dealt2)
	}
}

func TestProjectileNeverHitsOwner(t *testing.T) {
	w := ecs.NewWorld()
	shooter := w.Spawn()
	ecs.Add(w, shooter, ecs.Position{X: 5, Y: 5, Zone: "arena"})
	ecs.Add(w, shooter, ecs.Health{Current: 50, Maximum: 50})
	w.ZoneAdd(shooter, "arena")

	target, ok := checkHit(w, 0, ecs.Projectile{Owner: shooter, Radius: 0.5}, 5, 5, "arena")
	if ok {
		t.Fatalf("expected no hit: the only candidate at this position is the owner, got target=%d", target)
	}
}

// A projectile never damages an entity sharing the owner's faction group,
// even though the projectile entity itself carries no Faction component of
// its own — the friendly-fire filter resolves the owner's faction instead.
func TestProjectileNeverHitsSameFactionGroup(t *testing.T) {
	w := ecs.NewWorld()
	shooter := spawnShooter(w, "red", "arena")
	ally := spawnTarget(w, "red", 5, 5, "arena")

	_, ok := checkHit(w, 0, ecs.Projectile{Owner: shooter, Radius: 0.5}, 5, 5, "arena")
	if ok {
		t.Fatalf("expected the friendly-fire filter to skip a same-group ally")
	}
	_ = ally
}

func TestProjectileHitsHostileDifferentFactionGroup(t *testing.T) {
	w := ecs.NewWorld()
	shooter := spawnShooter(w, "red", "arena")
	target := spawnTarget(w, "blue", 5, 5, "arena")

	hit, ok := checkHit(w, 0, ecs.Projectile{Owner: shooter, Radius: 0.5}, 5, 5, "arena")
	if !ok || hit != target {
		t.Fatalf("expected a hit against the hostile target, got hit=%d ok=%v", hit, ok)
	}
}
