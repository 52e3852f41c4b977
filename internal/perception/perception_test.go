package perception

import (
	"testing"

	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/tilemap"
)

func TestInVisionConePeripheralRangeIgnoresFacing(t *testing.T) {
	cone := ecs.VisionCone{FOVDegrees: 60, ViewDistance: 10, PeripheralRange: 2}
	// Directly behind self (opposite of facing) but within peripheral range.
	if !InVisionCone(ecs.Vec2{X: 0, Y: 0}, ecs.DirRight, ecs.Vec2{X: -1, Y: 0}, cone) {
		t.Fatalf("expected a target within peripheral range to be visible regardless of facing")
	}
}

func TestInVisionConeRejectsBehindFacingOutsidePeripheral(t *testing.T) {
	cone := ecs.VisionCone{FOVDegrees: 60, ViewDistance: 10, PeripheralRange: 0}
	if InVisionCone(ecs.Vec2{X: 0, Y: 0}, ecs.DirRight, ecs.Vec2{X: -5, Y: 0}, cone) {
		t.Fatalf("expected a target directly behind facing, outside the cone, to be invisible")
	}
}

func TestInVisionConeAcceptsWithinFOVAndRange(t *testing.T) {
	cone := ecs.VisionCone{FOVDegrees: 90, ViewDistance: 10, PeripheralRange: 0}
	if !InVisionCone(ecs.Vec2{X: 0, Y: 0}, ecs.DirRight, ecs.Vec2{X: 5, Y: 0}, cone) {
		t.Fatalf("expected a target directly ahead, within range, to be visible")
	}
}

func TestInVisionConeRejectsBeyondViewDistance(t *testing.T) {
	cone := ecs.VisionCone{FOVDegrees: 360, ViewDistance: 5, PeripheralRange: 0}
	if InVisionCone(ecs.Vec2{X: 0, Y: 0}, ecs.DirRight, ecs.Vec2{X: 10, Y: 0}, cone) {
		t.Fatalf("expected a target beyond ViewDistance to be invisible even within a full-circle FOV")
	}
}

func TestFindNearestEnemyPrefersCloserOpposingFaction(t *testing.T) {
	w := ecs.NewWorld()
	self := w.Spawn()
	ecs.Add(w, self, ecs.Position{X: 0, Y: 0, Zone: "z"})
	ecs.Add(w, self, ecs.Faction{Group: "red"})

	near := w.Spawn()
	ecs.Add(w, near, ecs.Position{X: 2, Y: 0, Zone: "z"})
	ecs.Add(w, near, ecs.Health{Current: 10, Maximum: 10})
	ecs.Add(w, near, ecs.Faction{Group: "blue"})

	far := w.Spawn()
	ecs.Add(w, far, ecs.Position{X: 8, Y: 0, Zone: "z"})
	ecs.Add(w, far, ecs.Health{Current: 10, Maximum: 10})
	ecs.Add(w, far, ecs.Faction{Group: "blue"})

	sameFaction := w.Spawn()
	ecs.Add(w, sameFaction, ecs.Position{X: 1, Y: 0, Zone: "z"})
	ecs.Add(w, sameFaction, ecs.Health{Current: 10, Maximum: 10})
	ecs.Add(w, sameFaction, ecs.Faction{Group: "red"})

	got, ok := FindNearestEnemy(w, self, 20, false)
	if !ok || got != near {
		t.Fatalf("expected the nearest opposing-faction entity to win, got %v ok=%v", got, ok)
	}
}

func TestFindNearestEnemyRespectsMaxRange(t *testing.T) {
	w := ecs.NewWorld()
	self := w.Spawn()
	ecs.Add(w, self, ecs.Position{X: 0, Y: 0, Zone: "z"})

	far := w.Spawn()
	ecs.Add(w, far, ecs.Position{X: 50, Y: 0, Zone: "z"})
	ecs.Add(w, far, ecs.Health{Current: 10, Maximum: 10})

	if _, ok := FindNearestEnemy(w, self, 5, false); ok {
		t.Fatalf("expected no enemy found beyond maxRange")
	}
}

func TestCapsuleOnSegmentEndpointDegeneracy(t *testing.T) {
	a := ecs.Vec2{X: 3, Y: 3}
	if !CapsuleOnSegment(a, a, ecs.Vec2{X: 3.2, Y: 3}, 0.5) {
		t.Fatalf("expected a zero-length segment to behave as a point-distance test")
	}
	if CapsuleOnSegment(a, a, ecs.Vec2{X: 10, Y: 10}, 0.5) {
		t.Fatalf("expected a far point to fail the degenerate point-distance test")
	}
}

func TestCapsuleOnSegmentClampsProjectionToEndpoints(t *testing.T) {
	a := ecs.Vec2{X: 0, Y: 0}
	b := ecs.Vec2{X: 10, Y: 0}
	// Well past b's end, but within clearance of b itself.
	if !CapsuleOnSegment(a, b, ecs.Vec2{X: 10.3, Y: 0}, 0.5) {
		t.Fatalf("expected a point just past the segment's end to still be within clearance of the endpoint")
	}
	if CapsuleOnSegment(a, b, ecs.Vec2{X: 20, Y: 0}, 0.5) {
		t.Fatalf("expected a point far past the segment's end to be outside clearance")
	}
}

func TestShouldEngageHostileFactionAndFreshHit(t *testing.T) {
	w := ecs.NewWorld()
	hostile := w.Spawn()
	ecs.Add(w, hostile, ecs.Faction{Disposition: ecs.DispositionHostile})
	if !ShouldEngage(w, hostile) {
		t.Fatalf("expected a hostile-disposition entity to engage")
	}

	friendly := w.Spawn()
	ecs.Add(w, friendly, ecs.Faction{Disposition: ecs.DispositionFriendly})
	if ShouldEngage(w, friendly) {
		t.Fatalf("expected a friendly-disposition entity to not engage")
	}

	ecs.Add(w, friendly, ecs.HitFlash{Remaining: 0.2})
	if !ShouldEngage(w, friendly) {
		t.Fatalf("expected a fresh hit to force engagement even for a friendly-disposition entity")
	}

	noFaction := w.Spawn()
	if !ShouldEngage(w, noFaction) {
		t.Fatalf("expected an entity with no Faction component to default to engaging")
	}
}

func TestAcquireTargetPrefersPlayerWithinRange(t *testing.T) {
	w := ecs.NewWorld()
	self := w.Spawn()
	ecs.Add(w, self, ecs.Faction{Group: "red"})

	player := w.Spawn()
	ecs.Add(w, player, ecs.Identity{Kind: "player"})
	ecs.Add(w, player, ecs.Position{X: 5, Y: 0, Zone: "z"})

	enemy := w.Spawn()
	ecs.Add(w, enemy, ecs.Position{X: 1, Y: 0, Zone: "z"})
	ecs.Add(w, enemy, ecs.Health{Current: 10, Maximum: 10})
	ecs.Add(w, enemy, ecs.Faction{Group: "blue"})

	info := AcquireTarget(w, nil, self, ecs.Vec2{X: 0, Y: 0}, 10)
	if !info.Ok || info.EID != player {
		t.Fatalf("expected AcquireTarget to prefer the player over a closer non-player enemy, got %+v", info)
	}
}

func TestAcquireTargetFallsBackToNearestEnemyWhenPlayerOutOfRange(t *testing.T) {
	w := ecs.NewWorld()
	self := w.Spawn()
	ecs.Add(w, self, ecs.Position{X: 0, Y: 0, Zone: "z"})
	ecs.Add(w, self, ecs.Faction{Group: "red"})

	player := w.Spawn()
	ecs.Add(w, player, ecs.Identity{Kind: "player"})
	ecs.Add(w, player, ecs.Position{X: 1000, Y: 0, Zone: "z"})

	enemy := w.Spawn()
	ecs.Add(w, enemy, ecs.Position{X: 1, Y: 0, Zone: "z"})
	ecs.Add(w, enemy, ecs.Health{Current: 10, Maximum: 10})
	ecs.Add(w, enemy, ecs.Faction{Group: "blue"})

	info := AcquireTarget(w, nil, self, ecs.Vec2{X: 0, Y: 0}, 10)
	if !info.Ok || info.EID != enemy {
		t.Fatalf("expected AcquireTarget to fall back to the nearest enemy when the player is out of range, got %+v", info)
	}
}

func TestAcquireTargetUsesGridLineOfSight(t *testing.T) {
	w := ecs.NewWorld()
	self := w.Spawn()
	ecs.Add(w, self, ecs.Position{X: 0, Y: 0, Zone: "z"})
	ecs.Add(w, self, ecs.Faction{Group: "red"})

	enemy := w.Spawn()
	ecs.Add(w, enemy, ecs.Position{X: 4, Y: 0, Zone: "z"})
	ecs.Add(w, enemy, ecs.Health{Current: 10, Maximum: 10})
	ecs.Add(w, enemy, ecs.Faction{Group: "blue"})

	grid := tilemap.NewGrid(5, 5)
	grid.Tiles[0][2] = tilemap.Wall

	info := AcquireTarget(w, grid, self, ecs.Vec2{X: 0, Y: 0}, 10)
	if !info.Ok {
		t.Fatalf("expected AcquireTarget to still find the enemy even with a blocking wall")
	}
	if info.WallLOS {
		t.Fatalf("expected WallLOS to be false when a wall sits between self and the target")
	}
}
