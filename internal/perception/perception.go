// Package perception implements pure (non-mutating) vision-cone,
// line-of-sight, and target-acquisition queries: an FOV/view-distance
// cone test, a tile-DDA wall line-of-sight check, and a capsule ray
// test for whether an ally stands in another entity's line of fire.
package perception

import (
	"math"

	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/tilemap"
)

// FacingToAngle converts a cardinal Direction to radians: right=0,
// down=pi/2, left=pi, up=-pi/2.
func FacingToAngle(d ecs.Direction) float64 {
	switch d {
	case ecs.DirRight:
		return 0
	case ecs.DirDown:
		return math.Pi / 2
	case ecs.DirLeft:
		return math.Pi
	case ecs.DirUp:
		return -math.Pi / 2
	default:
		return 0
	}
}

// InVisionCone reports whether target is visible from pos given facing
// and cone: true iff within PeripheralRange (omnidirectional) OR within
// ViewDistance and within +/-(FOV/2) of facing.
func InVisionCone(pos ecs.Vec2, facing ecs.Direction, target ecs.Vec2, cone ecs.VisionCone) bool {
	dx := target.X - pos.X
	dy := target.Y - pos.Y
	dist := math.Hypot(dx, dy)

	if cone.PeripheralRange > 0 && dist <= cone.PeripheralRange {
		return true
	}
	if dist > cone.ViewDistance {
		return false
	}
	angle := math.Atan2(dy, dx)
	facingAngle := FacingToAngle(facing)
	diff := angleDiff(angle, facingAngle)
	return math.Abs(diff) <= (cone.FOVDegrees/2)*math.Pi/180
}

func angleDiff(a, b float64) float64 {
	d := a - b
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// FindPlayer returns the first entity carrying ecs.Identity{Kind:"player"}
// in ascending entity-id order.
func FindPlayer(w *ecs.World) (ecs.Entity, bool) {
	for e, id := range ecs.All[ecs.Identity](w) {
		if id.Kind == "player" {
			return e, true
		}
	}
	return 0, false
}

// FindNearestEnemy returns the nearest entity with Position+Health, not in
// self's faction group, within maxRange of self's position; if useCone is
// set and self carries a VisionCone, candidates outside the cone are
// skipped.
func FindNearestEnemy(w *ecs.World, self ecs.Entity, maxRange float64, useCone bool) (ecs.Entity, bool) {
	selfPos, ok := ecs.Get[ecs.Position](w, self)
	if !ok {
		return 0, false
	}
	selfFaction, _ := ecs.Get[ecs.Faction](w, self)
	var selfFacing ecs.Direction
	if f, ok := ecs.Get[ecs.Facing](w, self); ok {
		selfFacing = f.Direction
	}
	var cone *ecs.VisionCone
	if useCone {
		cone, _ = ecs.Get[ecs.VisionCone](w, self)
	}

	best := ecs.Entity(0)
	bestOk := false
	bestDist := math.MaxFloat64

	for e, v := range ecs.Query2[ecs.Position, ecs.Health](w) {
		if e == self {
			continue
		}
		if v.A.Zone != selfPos.Zone {
			continue
		}
		if otherFaction, ok := ecs.Get[ecs.Faction](w, e); ok && selfFaction != nil {
			if otherFaction.Group == selfFaction.Group {
				continue
			}
		}
		dist := math.Hypot(v.A.X-selfPos.X, v.A.Y-selfPos.Y)
		if dist > maxRange {
			continue
		}
		if cone != nil {
			if !InVisionCone(ecs.Vec2{X: selfPos.X, Y: selfPos.Y}, selfFacing, ecs.Vec2{X: v.A.X, Y: v.A.Y}, *cone) {
				continue
			}
		}
		if dist < bestDist {
			bestDist = dist
			best = e
			bestOk = true
		}
	}
	return best, bestOk
}

// TargetInfo is the result of AcquireTarget.
type TargetInfo struct {
	EID        ecs.Entity
	Ok         bool
	X, Y       float64
	Dist       float64
	WallLOS    bool
	AllyInFire bool
}

// lineOfFireClearance is the capsule half-width used by the ally-in-fire
// test.
const lineOfFireClearance = 0.6

// AcquireTarget prefers the player; otherwise the nearest enemy up to 3x
// aggroRadius. WallLOS is computed via tile DDA against grid; AllyInFire
// via a capsule projection test against every same-group ally.
func AcquireTarget(w *ecs.World, grid *tilemap.Grid, self ecs.Entity, pos ecs.Vec2, aggroRadius float64) TargetInfo {
	var target ecs.Entity
	found := false

	if p, ok := FindPlayer(w); ok {
		if ppos, ok := ecs.Get[ecs.Position](w, p); ok {
			dist := math.Hypot(ppos.X-pos.X, ppos.Y-pos.Y)
			if dist <= aggroRadius*3 {
				target = p
				found = true
			}
		}
	}
	if !found {
		if e, ok := FindNearestEnemy(w, self, aggroRadius*3, false); ok {
			target = e
			found = true
		}
	}
	if !found {
		return TargetInfo{}
	}

	tpos, ok := ecs.Get[ecs.Position](w, target)
	if !ok {
		return TargetInfo{}
	}
	dist := math.Hypot(tpos.X-pos.X, tpos.Y-pos.Y)
	wallLOS := true
	if grid != nil {
		wallLOS = grid.HasLineOfSight(pos.X, pos.Y, tpos.X, tpos.Y)
	}

	allyInFire := false
	if selfFaction, ok := ecs.Get[ecs.Faction](w, self); ok {
		for e, other := range ecs.Query2[ecs.Position, ecs.Faction](w) {
			if e == self || e == target {
				continue
			}
			if other.B.Group != selfFaction.Group {
				continue
			}
			if health, ok := ecs.Get[ecs.Health](w, e); ok && health.Current <= 0 {
				continue
			}
			if CapsuleOnSegment(pos, ecs.Vec2{X: tpos.X, Y: tpos.Y}, ecs.Vec2{X: other.A.X, Y: other.A.Y}, lineOfFireClearance) {
				allyInFire = true
				break
			}
		}
	}

	return TargetInfo{EID: target, Ok: true, X: tpos.X, Y: tpos.Y, Dist: dist, WallLOS: wallLOS, AllyInFire: allyInFire}
}

// CapsuleOnSegment reports whether point p lies within clearance of the
// segment a-b (projected distance test), used by AcquireTarget's
// ally-in-fire check and by tactical.StandingInFireLine.
func CapsuleOnSegment(a, b, p ecs.Vec2, clearance float64) bool {
	abx, aby := b.X-a.X, b.Y-a.Y
	length2 := abx*abx + aby*aby
	if length2 < 1e-9 {
		return math.Hypot(p.X-a.X, p.Y-a.Y) <= clearance
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / length2
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	projX := a.X + t*abx
	projY := a.Y + t*aby
	return math.Hypot(p.X-projX, p.Y-projY) <= clearance
}

// ShouldEngage reports whether self should run hostile combat AI this
// tick: true on a fresh hit (HitFlash.Remaining > 0.05) regardless of
// disposition, true if self carries no Faction at all (back-compat
// default), otherwise true only when Faction.Disposition is hostile.
func ShouldEngage(w *ecs.World, self ecs.Entity) bool {
	if hf, ok := ecs.Get[ecs.HitFlash](w, self); ok && hf.Remaining > 0.05 {
		return true
	}
	faction, ok := ecs.Get[ecs.Faction](w, self)
	if !ok {
		return true
	}
	return faction.Disposition == ecs.DispositionHostile
}

// IsDetectedIdle applies the VisionCone test if self carries one,
// otherwise falls back to a plain radius test against aggroRadius.
func IsDetectedIdle(w *ecs.World, self ecs.Entity, pos ecs.Vec2, target ecs.Vec2, aggroRadius float64) bool {
	if cone, ok := ecs.Get[ecs.VisionCone](w, self); ok {
		var facing ecs.Direction
		if f, ok := ecs.Get[ecs.Facing](w, self); ok {
			facing = f.Direction
		}
		return InVisionCone(pos, facing, target, *cone)
	}
	return math.Hypot(target.X-pos.X, target.Y-pos.Y) <= aggroRadius
}
