// Package tactical implements ally fire-line extraction, chase LOS
// waypoint search, tactical repositioning scoring (computed on-demand via
// ring search around each candidate cell), cover-along-line-of-fire
// sampling, and the anti-clump ally-min-distance check used by the combat
// FSM's sensor tick.
package tactical

import (
	"math"

	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/perception"
	"github.com/papsh-soup/simcore/internal/tilemap"
)

// FireLine is one shooter->target segment among nearby same-group
// combatants currently in chase/attack mode.
type FireLine struct {
	Shooter ecs.Entity
	From    ecs.Vec2
	To      ecs.Vec2
}

// lineOfFireClearance matches perception's capsule clearance constant.
const lineOfFireClearance = 0.6

// GetAllyFireLines returns the fire-line segments of every same-group
// ally (other than self) that is currently engaged, as reported by the
// caller via isEngaged (kept as a callback so this package has no
// dependency on combatfsm's CombatState type, avoiding an import cycle).
func GetAllyFireLines(w *ecs.World, self ecs.Entity, pos ecs.Vec2, isEngaged func(ecs.Entity) (targetPos ecs.Vec2, ok bool)) []FireLine {
	selfFaction, ok := ecs.Get[ecs.Faction](w, self)
	if !ok {
		return nil
	}
	var out []FireLine
	for e, faction := range ecs.All[ecs.Faction](w) {
		if e == self || faction.Group != selfFaction.Group {
			continue
		}
		allyPos, ok := ecs.Get[ecs.Position](w, e)
		if !ok {
			continue
		}
		tpos, engaged := isEngaged(e)
		if !engaged {
			continue
		}
		out = append(out, FireLine{Shooter: e, From: ecs.Vec2{X: allyPos.X, Y: allyPos.Y}, To: tpos})
	}
	_ = pos
	return out
}

// StandingInFireLine reports whether pos lies inside the clearance
// capsule of any of lines.
func StandingInFireLine(pos ecs.Vec2, lines []FireLine) bool {
	for _, l := range lines {
		if perception.CapsuleOnSegment(l.From, l.To, pos, lineOfFireClearance) {
			return true
		}
	}
	return false
}

// chaseRingRadii are the ring search radii used by both
// FindChaseLOSWaypoint and FindTacticalPosition.
var chaseRingRadii = []float64{2, 4, 6, 8}

// FindChaseLOSWaypoint searches rings of 2/4/6/8 tiles around self for a
// passable point with LOS to target, scoring 0.6*d_self + 0.4*d_target
// with a penalty for standing in a fire line. Returns nil if no candidate
// is found.
func FindChaseLOSWaypoint(grid *tilemap.Grid, self, target ecs.Vec2, lines []FireLine) *ecs.Vec2 {
	var best *ecs.Vec2
	bestScore := math.MaxFloat64
	for _, radius := range chaseRingRadii {
		const samples = 16
		for i := 0; i < samples; i++ {
			angle := 2 * math.Pi * float64(i) / samples
			cand := ecs.Vec2{X: self.X + radius*math.Cos(angle), Y: self.Y + radius*math.Sin(angle)}
			if grid != nil {
				if !grid.IsPassable(cand.X, cand.Y) {
					continue
				}
				if !grid.HasLineOfSight(cand.X, cand.Y, target.X, target.Y) {
					continue
				}
			}
			dSelf := math.Hypot(cand.X-self.X, cand.Y-self.Y)
			dTarget := math.Hypot(cand.X-target.X, cand.Y-target.Y)
			score := 0.6*dSelf + 0.4*dTarget
			if StandingInFireLine(cand, lines) {
				score += 50
			}
			if score < bestScore {
				bestScore = score
				c := cand
				best = &c
			}
		}
		if best != nil {
			return best
		}
	}
	return best
}

// TacticalPositionParams bundles the scoring knobs for
// FindTacticalPosition, normally sourced from Tuning.
type TacticalPositionParams struct {
	IdealRange    float64
	LeashOrigin   ecs.Vec2
	LeashRadius   float64
	AllyMinDist   float64
}

// FindTacticalPosition ring-searches for a position that: prefers the
// ideal engagement range from target, subtracts travel cost from self,
// applies a mild leash penalty, rewards cover (adjacent wall tile with
// LOS preserved), and strongly penalizes standing in any fire line or
// inside the ally-min-distance ring of another ally.
func FindTacticalPosition(grid *tilemap.Grid, self, target ecs.Vec2, params TacticalPositionParams, lines []FireLine, allyPositions []ecs.Vec2) *ecs.Vec2 {
	var best *ecs.Vec2
	bestScore := math.MaxFloat64
	for _, radius := range chaseRingRadii {
		const samples = 16
		for i := 0; i < samples; i++ {
			angle := 2 * math.Pi * float64(i) / samples
			cand := ecs.Vec2{X: self.X + radius*math.Cos(angle), Y: self.Y + radius*math.Sin(angle)}
			if grid != nil && !grid.IsPassable(cand.X, cand.Y) {
				continue
			}

			dTarget := math.Hypot(cand.X-target.X, cand.Y-target.Y)
			rangeError := math.Abs(dTarget - params.IdealRange)
			travel := math.Hypot(cand.X-self.X, cand.Y-self.Y)
			leashDist := math.Hypot(cand.X-params.LeashOrigin.X, cand.Y-params.LeashOrigin.Y)
			leashPenalty := 0.0
			if params.LeashRadius > 0 && leashDist > params.LeashRadius {
				leashPenalty = (leashDist - params.LeashRadius) * 2
			}

			score := rangeError + 0.3*travel + leashPenalty

			if grid != nil && isAdjacentToWall(grid, cand) && grid.HasLineOfSight(cand.X, cand.Y, target.X, target.Y) {
				score -= 3 // cover bonus
			}
			if StandingInFireLine(cand, lines) {
				score += 100
			}
			for _, ally := range allyPositions {
				if math.Hypot(cand.X-ally.X, cand.Y-ally.Y) < params.AllyMinDist {
					score += 40
					break
				}
			}

			if score < bestScore {
				bestScore = score
				c := cand
				best = &c
			}
		}
	}
	return best
}

func isAdjacentToWall(grid *tilemap.Grid, pos ecs.Vec2) bool {
	r, c := int(pos.Y), int(pos.X)
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		nr, nc := r+d[0], c+d[1]
		if nr < 0 || nc < 0 || nr >= grid.Rows || nc >= grid.Cols {
			continue
		}
		if grid.Tiles[nr][nc] == tilemap.Wall {
			return true
		}
	}
	return false
}

// AnyAllyCloserThan reports whether any same-group, alive ally (other
// than self) in w is closer to pos than minDist — the anti-clump gate.
func AnyAllyCloserThan(w *ecs.World, self ecs.Entity, pos ecs.Vec2, minDist float64) bool {
	selfFaction, ok := ecs.Get[ecs.Faction](w, self)
	if !ok {
		return false
	}
	for e, v := range ecs.Query2[ecs.Position, ecs.Faction](w) {
		if e == self || v.B.Group != selfFaction.Group {
			continue
		}
		if math.Hypot(v.A.X-pos.X, v.A.Y-pos.Y) < minDist {
			return true
		}
	}
	return false
}
