// Package alerts implements faction-wide threat propagation: the
// attacked-defender faction flip and same-group ally alert cascade, a
// combat-sound hearing broadcast to non-same-group NPCs, and
// last-writer-wins shared-target intel.
//
// Pushing an entity into CombatState.Mode == ModeSearching/ModeChase is
// combatfsm's job, not this package's — combatfsm already imports alerts
// (for ShareCombatIntel), so alerts importing combatfsm back would cycle.
// Both AlertNearbyFaction and EmitCombatSound therefore report armed
// listeners through an onArmed callback; the tick orchestrator supplies
// combatfsm.ForceChase/OnHeardSound as that callback. Unarmed listeners
// are handled directly here via brains.SetFlee, since brains has no
// dependency on alerts.
package alerts

import (
	"math"

	"github.com/papsh-soup/simcore/internal/brains"
	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/event"
)

// SharedIntel is the per-group last-known-hostile-position cache, kept as
// a World resource (ecs.SetRes/ecs.Res) rather than a component since it
// is faction-scoped, not entity-scoped.
type SharedIntel struct {
	byGroup map[string]Contact
}

// Contact is one faction's most recently shared sighting.
type Contact struct {
	TargetEID ecs.Entity
	Pos       ecs.Vec2
	Zone      string
	ReportedBy ecs.Entity
	At        float64
}

// NewSharedIntel returns an empty intel cache.
func NewSharedIntel() *SharedIntel {
	return &SharedIntel{byGroup: make(map[string]Contact)}
}

// crimeFleeDuration is the flee window for unarmed same-group allies who
// witness an ally attacked.
const crimeFleeDuration = 10.0

// AlertNearbyFaction runs when defender takes damage from attacker: flips
// defender's own Faction.Disposition to hostile (a no-op if attacker
// shares defender's group — friendly fire never triggers an alert),
// reports defender to onArmed if it carries AttackConfig, then sweeps
// same-group allies within
// Faction.AlertRadius of defender: allies already fighting (reported via
// isFighting) are skipped; armed ones go to onArmed, unarmed ones flee.
func AlertNearbyFaction(w *ecs.World, bus *event.Bus, defender, attacker ecs.Entity, now float64, isFighting func(ecs.Entity) bool, onArmed func(eid, threat ecs.Entity, threatPos ecs.Vec2)) {
	faction, ok := ecs.Get[ecs.Faction](w, defender)
	if !ok {
		return
	}
	pos, ok := ecs.Get[ecs.Position](w, defender)
	if !ok {
		return
	}
	if atkFaction, ok := ecs.Get[ecs.Faction](w, attacker); ok && atkFaction.Group == faction.Group {
		return
	}

	threatPos := ecs.Vec2{}
	if apos, ok := ecs.Get[ecs.Position](w, attacker); ok {
		threatPos = ecs.Vec2{X: apos.X, Y: apos.Y}
	}

	if faction.Disposition != ecs.DispositionHostile {
		ecs.Mutate(w, defender, func(f *ecs.Faction) { f.Disposition = ecs.DispositionHostile })
	}
	bus.Emit(event.FactionAlert{Group: faction.Group, X: pos.X, Y: pos.Y, Zone: pos.Zone, Threat: attacker})
	if ecs.Has[ecs.AttackConfig](w, defender) && onArmed != nil {
		onArmed(defender, attacker, threatPos)
	}

	sweepAllies(w, defender, attacker, faction.Group, pos.X, pos.Y, pos.Zone, faction.AlertRadius, threatPos, now, isFighting, onArmed)
}

// SweepFaction is the FactionAlert event subscriber: the broadcast carries
// only a position, not a defender/attacker pair, so it runs just the ally-sweep half
// of AlertNearbyFaction around fa's origin. The synchronous defender-flip half
// runs at the damage-resolution call site instead, where a real (defender,
// attacker) pair is available. isFighting/onArmed are the same callbacks
// AlertNearbyFaction takes.
func SweepFaction(w *ecs.World, fa event.FactionAlert, now float64, isFighting func(ecs.Entity) bool, onArmed func(eid, threat ecs.Entity, threatPos ecs.Vec2)) {
	if fa.Group == "" {
		return
	}
	r := 0.0
	for _, faction := range ecs.All[ecs.Faction](w) {
		if faction.Group == fa.Group && faction.AlertRadius > r {
			r = faction.AlertRadius
		}
	}
	threatPos := ecs.Vec2{}
	if p, ok := ecs.Get[ecs.Position](w, fa.Threat); ok {
		threatPos = ecs.Vec2{X: p.X, Y: p.Y}
	}
	sweepAllies(w, 0, fa.Threat, fa.Group, fa.X, fa.Y, fa.Zone, r, threatPos, now, isFighting, onArmed)
}

// sweepAllies flips every same-group, non-fighting ally within r of
// (x,y,zone) to hostile and routes it to onArmed (armed) or brains.SetFlee
// (unarmed). origin/attacker are excluded from the sweep itself.
func sweepAllies(w *ecs.World, origin, attacker ecs.Entity, group string, x, y float64, zone string, r float64, threatPos ecs.Vec2, now float64, isFighting func(ecs.Entity) bool, onArmed func(eid, threat ecs.Entity, threatPos ecs.Vec2)) {
	for e, v := range ecs.Query2[ecs.Position, ecs.Faction](w) {
		if e == origin || e == attacker || v.B.Group != group {
			continue
		}
		if v.A.Zone != zone {
			continue
		}
		if math.Hypot(v.A.X-x, v.A.Y-y) > r {
			continue
		}
		if isFighting != nil && isFighting(e) {
			continue
		}
		if v.B.Disposition != ecs.DispositionHostile {
			ecs.Mutate(w, e, func(f *ecs.Faction) { f.Disposition = ecs.DispositionHostile })
		}
		if ecs.Has[ecs.AttackConfig](w, e) {
			if onArmed != nil {
				onArmed(e, attacker, threatPos)
			}
		} else {
			brains.SetFlee(w, e, threatPos, now, crimeFleeDuration)
		}
	}
}

// EmitCombatSound propagates a gunshot/melee/shout noise to every
// non-same-group NPC with a Brain within radius (same-group NPCs don't
// react to their own side's gunfire; hostiles and neutrals investigate
// or flee an unrelated group's fight instead). isFighting reports whether e is already in chase/attack/flee
// (those NPCs are left alone). Armed listeners are reported through
// onArmed; unarmed ones flee directly via brains.SetFlee.
func EmitCombatSound(w *ecs.World, source ecs.Entity, sourceGroup string, x, y float64, zone string, radius, now float64, isFighting func(ecs.Entity) bool, onArmed func(eid ecs.Entity, source ecs.Vec2, searchUntil float64)) {
	searchDuration := 5.0
	sourcePos := ecs.Vec2{X: x, Y: y}

	for e, v := range ecs.Query2[ecs.Position, ecs.Brain](w) {
		if e == source || v.A.Zone != zone {
			continue
		}
		if faction, ok := ecs.Get[ecs.Faction](w, e); ok && sourceGroup != "" && faction.Group == sourceGroup {
			continue
		}
		if math.Hypot(v.A.X-x, v.A.Y-y) > radius {
			continue
		}
		if isFighting != nil && isFighting(e) {
			continue
		}
		if ecs.Has[ecs.AttackConfig](w, e) {
			ecs.Mutate(w, e, func(b *ecs.Brain) { b.Active = true })
			if onArmed != nil {
				onArmed(e, sourcePos, now+searchDuration)
			}
		} else {
			brains.SetFlee(w, e, sourcePos, now, crimeFleeDuration)
		}
	}
}

// ShareCombatIntel records source's current target sighting as the
// group's most recent contact (last-writer-wins: a later call always
// overwrites an earlier one, tie-broken deterministically by call order
// since the orchestrator drives entities in ascending entity-id order —
// see DESIGN.md "Open Question decisions").
func ShareCombatIntel(intel *SharedIntel, group string, reporter, target ecs.Entity, pos ecs.Vec2, zone string, now float64) {
	intel.byGroup[group] = Contact{TargetEID: target, Pos: pos, Zone: zone, ReportedBy: reporter, At: now}
}

// LastContact returns the group's most recent shared sighting, if any.
func (si *SharedIntel) LastContact(group string) (Contact, bool) {
	c, ok := si.byGroup[group]
	return c, ok
}
