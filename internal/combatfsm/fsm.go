// Tick implements the per-entity combat control flow: a throttled sensor
// tick (target acquisition, mode transitions, intel sharing, attack
// execution) interleaved with per-frame movement. Sensor work is gated
// by an interval; movement runs every frame regardless.
package combatfsm

import (
	"math"
	"math/rand/v2"

	"github.com/papsh-soup/simcore/internal/alerts"
	"github.com/papsh-soup/simcore/internal/devlog"
	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/event"
	"github.com/papsh-soup/simcore/internal/pathfind"
	"github.com/papsh-soup/simcore/internal/perception"
	"github.com/papsh-soup/simcore/internal/tactical"
	"github.com/papsh-soup/simcore/internal/tilemap"
	"github.com/papsh-soup/simcore/internal/tuning"
)

// World is the set of dependencies a single Tick call needs beyond the
// entity itself; bundled so call sites (the tick orchestrator, tests)
// don't have to repeat a long parameter list at every call.
type World struct {
	W     *ecs.World
	Grid  *tilemap.Grid
	Bus   *event.Bus
	Intel *alerts.SharedIntel
	Tune  *tuning.Tuning
	Log   *devlog.Log
	Rng   *rand.Rand
	Now   float64
}

// Tick advances self's combat FSM by one frame. It is a no-op if self
// lacks Position, Threat, or AttackConfig (non-combatant entities never
// get a CombatState).
func Tick(tw World, self ecs.Entity) {
	pos, ok := ecs.Get[ecs.Position](tw.W, self)
	if !ok {
		return
	}
	threat, ok := ecs.Get[ecs.Threat](tw.W, self)
	if !ok {
		return
	}
	atkCfg, ok := ecs.Get[ecs.AttackConfig](tw.W, self)
	if !ok {
		return
	}

	cs, hadState := ecs.Get[CombatState](tw.W, self)
	if !hadState {
		fresh := CombatState{
			Origin:      ecs.Vec2{X: pos.X, Y: pos.Y},
			Mode:        ModeIdle,
			MeleeTimers: make(map[MeleeSubState]float64),
			Initialized: true,
		}
		ecs.Add(tw.W, self, fresh)
		cs = &fresh
		threat.LastSensorTime = tw.Now - threat.SensorInterval
	}

	sensorDue := tw.Now-threat.LastSensorTime >= threat.SensorInterval
	if sensorDue {
		sensorTick(tw, self, *pos, *threat, *atkCfg, *cs)
		ecs.Mutate(tw.W, self, func(t *ecs.Threat) { t.LastSensorTime = tw.Now })
	}

	moveTick(tw, self, *pos, *atkCfg)
}

// OnHeardSound pushes self into ModeSearching toward source for a fixed
// search duration. Intended as the alerts.EmitCombatSound callback for armed listeners
// (wired by the tick orchestrator, which is the only caller allowed to
// bridge alerts' pure radius scan to combatfsm's owned CombatState, since
// alerts cannot import combatfsm without a cycle). A no-op if self is
// already actively engaged (chase/attack/flee) — a fresh gunshot
// shouldn't interrupt an NPC already fighting.
func OnHeardSound(w *ecs.World, self ecs.Entity, source ecs.Vec2, now, until float64) {
	cs, hadState := ecs.Get[CombatState](w, self)
	if !hadState {
		fresh := CombatState{Mode: ModeIdle, MeleeTimers: make(map[MeleeSubState]float64), Initialized: true}
		cs = &fresh
	}
	if cs.Mode == ModeChase || cs.Mode == ModeAttack || cs.Mode == ModeFlee {
		return
	}
	cs.Mode = ModeSearching
	cs.SearchSource = source
	cs.SearchStart = now
	cs.SearchUntil = until
	ecs.Add(w, self, *cs)
	ecs.Mutate(w, self, func(t *ecs.Threat) { t.LastSensorTime = now - t.SensorInterval })
}

// ForceChase pushes self directly into ModeChase against target with
// targetPos set as the threat location — same cross-package bridging
// rationale as OnHeardSound.
func ForceChase(w *ecs.World, self, target ecs.Entity, targetPos ecs.Vec2) {
	cs, hadState := ecs.Get[CombatState](w, self)
	if !hadState {
		fresh := CombatState{Mode: ModeIdle, MeleeTimers: make(map[MeleeSubState]float64), Initialized: true}
		cs = &fresh
	}
	cs.Mode = ModeChase
	cs.TargetEID = target
	cs.TargetPos = targetPos
	cs.HasTarget = true
	ecs.Add(w, self, *cs)
}

// sensorTick runs target acquisition, mode transitions, intel sharing,
// and attack execution — the expensive, interval-throttled half of the
// FSM.
func sensorTick(tw World, self ecs.Entity, pos ecs.Position, threat ecs.Threat, atkCfg ecs.AttackConfig, cs CombatState) {
	health, _ := ecs.Get[ecs.Health](tw.W, self)
	faction, _ := ecs.Get[ecs.Faction](tw.W, self)
	selfPos := ecs.Vec2{X: pos.X, Y: pos.Y}

	fleeThreshold := threat.FleeThreshold
	if health != nil && fleeThreshold > 0 && health.Current/math.Max(health.Maximum, 1) < fleeThreshold {
		cs.Mode = ModeFlee
		commit(tw, self, cs)
		return
	}

	info := perception.AcquireTarget(tw.W, tw.Grid, self, selfPos, threat.AggroRadius)

	wasEngaged := cs.Mode == ModeChase || cs.Mode == ModeAttack

	if !info.Ok {
		if cs.HasTarget {
			cs.SearchSource = cs.TargetPos
			cs.SearchStart = tw.Now
			cs.SearchUntil = tw.Now + tw.Tune.Get("combat", "search_duration", 6.0)
			cs.Mode = ModeSearching
			cs.HasTarget = false
		} else if cs.Mode != ModeSearching && cs.Mode != ModeReturn {
			cs.Mode = ModeIdle
		}
		if cs.Mode == ModeSearching && tw.Now > cs.SearchUntil {
			cs.Mode = ModeReturn
		}
		commit(tw, self, cs)
		return
	}

	if cs.Mode == ModeChase || cs.Mode == ModeAttack {
		if !tryDodge(tw, self, &cs, selfPos, info) {
			tryHeal(tw, self, &cs, health)
		}
	}

	cs.TargetEID = info.EID
	cs.TargetPos = ecs.Vec2{X: info.X, Y: info.Y}
	cs.HasTarget = true
	wallBlocked := !info.WallLOS
	cs.WallBlocked = wallBlocked

	leashOrigin := cs.Origin
	leashDist := math.Hypot(selfPos.X-leashOrigin.X, selfPos.Y-leashOrigin.Y)
	if threat.LeashRadius > 0 && leashDist > threat.LeashRadius {
		cs.Mode = ModeReturn
		commit(tw, self, cs)
		return
	}

	fireLines := tactical.GetAllyFireLines(tw.W, self, selfPos, func(ally ecs.Entity) (ecs.Vec2, bool) {
		allyCS, ok := ecs.Get[CombatState](tw.W, ally)
		if !ok || !allyCS.HasTarget {
			return ecs.Vec2{}, false
		}
		if allyCS.Mode != ModeChase && allyCS.Mode != ModeAttack {
			return ecs.Vec2{}, false
		}
		return allyCS.TargetPos, true
	})
	cs.FireLines = cs.FireLines[:0]
	for _, fl := range fireLines {
		cs.FireLines = append(cs.FireLines, FireLineRef{Shooter: fl.Shooter, From: fl.From, To: fl.To})
	}

	if wallBlocked {
		wp := tactical.FindChaseLOSWaypoint(tw.Grid, selfPos, cs.TargetPos, fireLines)
		cs.ChaseLOSWaypoint = wp
	} else {
		cs.ChaseLOSWaypoint = nil
	}

	inFireLine := tactical.StandingInFireLine(selfPos, fireLines) || info.AllyInFire
	cs.LOSBlocked = inFireLine
	if inFireLine {
		cs.LOSBlockedCount++
	} else {
		cs.LOSBlockedCount = 0
	}
	inRange := info.Dist <= atkCfg.Range

	// Active fire-line negotiation: a ranged attacker whose shot to its
	// own target is currently blocked by an ally calls that ally out, so
	// the blocker's own next sensor tick sees a reason to reposition even
	// before it notices it's standing in someone else's line of fire.
	if atkCfg.Kind == ecs.AttackRanged && cs.Mode == ModeAttack && info.AllyInFire {
		if blocker, ok := findFireLineBlocker(tw.W, self, faction, selfPos, cs.TargetPos); ok {
			callout := FireLineRef{Shooter: self, From: selfPos, To: cs.TargetPos}
			ecs.Mutate(tw.W, blocker, func(bcs *CombatState) { bcs.ClearFireLine = &callout })
		}
	}

	// A ranged attacker normally holds fire while an ally stands in its
	// line of fire, but after los_blocked_patience consecutive blocked
	// sensor ticks it accepts the risk and fires through anyway, provided
	// a wall (not an ally) isn't what's blocking.
	patience := int(tw.Tune.Get("combat", "los_blocked_patience", 0))
	forceFire := atkCfg.Kind == ecs.AttackRanged && inFireLine && !wallBlocked && patience > 0 && cs.LOSBlockedCount >= patience

	calledOut := cs.ClearFireLine != nil

	switch {
	case inRange && !wallBlocked && (!inFireLine || forceFire):
		cs.Mode = ModeAttack
	case calledOut || tactical.AnyAllyCloserThan(tw.W, self, selfPos, tw.Tune.Get("combat", "ally_min_distance", 1.5)) || inFireLine:
		params := tactical.TacticalPositionParams{
			IdealRange:  atkCfg.Range * 0.8,
			LeashOrigin: leashOrigin,
			LeashRadius: threat.LeashRadius,
			AllyMinDist: tw.Tune.Get("combat", "ally_min_distance", 1.5),
		}
		allyPositions := alliesNear(tw.W, self, faction, pos.Zone)
		if reposition := tactical.FindTacticalPosition(tw.Grid, selfPos, cs.TargetPos, params, fireLines, allyPositions); reposition != nil {
			cs.TacRepos = reposition
			cs.TacReposUntil = tw.Now + tw.Tune.Get("combat", "reposition_hold", 2.0)
			cs.Mode = ModeChase
		} else {
			cs.Mode = ModeChase
		}
		cs.ClearFireLine = nil
	default:
		cs.Mode = ModeChase
	}

	if faction != nil && (cs.Mode == ModeChase || cs.Mode == ModeAttack) {
		alerts.ShareCombatIntel(tw.Intel, faction.Group, self, cs.TargetEID, cs.TargetPos, pos.Zone, tw.Now)
		if !wasEngaged {
			// A fresh engagement broadcasts a plain FactionAlert; the
			// registered FactionAlert subscriber (alerts.SweepFaction) picks
			// it up and alerts nearby same-group allies. The full
			// defender-flip + sweep cascade (alerts.AlertNearbyFaction) is
			// reserved for the actual "just took damage" call site in the
			// AttackIntent resolver, since that is where a real
			// (defender, attacker) pair exists.
			tw.Bus.Emit(event.FactionAlert{Group: faction.Group, X: selfPos.X, Y: selfPos.Y, Zone: pos.Zone, Threat: self})
		}
	}

	if cs.Mode == ModeAttack {
		executeAttack(tw, self, atkCfg, &cs, wallBlocked)
	}

	commit(tw, self, cs)
}

// executeAttack runs the ranged-patience or melee sub-FSM attack logic,
// emitting event.AttackIntent when a swing/shot actually fires.
func executeAttack(tw World, self ecs.Entity, atkCfg ecs.AttackConfig, cs *CombatState, wallBlocked bool) {
	ready := tw.Now-atkCfg.LastAttackTime >= atkCfg.Cooldown

	if atkCfg.Kind == ecs.AttackRanged {
		// Mode is only ModeAttack here when sensorTick's gate already
		// cleared wall LOS and either cleared the fire line or exhausted
		// los_blocked_patience against it (see sensorTick's forceFire).
		if ready && !wallBlocked {
			tw.Bus.Emit(event.AttackIntent{Attacker: self, Target: cs.TargetEID, Kind: event.AttackRanged})
			ecs.Mutate(tw.W, self, func(a *ecs.AttackConfig) { a.LastAttackTime = tw.Now })
			cs.StrafeTimer = 0
			cs.LOSBlockedCount = 0
		}
		return
	}

	// Melee sub-FSM: approach -> circle -> feint -> lunge -> retreat.
	switch cs.MeleeSub {
	case MeleeApproach:
		if ready {
			cs.MeleeSub = MeleeCircle
		}
	case MeleeCircle:
		if tw.Rng.Float64() < 0.3 {
			cs.MeleeSub = MeleeFeint
		} else if ready {
			cs.MeleeSub = MeleeLunge
		}
	case MeleeFeint:
		cs.MeleeSub = MeleeCircle
	case MeleeLunge:
		if ready {
			tw.Bus.Emit(event.AttackIntent{Attacker: self, Target: cs.TargetEID, Kind: event.AttackMelee})
			ecs.Mutate(tw.W, self, func(a *ecs.AttackConfig) { a.LastAttackTime = tw.Now })
			cs.MeleeJustHit = true
			cs.MeleeSub = MeleeRetreat
		}
	case MeleeRetreat:
		if tw.Now-atkCfg.LastAttackTime > tw.Tune.Get("combat", "melee_retreat_hold", 0.4) {
			cs.MeleeSub = MeleeApproach
			cs.MeleeJustHit = false
		}
	}
}

// moveTick runs the per-frame movement behavior for the entity's current
// mode, writing a normalized Velocity for the movement system to
// integrate.
func moveTick(tw World, self ecs.Entity, pos ecs.Position, atkCfg ecs.AttackConfig) {
	cs, ok := ecs.Get[CombatState](tw.W, self)
	if !ok {
		return
	}
	// A fresh dodge holds Velocity for dodge_duration seconds; movement's
	// own knockback friction (gated on the same HitFlash that triggered
	// the dodge) decays it, so this system just has to not overwrite it.
	if tw.Now < cs.DodgeCooldownUntil {
		return
	}
	selfPos := ecs.Vec2{X: pos.X, Y: pos.Y}
	moveSpeed := tw.Tune.Get("combat", "move_speed", 3.0)

	switch cs.Mode {
	case ModeIdle:
		ecs.Mutate(tw.W, self, func(v *ecs.Velocity) { v.X, v.Y = 0, 0 })

	case ModeSearching:
		followPath(tw, self, selfPos, cs.SearchSource, moveSpeed*0.8)
		if math.Hypot(selfPos.X-cs.SearchSource.X, selfPos.Y-cs.SearchSource.Y) < 2.0 {
			scanInterval := math.Max(tw.Tune.Get("combat", "search_scan_interval", 1.0), 0.01)
			step := int(math.Floor((tw.Now - cs.SearchStart) / scanInterval))
			dirs := [4]ecs.Direction{ecs.DirRight, ecs.DirDown, ecs.DirLeft, ecs.DirUp}
			dir := dirs[((step%4)+4)%4]
			ecs.Mutate(tw.W, self, func(f *ecs.Facing) { f.Direction = dir })
			return
		}

	case ModeChase:
		dest := cs.TargetPos
		if cs.ChaseLOSWaypoint != nil {
			dest = *cs.ChaseLOSWaypoint
		} else if cs.TacRepos != nil && tw.Now < cs.TacReposUntil {
			dest = *cs.TacRepos
		}
		followPath(tw, self, selfPos, dest, moveSpeed)
		faceToward(tw, self, selfPos, cs.TargetPos)
		return

	case ModeAttack:
		if atkCfg.Kind == ecs.AttackRanged {
			strafe(tw, self, cs, selfPos, moveSpeed*0.5)
		} else {
			meleeMove(tw, self, cs, selfPos, moveSpeed)
		}
		ecs.Mutate(tw.W, self, func(c *CombatState) {
			c.MeleeSub = cs.MeleeSub
			c.StrafeDir = cs.StrafeDir
			c.StrafeTimer = cs.StrafeTimer
		})
		faceToward(tw, self, selfPos, cs.TargetPos)
		return

	case ModeFlee:
		away := ecs.Vec2{X: selfPos.X*2 - cs.TargetPos.X, Y: selfPos.Y*2 - cs.TargetPos.Y}
		followPath(tw, self, selfPos, away, moveSpeed*1.3)

	case ModeReturn:
		followPath(tw, self, selfPos, cs.Origin, moveSpeed)
		if math.Hypot(selfPos.X-cs.Origin.X, selfPos.Y-cs.Origin.Y) < 0.2 {
			ecs.Mutate(tw.W, self, func(c *CombatState) { c.Mode = ModeIdle })
		}
	}

	if vel, ok := ecs.Get[ecs.Velocity](tw.W, self); ok {
		faceFromVelocity(tw, self, vel.X, vel.Y)
	}
}

// faceToward points self's Facing at to, leaving it unchanged if self is
// already on top of to.
func faceToward(tw World, self ecs.Entity, from, to ecs.Vec2) {
	faceFromVelocity(tw, self, to.X-from.X, to.Y-from.Y)
}

// faceFromVelocity sets Facing from a movement vector's dominant axis,
// leaving Facing unchanged when the vector is negligible.
func faceFromVelocity(tw World, self ecs.Entity, vx, vy float64) {
	if math.Abs(vx) < 1e-6 && math.Abs(vy) < 1e-6 {
		return
	}
	var dir ecs.Direction
	if math.Abs(vx) >= math.Abs(vy) {
		if vx > 0 {
			dir = ecs.DirRight
		} else {
			dir = ecs.DirLeft
		}
	} else if vy > 0 {
		dir = ecs.DirDown
	} else {
		dir = ecs.DirUp
	}
	ecs.Mutate(tw.W, self, func(f *ecs.Facing) { f.Direction = dir })
}

func followPath(tw World, self ecs.Entity, from, to ecs.Vec2, speed float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	dist := math.Hypot(dx, dy)
	if dist < 1e-6 {
		ecs.Mutate(tw.W, self, func(v *ecs.Velocity) { v.X, v.Y = 0, 0 })
		return
	}
	if tw.Grid != nil {
		if path := pathfind.FindPath(tw.Grid, from.X, from.Y, to.X, to.Y); len(path) > 1 {
			next := path[1]
			dx, dy = next[0]-from.X, next[1]-from.Y
			dist = math.Hypot(dx, dy)
		}
	}
	if dist < 1e-6 {
		return
	}
	ecs.Mutate(tw.W, self, func(v *ecs.Velocity) {
		v.X = dx / dist * speed
		v.Y = dy / dist * speed
	})
}

func strafe(tw World, self ecs.Entity, cs *CombatState, pos ecs.Vec2, speed float64) {
	if cs.StrafeDir == 0 {
		cs.StrafeDir = 1
	}
	dx := cs.TargetPos.Y - pos.Y
	dy := -(cs.TargetPos.X - pos.X)
	d := math.Hypot(dx, dy)
	if d < 1e-6 {
		return
	}
	ecs.Mutate(tw.W, self, func(v *ecs.Velocity) {
		v.X = dx / d * speed * cs.StrafeDir
		v.Y = dy / d * speed * cs.StrafeDir
	})
}

func meleeMove(tw World, self ecs.Entity, cs *CombatState, pos ecs.Vec2, speed float64) {
	dx, dy := cs.TargetPos.X-pos.X, cs.TargetPos.Y-pos.Y
	dist := math.Hypot(dx, dy)
	switch cs.MeleeSub {
	case MeleeApproach, MeleeLunge:
		if dist > 1e-6 {
			ecs.Mutate(tw.W, self, func(v *ecs.Velocity) { v.X, v.Y = dx/dist*speed, dy/dist*speed })
		}
	case MeleeRetreat:
		if dist > 1e-6 {
			ecs.Mutate(tw.W, self, func(v *ecs.Velocity) { v.X, v.Y = -dx/dist*speed*0.6, -dy/dist*speed*0.6 })
		}
	default:
		ecs.Mutate(tw.W, self, func(v *ecs.Velocity) { v.X, v.Y = 0, 0 })
	}
}

// tryDodge is the sensor tick's defensive reaction to a fresh hit: while
// chasing or attacking, a HitFlash still fresh enough (and no dodge
// already on cooldown) sets Velocity perpendicular to the current
// threat's direction at 3x patrol speed for dodge_duration seconds, and
// reports true so the caller skips the heal reaction this tick (the two
// are mutually exclusive reflexes, not simultaneous ones).
func tryDodge(tw World, self ecs.Entity, cs *CombatState, pos ecs.Vec2, info perception.TargetInfo) bool {
	if tw.Now < cs.DodgeCooldownUntil {
		return false
	}
	flash, ok := ecs.Get[ecs.HitFlash](tw.W, self)
	if !ok || flash.Remaining < 0.08 {
		return false
	}
	dx, dy := info.X-pos.X, info.Y-pos.Y
	d := math.Hypot(dx, dy)
	if d < 1e-6 {
		return false
	}
	dx, dy = dx/d, dy/d
	perpX, perpY := -dy, dx
	if tw.Rng.Float64() < 0.5 {
		perpX, perpY = -perpX, -perpY
	}

	speed := tw.Tune.Get("combat", "move_speed", 3.0)
	if home, ok := ecs.Get[ecs.HomeRange](tw.W, self); ok && home.PatrolSpeed > 0 {
		speed = home.PatrolSpeed
	}
	dodgeDuration := tw.Tune.Get("combat", "dodge_duration", 0.3)

	ecs.Mutate(tw.W, self, func(v *ecs.Velocity) {
		v.X = perpX * speed * 3
		v.Y = perpY * speed * 3
	})
	cs.DodgeCooldownUntil = tw.Now + dodgeDuration
	cs.Staggered = true
	return true
}

// tryHeal is the sensor tick's other defensive reaction: once HP drops to
// heal_hp_threshold, consume the highest-heal item in Inventory (if any)
// and set a cooldown before it can trigger again.
func tryHeal(tw World, self ecs.Entity, cs *CombatState, health *ecs.Health) {
	if health == nil || tw.Now < cs.HealCooldownUntil {
		return
	}
	threshold := tw.Tune.Get("combat", "heal_hp_threshold", 0.3)
	if health.Current/math.Max(health.Maximum, 1) > threshold {
		return
	}
	inv, ok := ecs.Get[ecs.Inventory](tw.W, self)
	if !ok {
		return
	}
	reg, ok := ecs.Res[ecs.ItemRegistry](tw.W)
	if !ok {
		return
	}
	bestItem, bestHeal := "", -1.0
	for itemID, count := range inv.Items {
		if count <= 0 {
			continue
		}
		def, ok := reg.Items[itemID]
		if !ok || def.Heal <= 0 {
			continue
		}
		if def.Heal > bestHeal {
			bestItem, bestHeal = itemID, def.Heal
		}
	}
	if bestItem == "" {
		return
	}
	ecs.Mutate(tw.W, self, func(i *ecs.Inventory) { i.Items[bestItem]-- })
	ecs.Mutate(tw.W, self, func(h *ecs.Health) {
		h.Current += bestHeal
		if h.Current > h.Maximum {
			h.Current = h.Maximum
		}
	})
	cs.HealCooldownUntil = tw.Now + tw.Tune.Get("combat", "heal_cooldown", 15.0)
}

// findFireLineBlocker returns the same-group, living ally whose position
// lies closest to the from->to shot segment — the "which ally is
// blocking" half of active fire-line negotiation.
func findFireLineBlocker(w *ecs.World, self ecs.Entity, faction *ecs.Faction, from, to ecs.Vec2) (ecs.Entity, bool) {
	if faction == nil {
		return 0, false
	}
	var best ecs.Entity
	bestDist := math.MaxFloat64
	found := false
	for e, v := range ecs.Query2[ecs.Position, ecs.Faction](w) {
		if e == self || v.B.Group != faction.Group {
			continue
		}
		if health, ok := ecs.Get[ecs.Health](w, e); ok && health.Current <= 0 {
			continue
		}
		d := distToSegment(from, to, ecs.Vec2{X: v.A.X, Y: v.A.Y})
		if d < bestDist {
			bestDist, best, found = d, e, true
		}
	}
	return best, found
}

func distToSegment(a, b, p ecs.Vec2) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	length2 := abx*abx + aby*aby
	if length2 < 1e-9 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / length2
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	projX, projY := a.X+t*abx, a.Y+t*aby
	return math.Hypot(p.X-projX, p.Y-projY)
}

func alliesNear(w *ecs.World, self ecs.Entity, faction *ecs.Faction, zone string) []ecs.Vec2 {
	if faction == nil {
		return nil
	}
	var out []ecs.Vec2
	for e, v := range ecs.Query2[ecs.Position, ecs.Faction](w) {
		if e == self || v.B.Group != faction.Group || v.A.Zone != zone {
			continue
		}
		out = append(out, ecs.Vec2{X: v.A.X, Y: v.A.Y})
	}
	return out
}

// commit writes the FSM's new state back and, on a mode change, records a
// devlog entry so downstream reporting (cmd/headless-report) can bucket
// FSM transitions by tick/entity/mode. State changes are logged at the
// point of commit rather than scattered through every transition branch.
func commit(tw World, self ecs.Entity, cs CombatState) {
	if tw.Log != nil {
		if prior, ok := ecs.Get[CombatState](tw.W, self); ok && prior.Mode != cs.Mode {
			tw.Log.Add(devlog.Entry{
				Entity:   uint32(self),
				Category: "combat_fsm",
				Key:      "mode_change",
				Value:    prior.Mode.String() + " -> " + cs.Mode.String(),
			})
		}
	}
	ecs.Mutate(tw.W, self, func(c *CombatState) { *c = cs })
}
