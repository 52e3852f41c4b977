// Command headless-report runs the simulation core through a scripted
// multi-faction skirmish for N seeded runs with no rendering involved,
// then prints a per-run and aggregate report: first-contact/first-engage
// ticks (from combat FSM mode transitions), attack/alert counts (from the
// event bus's per-type counters), first-death tick (from DevLog
// "alive -> dead" entries), and survival by faction.
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/event"
	"github.com/papsh-soup/simcore/internal/simtest"
)

// stalemateMinMutualSurvivalRate: both factions keeping at least this
// fraction of their members alive reads as a stalemate rather than a
// decisive fight.
const stalemateMinMutualSurvivalRate = 0.50

type runStats struct {
	runIndex int
	seed     int64
	ticks    int

	firstContactTick int // earliest "-> chase" mode_change
	firstEngageTick  int // earliest "-> attack" mode_change
	firstDeathTick   int

	modeChanges      int
	attacksFired     int
	factionAlerts    int
	handlerPanics    int
	drainCapExceeded int

	redTotal, blueTotal         int
	redSurvivors, blueSurvivors int

	stalemate       bool
	stalemateReason string
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenario string

	flag.IntVar(&runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 3600, "ticks per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "arena-skirmish", "scenario name")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}
	if scenario != "arena-skirmish" {
		fmt.Printf("error: unsupported scenario %q (supported: arena-skirmish)\n", scenario)
		return
	}

	fmt.Printf("=== Headless Simulation Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d seed_base=%d seed_step=%d\n\n", scenario, runs, ticks, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		stats := runScenarioArenaSkirmish(i+1, seed, ticks)
		all = append(all, stats)
		printRun(stats)
	}

	printAggregate(all)
}

const dt = 1.0 / 60.0

// runScenarioArenaSkirmish spawns two mutually-hostile factions (red:
// melee, blue: ranged) on opposite corners of a generated arena, runs the
// full tick pipeline for ticks frames, and reports the outcome.
func runScenarioArenaSkirmish(runIndex int, seed int64, ticks int) runStats {
	const zone = "arena"
	const redCount, blueCount = 4, 4

	opts := []simtest.SimOption{
		simtest.WithSeed(uint64(seed), uint64(seed)+1),
		simtest.WithGeneratedZone(zone, uint64(seed), 30, 40, 6),
	}

	for i := 0; i < redCount; i++ {
		x, y := 3.0+float64(i), 3.0
		opts = append(opts, simtest.WithNPC(x, y, zone, func(b *simtest.NPCBuilder) {
			b.Faction("red", ecs.DispositionHostile).
				Brain(ecs.BrainHostileMelee).
				Health(40).
				Armed(ecs.AttackMelee, 8, 1.4, 0.9, 0.9, 0).
				Threat(12, 24, 0.2).
				HomeRange(6, 2.2)
		}))
	}
	for i := 0; i < blueCount; i++ {
		x, y := 36.0-float64(i), 26.0
		opts = append(opts, simtest.WithNPC(x, y, zone, func(b *simtest.NPCBuilder) {
			b.Faction("blue", ecs.DispositionHostile).
				Brain(ecs.BrainHostileRanged).
				Health(30).
				Armed(ecs.AttackRanged, 6, 9.0, 1.3, 0.8, 16.0).
				Threat(14, 26, 0.25).
				HomeRange(6, 2.0)
		}))
	}

	ts := simtest.New(opts...)
	ts.RunTicks(ticks, dt)

	return summarize(ts, runIndex, seed, ticks, redCount, blueCount)
}

func summarize(ts *simtest.TestSim, runIndex int, seed int64, ticks, redTotal, blueTotal int) runStats {
	rs := runStats{
		runIndex: runIndex, seed: seed, ticks: ticks,
		firstContactTick: -1, firstEngageTick: -1, firstDeathTick: -1,
		redTotal: redTotal, blueTotal: blueTotal,
	}

	for _, e := range ts.Log.Entries() {
		switch e.Category {
		case "combat_fsm":
			if e.Key == "mode_change" {
				rs.modeChanges++
				if strings.HasSuffix(e.Value, "-> chase") && rs.firstContactTick < 0 {
					rs.firstContactTick = e.Tick
				}
				if strings.HasSuffix(e.Value, "-> attack") && rs.firstEngageTick < 0 {
					rs.firstEngageTick = e.Tick
				}
			}
		case "event_bus":
			switch e.Key {
			case "handler_panic":
				rs.handlerPanics++
			case "drain_cap_exceeded":
				rs.drainCapExceeded++
			}
		case "state":
			if e.Key == "change" && strings.Contains(e.Value, "alive -> dead") && rs.firstDeathTick < 0 {
				rs.firstDeathTick = e.Tick
			}
		}
	}

	rs.attacksFired = event.Count[event.AttackIntent](ts.Bus)
	rs.factionAlerts = event.Count[event.FactionAlert](ts.Bus)

	for e, f := range ecs.All[ecs.Faction](ts.World) {
		if !ts.World.Alive(e) {
			continue
		}
		switch f.Group {
		case "red":
			rs.redSurvivors++
		case "blue":
			rs.blueSurvivors++
		}
	}

	rs.stalemate, rs.stalemateReason = detectStalemate(rs)
	return rs
}

// detectStalemate reports whether a run reads as a stalemate: both
// factions retained at least stalemateMinMutualSurvivalRate of their
// starting strength and some engagement was actually attempted (otherwise
// "nobody died" would also read as a stalemate when really nobody ever
// found anybody).
func detectStalemate(rs runStats) (bool, string) {
	if rs.attacksFired == 0 {
		return false, "no_engagement"
	}
	redRate := survivalRate(rs.redSurvivors, rs.redTotal)
	blueRate := survivalRate(rs.blueSurvivors, rs.blueTotal)
	if redRate >= stalemateMinMutualSurvivalRate && blueRate >= stalemateMinMutualSurvivalRate {
		return true, fmt.Sprintf("high_mutual_survival red=%.2f blue=%.2f", redRate, blueRate)
	}
	return false, "decisive_attrition"
}

func survivalRate(survivors, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(survivors) / float64(total)
}

func printRun(rs runStats) {
	fmt.Printf("--- run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("  first_contact_tick=%s first_engage_tick=%s first_death_tick=%s\n",
		tickOrNA(rs.firstContactTick), tickOrNA(rs.firstEngageTick), tickOrNA(rs.firstDeathTick))
	fmt.Printf("  mode_changes=%d attacks_fired=%d faction_alerts=%d\n",
		rs.modeChanges, rs.attacksFired, rs.factionAlerts)
	if rs.handlerPanics > 0 || rs.drainCapExceeded > 0 {
		fmt.Printf("  handler_panics=%d drain_cap_exceeded=%d\n", rs.handlerPanics, rs.drainCapExceeded)
	}
	fmt.Printf("  red: %d/%d survived   blue: %d/%d survived\n",
		rs.redSurvivors, rs.redTotal, rs.blueSurvivors, rs.blueTotal)
	fmt.Printf("  stalemate=%v (%s)\n\n", rs.stalemate, rs.stalemateReason)
}

func printAggregate(all []runStats) {
	if len(all) == 0 {
		return
	}
	var totalAttacks, totalAlerts, totalModeChanges, stalemates int
	var redRateSum, blueRateSum float64
	for _, rs := range all {
		totalAttacks += rs.attacksFired
		totalAlerts += rs.factionAlerts
		totalModeChanges += rs.modeChanges
		if rs.stalemate {
			stalemates++
		}
		redRateSum += survivalRate(rs.redSurvivors, rs.redTotal)
		blueRateSum += survivalRate(rs.blueSurvivors, rs.blueTotal)
	}
	n := float64(len(all))
	fmt.Printf("=== Aggregate (%d runs) ===\n", len(all))
	fmt.Printf("avg mode_changes=%.1f avg attacks_fired=%.1f avg faction_alerts=%.1f\n",
		float64(totalModeChanges)/n, float64(totalAttacks)/n, float64(totalAlerts)/n)
	fmt.Printf("avg red_survival=%.2f avg blue_survival=%.2f\n", redRateSum/n, blueRateSum/n)
	fmt.Printf("stalemates=%d/%d\n", stalemates, len(all))
}

func tickOrNA(tick int) string {
	if tick < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%d", tick)
}
