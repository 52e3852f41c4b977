// Package needs implements hunger drain, starvation damage, need-urgency
// evaluation, auto-eating, and the settlement communal food economy.
package needs

import (
	"github.com/papsh-soup/simcore/internal/ecs"
	"github.com/papsh-soup/simcore/internal/tuning"
)

// eatCooldownDefault is the minimum number of seconds after a
// VillagerState holder's last meal before AutoEatSystem feeds it again;
// entities without VillagerState have no cooldown.
const eatCooldownDefault = 30.0

// refillItems and maxStock describe what a settlement storehouse
// restocks on each refill tick, and its per-item cap.
var refillItems = map[string]int{"stew": 3, "ration": 5}
var maxStock = map[string]int{"stew": 20, "ration": 30, "canned_beans": 15, "dried_meat": 15}

// HungerSystem drains Hunger.current by rate*dt for every entity with a
// Hunger component that is not off-screen (SubzonePos), applies starve
// damage at zero, and sets Needs.priority/urgency from the well-fed/hungry
// ratio thresholds.
func HungerSystem(w *ecs.World, tn *tuning.Tuning, dt float64) {
	wellFed := tn.Get("needs", "well_fed_ratio", 0.5)
	hungryRatio := tn.Get("needs", "hungry_ratio", 0.25)

	for e, hunger := range ecs.All[ecs.Hunger](w) {
		if ecs.Has[ecs.SubzonePos](w, e) {
			continue
		}
		newCurrent := hunger.Current - hunger.Rate*dt
		if newCurrent < 0 {
			newCurrent = 0
		}
		ecs.Mutate(w, e, func(h *ecs.Hunger) { h.Current = newCurrent })

		if newCurrent <= 0 {
			if health, ok := ecs.Get[ecs.Health](w, e); ok {
				newHP := health.Current - hunger.StarveDPS*dt
				if newHP < 0 {
					newHP = 0
				}
				ecs.Mutate(w, e, func(h *ecs.Health) { h.Current = newHP })
			}
		}

		needs, ok := ecs.Get[ecs.Needs](w, e)
		if !ok {
			continue
		}
		ratio := newCurrent / max(hunger.Maximum, 0.01)
		switch {
		case ratio >= wellFed:
			if needs.Priority == "eat" {
				ecs.Mutate(w, e, func(n *ecs.Needs) { n.Priority, n.Urgency = "none", 0 })
			}
		case ratio >= hungryRatio:
			ecs.Mutate(w, e, func(n *ecs.Needs) { n.Priority, n.Urgency = "eat", 0.3 })
		case newCurrent > 0:
			ecs.Mutate(w, e, func(n *ecs.Needs) { n.Priority, n.Urgency = "eat", 0.7 })
		default:
			ecs.Mutate(w, e, func(n *ecs.Needs) { n.Priority, n.Urgency = "eat", 1.0 })
		}
	}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// AutoEatSystem runs after HungerSystem: any non-player entity whose
// Needs.priority is "eat" with urgency >= 0.3 tries to eat from its own
// inventory, then falls back to a settlement's communal storehouse.
// playerEID is never auto-fed (the player eats via its own explicit
// action, out of scope here).
func AutoEatSystem(w *ecs.World, playerEID ecs.Entity, now float64) {
	for e, needs := range ecs.All[ecs.Needs](w) {
		if ecs.Has[ecs.SubzonePos](w, e) {
			continue
		}
		if needs.Priority != "eat" || needs.Urgency < 0.3 {
			continue
		}
		if playerEID == e {
			continue
		}
		hunger, ok := ecs.Get[ecs.Hunger](w, e)
		if !ok {
			continue
		}
		inv, hasInv := ecs.Get[ecs.Inventory](w, e)

		if vstate, ok := ecs.Get[ecs.VillagerState](w, e); ok {
			if now-vstate.LastEatAt < eatCooldownDefault {
				continue
			}
		}

		ate := false
		if hasInv {
			ate = ConsumeBestFood(w, e, hunger, inv)
		}
		if !ate {
			ate = eatCommunal(w, e, hunger)
		}
		if ate {
			if ecs.Has[ecs.VillagerState](w, e) {
				ecs.Mutate(w, e, func(v *ecs.VillagerState) { v.LastEatAt = now })
			}
		}
	}
}

// ConsumeBestFood finds the highest-heal food item in inv, applies its
// heal to Hunger and half of it to Health (each capped at its maximum)
// and decrements its
// count, returning false if no food item is present.
func ConsumeBestFood(w *ecs.World, e ecs.Entity, hunger *ecs.Hunger, inv *ecs.Inventory) bool {
	reg, ok := ecs.Res[ecs.ItemRegistry](w)
	if !ok {
		return false
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
		return false
	}
	applyHeal(w, e, hunger, bestHeal)
	ecs.Mutate(w, e, func(i *ecs.Inventory) { i.Items[bestItem]-- })
	return true
}

// ConsumeFromContainer is ConsumeBestFood's communal-storehouse variant:
// it mutates the container's Inventory in place rather than the eater's.
func ConsumeFromContainer(w *ecs.World, eater ecs.Entity, container ecs.Entity, hunger *ecs.Hunger) bool {
	reg, ok := ecs.Res[ecs.ItemRegistry](w)
	if !ok {
		return false
	}
	cinv, ok := ecs.Get[ecs.Inventory](w, container)
	if !ok {
		return false
	}
	bestItem, bestHeal := "", -1.0
	for itemID, count := range cinv.Items {
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
		return false
	}
	applyHeal(w, eater, hunger, bestHeal)
	ecs.Mutate(w, container, func(i *ecs.Inventory) { i.Items[bestItem]-- })
	return true
}

func applyHeal(w *ecs.World, e ecs.Entity, hunger *ecs.Hunger, heal float64) {
	ecs.Mutate(w, e, func(h *ecs.Hunger) {
		h.Current += heal
		if h.Current > h.Maximum {
			h.Current = h.Maximum
		}
	})
	if health, ok := ecs.Get[ecs.Health](w, e); ok {
		newHP := health.Current + heal*0.5
		if newHP > health.Maximum {
			newHP = health.Maximum
		}
		ecs.Mutate(w, e, func(hh *ecs.Health) { hh.Current = newHP })
	}
}

// eatCommunal lets only faction.group=="settlers" eat from a same-zone
// container entity (Identity.Kind == "container").
func eatCommunal(w *ecs.World, e ecs.Entity, hunger *ecs.Hunger) bool {
	faction, ok := ecs.Get[ecs.Faction](w, e)
	if !ok || faction.Group != "settlers" {
		return false
	}
	pos, ok := ecs.Get[ecs.Position](w, e)
	if !ok {
		return false
	}
	for ceid, v := range ecs.Query2[ecs.Position, ecs.Identity](w) {
		if v.B.Kind != "container" || v.A.Zone != pos.Zone {
			continue
		}
		if ConsumeFromContainer(w, e, ceid, hunger) {
			return true
		}
	}
	return false
}

// SettlementFoodProduction slowly refills "settlement"-zone storehouse
// containers on a per-container RefillTimers cooldown.
func SettlementFoodProduction(w *ecs.World, tn *tuning.Tuning, gameTime float64) {
	timers, ok := ecs.Res[ecs.RefillTimers](w)
	if !ok {
		ecs.SetRes(w, ecs.RefillTimers{Timers: make(map[ecs.Entity]float64)})
		timers, _ = ecs.Res[ecs.RefillTimers](w)
	}

	refillInterval := tn.Get("needs.storehouse_refill", "refill_interval", 300.0)

	for ceid, v := range ecs.Query2[ecs.Identity, ecs.Position](w) {
		if v.A.Kind != "container" || v.B.Zone != "settlement" {
			continue
		}
		if !ecs.Has[ecs.Inventory](w, ceid) {
			continue
		}
		last, seen := timers.Timers[ceid]
		if seen && gameTime-last < refillInterval {
			continue
		}
		timers.Timers[ceid] = gameTime

		ecs.Mutate(w, ceid, func(inv *ecs.Inventory) {
			if inv.Items == nil {
				inv.Items = make(map[string]int)
			}
			for itemID, amount := range refillItems {
				cap := maxStock[itemID]
				if cap == 0 {
					cap = 20
				}
				current := inv.Items[itemID]
				if current >= cap {
					continue
				}
				add := amount
				if current+add > cap {
					add = cap - current
				}
				inv.Items[itemID] = current + add
			}
		})
	}
}
