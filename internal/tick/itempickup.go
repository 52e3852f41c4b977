package tick

import (
	"math"

	"github.com/papsh-soup/simcore/internal/devlog"
	"github.com/papsh-soup/simcore/internal/ecs"
)

// pickupRadius is how close a Collider-carrying entity must stand to an
// item-kind Identity entity to sweep it into its Inventory.
const pickupRadius = 0.6

// itemPickupSystem runs after movement each tick: any entity with
// Position+Collider+Inventory that stands within pickupRadius of a
// dropped Identity{Kind:"item"} entity sweeps it into its own Inventory
// and removes the item entity. First finder wins (ascending entity-id
// order), matching the orchestrator's deterministic iteration order.
func (o *Orchestrator) itemPickupSystem() {
	type droppedItem struct {
		eid  ecs.Entity
		pos  ecs.Position
		name string
	}
	var items []droppedItem
	for e, v := range ecs.Query2[ecs.Position, ecs.Identity](o.W) {
		if v.B.Kind != "item" {
			continue
		}
		items = append(items, droppedItem{eid: e, pos: v.A, name: v.B.Name})
	}
	if len(items) == 0 {
		return
	}

	for e, v := range ecs.Query2[ecs.Position, ecs.Inventory](o.W) {
		if !ecs.Has[ecs.Collider](o.W, e) {
			continue
		}
		for i := range items {
			it := items[i]
			if !o.W.Alive(it.eid) || it.pos.Zone != v.A.Zone {
				continue
			}
			if math.Hypot(it.pos.X-v.A.X, it.pos.Y-v.A.Y) > pickupRadius {
				continue
			}
			ecs.Mutate(o.W, e, func(inv *ecs.Inventory) {
				if inv.Items == nil {
					inv.Items = make(map[string]int)
				}
				inv.Items[it.name]++
			})
			o.Log.Add(devlog.Entry{
				Entity:   uint32(e),
				Category: "item_pickup",
				Key:      it.name,
				Value:    "picked_up",
			})
			o.W.Kill(it.eid)
		}
	}
}
