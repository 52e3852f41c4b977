package ecs

// GameClock is the monotonically increasing simulation clock resource.
// One real second is nominally one game minute.
type GameClock struct {
	Time float64
}

// ItemDef describes one entry in the ItemRegistry.
type ItemDef struct {
	Type        string
	DisplayName string
	Sprite      string
	Damage      float64
	Reach       float64
	Range       float64
	Accuracy    float64
	Cooldown    float64
	Heal        float64
}

// ItemRegistry maps item-id to its static definition.
type ItemRegistry struct {
	Items map[string]ItemDef
}

// RefillTimers tracks, per container entity, the last settlement-food
// restock time.
type RefillTimers struct {
	Timers map[Entity]float64
}
