// Package event implements the typed event bus: a FIFO queue, a
// subscriber table keyed by concrete event type, and a BFS drain that
// cascades newly-emitted events within the same tick. Events are dispatched
// to subscriber closures keyed by the event's concrete Go type, not by a
// string name.
package event

import (
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/papsh-soup/simcore/internal/devlog"
	"github.com/papsh-soup/simcore/internal/ecs"
)

// Event is the closed sum type of every event kind the core emits.
type Event interface {
	eventMarker()
}

type AttackKind uint8

const (
	AttackMelee AttackKind = iota
	AttackRanged
)

// EntityDied — an entity's health reached zero and it was killed.
type EntityDied struct {
	EID       ecs.Entity
	KillerEID ecs.Entity
	Zone      string
}

func (EntityDied) eventMarker() {}

// AttackIntent — a combat FSM decided to fire/swing this tick.
type AttackIntent struct {
	Attacker, Target ecs.Entity
	Kind             AttackKind
}

func (AttackIntent) eventMarker() {}

// FactionAlert — broadcast that should flip nearby same-group allies.
type FactionAlert struct {
	Group  string
	X, Y   float64
	Zone   string
	Threat ecs.Entity
}

func (FactionAlert) eventMarker() {}

// CrimeWitnessed — an NPC witnessed a hostile act.
type CrimeWitnessed struct {
	Criminal, Witness ecs.Entity
	Kind              string
	X, Y              float64
	Zone              string
}

func (CrimeWitnessed) eventMarker() {}

// EntityHit — damage was applied to an entity (informational, post-hoc).
type EntityHit struct {
	Target, Attacker ecs.Entity
	Damage           float64
}

func (EntityHit) eventMarker() {}

// drainCap bounds the number of BFS rounds per Drain call, preventing
// livelock from handlers that perpetually re-emit.
const drainCap = 1000

// Handler processes one event of a specific concrete type.
type Handler func(w *ecs.World, e Event)

// Bus is the FIFO event queue plus subscriber table. Stored as a World
// resource (ecs.SetRes/Res), never referenced as a package-level global.
type Bus struct {
	queue       []Event
	subscribers map[reflect.Type][]Handler
	counts      map[reflect.Type]int
}

// NewBus returns an empty, ready-to-use Bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[reflect.Type][]Handler),
		counts:      make(map[reflect.Type]int),
	}
}

// Emit enqueues e for the next Drain (or the current one, if called from
// inside a handler).
func (b *Bus) Emit(e Event) {
	b.queue = append(b.queue, e)
}

// Subscribe registers fn to run for every future event whose concrete type
// is T. Subscriptions are appended; order of registration is the order of
// invocation for a given event type.
func Subscribe[T Event](b *Bus, fn func(*ecs.World, T)) {
	var zero T
	t := reflect.TypeOf(zero)
	b.subscribers[t] = append(b.subscribers[t], func(w *ecs.World, e Event) {
		fn(w, e.(T))
	})
}

// Count returns the cumulative number of events of type T ever drained.
func Count[T Event](b *Bus) int {
	var zero T
	t := reflect.TypeOf(zero)
	return b.counts[t]
}

// Drain runs a BFS cascade: snapshot the current queue, clear it, invoke
// every subscriber for each event, then re-enter while newly queued
// events exist, up to drainCap rounds. Returns the total number of
// handler invocations. A panic inside a single handler is
// recovered and logged to DevLog as a handler exception; the drain
// continues with the next handler.
func Drain(w *ecs.World, b *Bus) int {
	processed := 0
	for round := 0; round < drainCap; round++ {
		if len(b.queue) == 0 {
			return processed
		}
		batch := b.queue
		b.queue = nil
		for _, e := range batch {
			t := reflect.TypeOf(e)
			b.counts[t]++
			for _, h := range b.subscribers[t] {
				invoke(w, b, h, e)
				processed++
			}
		}
	}
	// Cap exhausted: treated as an invariant violation, not a handler
	// exception — the bus should have reached quiescence.
	if log, ok := ecs.Res[devlog.Log](w); ok {
		log.Add(devlog.Entry{
			Category: "event_bus",
			Key:      "drain_cap_exceeded",
			Value:    fmt.Sprintf("%d rounds, %d pending", drainCap, len(b.queue)),
		})
	}
	return processed
}

func invoke(w *ecs.World, b *Bus, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			if log, ok := ecs.Res[devlog.Log](w); ok {
				log.Add(devlog.Entry{
					Category: "event_bus",
					Key:      "handler_panic",
					Value:    fmt.Sprintf("%v\n%s", r, debug.Stack()),
				})
			}
		}
	}()
	h(w, e)
}
