// Package tuning implements the hot-reloadable keyed scalar store: dotted
// -section TOML tables, with a Get(section, key, default) scalar lookup
// and a Section(path) shallow copy, parsed with
// github.com/BurntSushi/toml.
package tuning

import (
	"sync/atomic"

	"github.com/BurntSushi/toml"
)

// table is section -> key -> scalar value.
type table map[string]map[string]float64

// Tuning is the World resource wrapping the current tuning table behind
// an atomic pointer, so ReloadFrom can hot-swap it without a lock.
type Tuning struct {
	current atomic.Pointer[table]
}

// New returns a Tuning with an empty table; every Get falls back to its
// caller-supplied default until Load/ReloadFrom populates it.
func New() *Tuning {
	t := &Tuning{}
	empty := table{}
	t.current.Store(&empty)
	return t
}

// Load parses a TOML file at path into a fresh table and installs it.
func Load(path string) (*Tuning, error) {
	t := New()
	if err := t.ReloadFrom(path); err != nil {
		return nil, err
	}
	return t, nil
}

// ReloadFrom re-parses path and atomically swaps the active table.
// Each [section] table and each one-level [section.sub] table becomes a
// section of numeric scalars, the latter named by its dotted path
// ("section.sub"). Non-numeric values and tables nested deeper than one
// level are dropped.
func (t *Tuning) ReloadFrom(path string) error {
	var raw map[string]map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return err
	}
	tb := make(table, len(raw))
	for section, kv := range raw {
		scalars := make(map[string]float64, len(kv))
		for k, v := range kv {
			if f, ok := toFloat(v); ok {
				scalars[k] = f
			} else if sub, ok := v.(map[string]any); ok {
				nested := make(map[string]float64, len(sub))
				for sk, sv := range sub {
					if f, ok := toFloat(sv); ok {
						nested[sk] = f
					}
				}
				tb[section+"."+k] = nested
			}
		}
		tb[section] = scalars
	}
	t.current.Store(&tb)
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Get returns the scalar at section.key, or def if either the section or
// key is missing — a data gap falls back to a hard-coded default and
// continues rather than erroring.
func (t *Tuning) Get(section, key string, def float64) float64 {
	tb := *t.current.Load()
	sec, ok := tb[section]
	if !ok {
		return def
	}
	v, ok := sec[key]
	if !ok {
		return def
	}
	return v
}

// Override sets a single section.key scalar directly, copying the active
// table before swapping it in so concurrent readers never see a partially
// built table. Used by scenario tests to pin exactly the values their
// assertions depend on regardless of what (if anything) was Loaded.
func (t *Tuning) Override(section, key string, value float64) {
	old := *t.current.Load()
	tb := make(table, len(old)+1)
	for sec, kv := range old {
		scalars := make(map[string]float64, len(kv))
		for k, v := range kv {
			scalars[k] = v
		}
		tb[sec] = scalars
	}
	if tb[section] == nil {
		tb[section] = make(map[string]float64)
	}
	tb[section][key] = value
	t.current.Store(&tb)
}

// Section returns a shallow copy of the named section, or an empty map if
// absent.
func (t *Tuning) Section(path string) map[string]float64 {
	tb := *t.current.Load()
	sec, ok := tb[path]
	if !ok {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(sec))
	for k, v := range sec {
		out[k] = v
	}
	return out
}
