// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"sync"

	"github.com/ManuGH/drmcore/internal/log"
)

// cell is the untyped storage backing one Key. Get[T]/Set[T] do the type
// assertion against the registered ValueType; Restore only needs to swap
// raw values and owners, so it never needs to know T.
type cell struct {
	value     any
	owner     Layer
	prevValue any
	prevOwner Layer
	hasPrev   bool
}

// Store is the layered config store: a map of typed key/value cells whose
// writes obey the DEFAULT < OPERATOR < STREAM < APPLICATION < TUNE < DEV
// ownership precedence.
//
// Get takes the store mutex only long enough to copy the cell's current
// value out, never holding it across caller code.
type Store struct {
	mu sync.Mutex

	cells map[Key]*cell

	// channelOverrides holds operator-supplied per-channel license URL
	// overrides (GetChannelOverride).
	channelOverrides map[string]string

	// customConfigs holds registered custom-config match entries
	// (CustomSearch).
	customConfigs []customConfigEntry
}

type customConfigEntry struct {
	urlContains string
	playerID    string
	appName     string
}

// NewStore builds a Store with every registered key seeded at its default
// value, owned by the DEFAULT layer.
func NewStore() *Store {
	s := &Store{
		cells:            make(map[Key]*cell, len(registry)),
		channelOverrides: make(map[string]string),
	}
	for key, spec := range registry {
		s.cells[key] = &cell{value: spec.Default, owner: Default}
	}
	return s
}

// Get returns the current value and owning layer of key. It panics only on
// programmer error (an unregistered key or a T that disagrees with the
// key's registered type) since both are caught at the call site during
// development, not at runtime against untrusted input — callers that need
// a recoverable form should use GetChecked.
func Get[T any](s *Store, key Key) (T, Layer) {
	v, layer, err := GetChecked[T](s, key)
	if err != nil {
		panic(err)
	}
	return v, layer
}

// GetChecked is the error-returning form of Get.
func GetChecked[T any](s *Store, key Key) (T, Layer, error) {
	var zero T
	spec, ok := registry[key]
	if !ok {
		return zero, Default, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	s.mu.Lock()
	c := s.cells[key]
	value, owner := c.value, c.owner
	s.mu.Unlock()

	v, ok := value.(T)
	if !ok {
		return zero, Default, fmt.Errorf("%w: key %s is %s", ErrTypeMismatch, key, spec.Type)
	}
	return v, owner, nil
}

// Set writes value under layer; the write commits only if layer is at
// least as senior as the cell's current owner. A rejected write is logged
// (an out-of-range value as a warning, a lower-layer write at debug level)
// rather than treated as exceptional; Set still returns an
// error so callers can assert on it in tests, but a caller driving normal
// playback should simply ignore a non-nil error from a lower-priority
// writer.
func Set[T any](s *Store, layer Layer, key Key, value T) error {
	if !layer.valid() {
		return fmt.Errorf("config: invalid layer %d", int(layer))
	}
	spec, ok := registry[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !matchesType(spec.Type, value) {
		return fmt.Errorf("%w: key %s is %s", ErrTypeMismatch, key, spec.Type)
	}
	if n, isNum := toFloat(value); isNum && !spec.Range.contains(n) {
		log.WithComponent("config").Warn().
			Str("key", string(key)).
			Float64("value", n).
			Float64("min", spec.Range.Min).
			Float64("max", spec.Range.Max).
			Msg("config.set_out_of_range")
		return fmt.Errorf("%w: key %s value %v", ErrOutOfRange, key, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cells[key]
	if layer < c.owner {
		log.WithComponent("config").Debug().
			Str("key", string(key)).
			Str("writer_layer", layer.String()).
			Str("current_owner", c.owner.String()).
			Msg("config.set_rejected_lower_layer")
		return fmt.Errorf("config: layer %s cannot override owner %s for key %s", layer, c.owner, key)
	}

	c.prevValue = c.value
	c.prevOwner = c.owner
	c.hasPrev = true
	c.value = value
	c.owner = layer
	return nil
}

// Toggle flips a bool key in place, subject to the same ownership rule as
// Set.
func Toggle(s *Store, layer Layer, key Key) error {
	cur, _, err := GetChecked[bool](s, key)
	if err != nil {
		return err
	}
	return Set(s, layer, key, !cur)
}

// Restore reverts every cell owned by layer to its saved (previous value,
// previous owner), leaving the store indistinguishable from "layer never
// wrote anything".
func Restore(s *Store, layer Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.cells {
		if c.owner != layer || !c.hasPrev {
			continue
		}
		c.value = c.prevValue
		c.owner = c.prevOwner
		c.hasPrev = false
		log.WithComponent("config").Debug().
			Str("key", string(key)).
			Str("restored_to_layer", c.owner.String()).
			Msg("config.restored")
	}
}

// CellSnapshot is a read-only view of one config key's current value and
// owning layer.
type CellSnapshot struct {
	Key   Key
	Value any
	Owner Layer
}

// Snapshot returns every registered key's current value and owner, for a
// diagnostics surface rather than for runtime decisions.
func (s *Store) Snapshot() []CellSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CellSnapshot, 0, len(s.cells))
	for key, c := range s.cells {
		out = append(out, CellSnapshot{Key: key, Value: c.value, Owner: c.owner})
	}
	return out
}

// SetChannelOverride registers an operator-supplied per-channel license
// URL override.
func (s *Store) SetChannelOverride(name, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelOverrides[name] = url
}

// GetChannelOverride consults the operator-supplied per-channel URL
// mapping.
func (s *Store) GetChannelOverride(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url, ok := s.channelOverrides[name]
	return url, ok
}

// RegisterCustomConfig adds a custom-config match entry consulted by
// CustomSearch.
func (s *Store) RegisterCustomConfig(urlContains, playerID, appName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customConfigs = append(s.customConfigs, customConfigEntry{
		urlContains: urlContains,
		playerID:    playerID,
		appName:     appName,
	})
}

// CustomSearch checks whether any registered custom-config entry matches
// the given url/playerId/appName triple. An entry field left empty during
// registration matches any value for that field.
func (s *Store) CustomSearch(url, playerID, appName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.customConfigs {
		if e.urlContains != "" && !contains(url, e.urlContains) {
			continue
		}
		if e.playerID != "" && e.playerID != playerID {
			continue
		}
		if e.appName != "" && e.appName != appName {
			continue
		}
		return true
	}
	return false
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

func matchesType(t ValueType, value any) bool {
	switch t {
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeInt:
		_, ok := value.(int)
		return ok
	case TypeLong:
		_, ok := value.(int64)
		return ok
	case TypeDouble:
		_, ok := value.(float64)
		return ok
	case TypeString:
		_, ok := value.(string)
		return ok
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
