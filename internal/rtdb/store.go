package rtdb

import (
	"context"
	"errors"
)

// Domain-specific errors for realtime store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned when no node exists at the requested path.
	ErrNotFound = errors.New("rtdb: node not found")

	// ErrStoreUnavailable is returned when the backing transport is down.
	ErrStoreUnavailable = errors.New("rtdb: store unavailable")
)

// Value is the JSON object held at a realtime store node.
//
// Nodes are flat-ish JSON documents: controller nodes carry
// {"status": "active"|"inactive"}, scheduler nodes carry
// {"startTime", "endTime", "date"}, sensor nodes carry whatever the
// firmware publishes ({"value", "status", ...}).
type Value map[string]any

// Handler is invoked for every update observed at a subscribed path.
//
// The path is the concrete node path (wildcards expanded). Handlers run on
// the transport's delivery goroutine and must not block.
type Handler func(path string, value Value)

// UnsubscribeFunc tears down a subscription. Safe to call more than once.
type UnsubscribeFunc func()

// Store is the low-latency key-path store holding live cabinet state.
//
// The realtime store is authoritative for "actual" state (is the pump
// physically on right now); the structured store holds "intent". Writes are
// merge-patches: supplied fields are merged into the existing node, and a
// patch to a missing path creates the node. Callers that must not create
// nodes check Exists first.
type Store interface {
	// ReadOnce fetches the current value at path.
	// Returns ErrNotFound if no node exists there.
	ReadOnce(ctx context.Context, path string) (Value, error)

	// Patch merges fields into the node at path, creating it if absent.
	// A nil field value removes that key from the node.
	Patch(ctx context.Context, path string, fields Value) error

	// Exists reports whether a node is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Subscribe registers a handler for updates at path. The path may
	// contain wildcards. The current value, if any, is delivered
	// immediately. Returns a function that tears the subscription down.
	Subscribe(path string, handler Handler) (UnsubscribeFunc, error)
}

// Clone returns a deep copy of a Value one level down.
// Nested objects are copied shallowly beyond the first level, which is
// sufficient for the flat node shapes used here.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	out := make(Value, len(v))
	for k, val := range v {
		if nested, ok := val.(map[string]any); ok {
			inner := make(map[string]any, len(nested))
			for nk, nv := range nested {
				inner[nk] = nv
			}
			out[k] = inner
			continue
		}
		out[k] = val
	}
	return out
}

// Merge applies fields onto v following patch semantics: non-nil values
// overwrite, nil values delete the key.
func (v Value) Merge(fields Value) Value {
	out := v.Clone()
	if out == nil {
		out = make(Value, len(fields))
	}
	for k, val := range fields {
		if val == nil {
			delete(out, k)
			continue
		}
		out[k] = val
	}
	return out
}
