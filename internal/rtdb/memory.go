package rtdb

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store implementation.
//
// It mirrors the retained-topic semantics of MQTTStore: a subscriber
// immediately receives the current value of every node matching its
// pattern, and subsequent patches are fanned out to matching subscribers.
// Used in tests and for running the core without a broker.
type MemoryStore struct {
	mu     sync.RWMutex
	nodes  map[string]Value
	subs   map[int]*memSub
	nextID int
}

type memSub struct {
	pattern string
	handler Handler
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]Value),
		subs:  make(map[int]*memSub),
	}
}

// ReadOnce returns a copy of the node at path, or ErrNotFound.
func (s *MemoryStore) ReadOnce(_ context.Context, path string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.nodes[path]
	if !ok {
		return nil, ErrNotFound
	}
	return v.Clone(), nil
}

// Patch merges fields into the node at path, creating it if absent,
// then notifies matching subscribers.
func (s *MemoryStore) Patch(_ context.Context, path string, fields Value) error {
	s.mu.Lock()

	merged := s.nodes[path].Merge(fields)
	s.nodes[path] = merged

	var notify []Handler
	for _, sub := range s.subs {
		if matchPath(sub.pattern, path) {
			notify = append(notify, sub.handler)
		}
	}
	value := merged.Clone()
	s.mu.Unlock()

	// Deliver outside the lock so handlers can call back into the store
	for _, h := range notify {
		h(path, value.Clone())
	}
	return nil
}

// Exists reports whether a node is present at path.
func (s *MemoryStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[path]
	return ok, nil
}

// Subscribe registers a handler for nodes matching path (wildcards + and #
// supported). Current values of matching nodes are delivered immediately.
func (s *MemoryStore) Subscribe(path string, handler Handler) (UnsubscribeFunc, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &memSub{pattern: path, handler: handler}

	type replay struct {
		path  string
		value Value
	}
	var initial []replay
	for nodePath, v := range s.nodes {
		if matchPath(path, nodePath) {
			initial = append(initial, replay{path: nodePath, value: v.Clone()})
		}
	}
	s.mu.Unlock()

	for _, r := range initial {
		handler(r.path, r.value)
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
	return unsub, nil
}

// Delete removes the node at path without notifying subscribers.
// Test helper mirroring a cleared retained message.
func (s *MemoryStore) Delete(path string) {
	s.mu.Lock()
	delete(s.nodes, path)
	s.mu.Unlock()
}

// SubscriberCount returns the number of active subscriptions.
func (s *MemoryStore) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// matchPath reports whether an MQTT-style pattern matches a concrete path.
// "+" matches exactly one segment, "#" matches the remainder.
func matchPath(pattern, path string) bool {
	pp := strings.Split(pattern, "/")
	sp := strings.Split(path, "/")

	for i, seg := range pp {
		if seg == "#" {
			return true
		}
		if i >= len(sp) {
			return false
		}
		if seg != "+" && seg != sp[i] {
			return false
		}
	}
	return len(pp) == len(sp)
}
