package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/farmcab/farmcab-core/internal/infrastructure/mqtt"
)

// defaultReadTimeout bounds how long ReadOnce waits for a retained message.
// A retained node arrives within milliseconds of subscribing; if nothing
// shows up in this window the node does not exist.
const defaultReadTimeout = 2 * time.Second

// Broker is the subset of the MQTT client the store needs.
// *mqtt.Client satisfies this interface.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishRetained(topic string, payload []byte) error
}

// topicState tracks everyone attached to one topic filter. The client holds
// a single broker subscription per filter; reads and persistent watchers
// share it, so a transient read can never tear down a watcher on the same
// topic. For concrete (wildcard-free) filters the last delivered value is
// cached, because the broker only replays retained messages to brand-new
// subscriptions.
type topicState struct {
	handlers map[int]Handler
	nextID   int
	latest   Value
	seen     bool
}

// MQTTStore implements Store on top of MQTT retained topics.
//
// Each node path maps 1:1 to a topic. Node values are JSON objects published
// retained, so the broker itself holds current state and a fresh subscriber
// receives it immediately. A retained message with an empty payload means
// the node has been cleared and is treated as absent.
type MQTTStore struct {
	client Broker
	qos    byte

	mu     sync.Mutex
	topics map[string]*topicState

	// patchMu serializes read-modify-write cycles in Patch.
	patchMu sync.Mutex

	readTimeout time.Duration
}

// NewMQTTStore creates a Store backed by the given MQTT client.
// qos is applied to subscriptions; publishes use the client's configured QoS.
func NewMQTTStore(client Broker, qos byte) *MQTTStore {
	return &MQTTStore{
		client:      client,
		qos:         qos,
		topics:      make(map[string]*topicState),
		readTimeout: defaultReadTimeout,
	}
}

// attach registers handler under the topic filter, subscribing the broker
// client on first use. Returns the handler's ID plus the cached value for
// an already-active concrete topic, so late attachers still see the
// retained state.
func (s *MQTTStore) attach(topic string, handler Handler) (int, Value, bool, error) {
	s.mu.Lock()
	if st, ok := s.topics[topic]; ok {
		id := st.nextID
		st.nextID++
		st.handlers[id] = handler
		latest, seen := st.latest, st.seen
		s.mu.Unlock()
		return id, latest, seen, nil
	}

	st := &topicState{handlers: map[int]Handler{0: handler}, nextID: 1}
	s.topics[topic] = st
	s.mu.Unlock()

	// Subscribe outside the lock: the client may deliver the retained
	// message synchronously, and dispatch needs the lock.
	if err := s.client.Subscribe(topic, s.qos, s.dispatch); err != nil {
		s.mu.Lock()
		delete(s.topics, topic)
		s.mu.Unlock()
		return 0, nil, false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return 0, nil, false, nil
}

// detach removes one handler; the broker subscription is dropped only when
// the last handler on the topic is gone.
func (s *MQTTStore) detach(topic string, id int) {
	s.mu.Lock()
	st, ok := s.topics[topic]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(st.handlers, id)
	last := len(st.handlers) == 0
	if last {
		delete(s.topics, topic)
	}
	s.mu.Unlock()

	if last {
		s.client.Unsubscribe(topic) //nolint:errcheck // Best effort teardown
	}
}

// dispatch routes one broker message to every attached handler whose filter
// matches, updating the per-topic cache for concrete filters.
func (s *MQTTStore) dispatch(topic string, payload []byte) error {
	var v Value
	present := len(payload) > 0
	if present {
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("decoding node %s: %w", topic, err)
		}
	}

	var notify []Handler
	s.mu.Lock()
	for filter, st := range s.topics {
		if !matchPath(filter, topic) {
			continue
		}
		if filter == topic {
			if present {
				st.latest, st.seen = v, true
			} else {
				// Cleared retained message, node is gone
				st.latest, st.seen = nil, false
			}
		}
		if present {
			for _, h := range st.handlers {
				notify = append(notify, h)
			}
		}
	}
	s.mu.Unlock()

	for _, h := range notify {
		h(topic, v.Clone())
	}
	return nil
}

// ReadOnce fetches the current value at path. An already-watched topic
// answers from the shared subscription's cache; otherwise a transient
// handler waits for the retained message. Returns ErrNotFound if nothing
// arrives within the read timeout.
func (s *MQTTStore) ReadOnce(ctx context.Context, path string) (Value, error) {
	ch := make(chan Value, 1)

	id, cached, seen, err := s.attach(path, func(_ string, v Value) {
		select {
		case ch <- v:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer s.detach(path, id)

	if seen {
		return cached.Clone(), nil
	}

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("reading node %s: %w", path, ctx.Err())
	case <-time.After(s.readTimeout):
		return nil, ErrNotFound
	}
}

// Patch merges fields into the node at path and republishes it retained.
// A missing node starts from an empty object, so Patch creates nodes.
func (s *MQTTStore) Patch(ctx context.Context, path string, fields Value) error {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()

	current, err := s.ReadOnce(ctx, path)
	switch {
	case err == nil:
	case isNotFound(err):
		current = Value{}
	default:
		return err
	}

	merged := current.Merge(fields)

	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding node %s: %w", path, err)
	}

	if err := s.client.PublishRetained(path, payload); err != nil {
		return fmt.Errorf("%w: patching node %s: %w", ErrStoreUnavailable, path, err)
	}

	return nil
}

// Exists reports whether a retained node is present at path.
func (s *MQTTStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.ReadOnce(ctx, path)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Subscribe registers a handler for updates at path. MQTT wildcards are
// supported (+ and #). Retained messages mean the current value of every
// matching node is delivered as soon as the subscription is active; when
// the topic is already watched, the cached value is replayed instead.
func (s *MQTTStore) Subscribe(path string, handler Handler) (UnsubscribeFunc, error) {
	id, cached, seen, err := s.attach(path, handler)
	if err != nil {
		return nil, err
	}

	if seen {
		handler(path, cached.Clone())
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.detach(path, id)
		})
	}
	return unsub, nil
}

// isNotFound reports whether err is ErrNotFound (possibly wrapped).
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
