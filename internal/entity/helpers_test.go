package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MockTransport is a test implementation of Transport that records every
// publish and tracks live subscriptions so handlers can be driven
// directly.
type MockTransport struct {
	mu sync.Mutex

	subscribeErr   error
	unsubscribeErr error
	publishErr     error

	handlers map[string]MessageHandler
	qos      map[string]byte

	// Ordered operation log: "sub:<topic>", "unsub:<topic>",
	// "pub:<topic>".
	ops []string

	published []publishedMessage
}

type publishedMessage struct {
	topic    string
	payload  string
	qos      byte
	retained bool
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		handlers: make(map[string]MessageHandler),
		qos:      make(map[string]byte),
	}
}

func (m *MockTransport) Subscribe(topic string, qos byte, handler MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.handlers[topic] = handler
	m.qos[topic] = qos
	m.ops = append(m.ops, "sub:"+topic)
	return nil
}

func (m *MockTransport) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribeErr != nil {
		return m.unsubscribeErr
	}
	delete(m.handlers, topic)
	delete(m.qos, topic)
	m.ops = append(m.ops, "unsub:"+topic)
	return nil
}

func (m *MockTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.ops = append(m.ops, "pub:"+topic)
	m.published = append(m.published, publishedMessage{
		topic:    topic,
		payload:  string(payload),
		qos:      qos,
		retained: retained,
	})
	return nil
}

// Deliver drives the handler subscribed to topic with a payload, as the
// broker would.
func (m *MockTransport) Deliver(topic, payload string) error {
	m.mu.Lock()
	handler, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no handler subscribed to %s", topic)
	}
	return handler(topic, []byte(payload))
}

func (m *MockTransport) Subscribed(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[topic]
	return ok
}

func (m *MockTransport) SubscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

func (m *MockTransport) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ops))
	copy(out, m.ops)
	return out
}

func (m *MockTransport) Published() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

// MockStore is a test implementation of StateStore.
type MockStore struct {
	mu     sync.Mutex
	states map[string]string
	saves  []string // ordered "id=state" log
	// For testing error paths
	lastErr error
	saveErr error
}

func NewMockStore() *MockStore {
	return &MockStore{states: make(map[string]string)}
}

func (m *MockStore) LastState(_ context.Context, entityID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr != nil {
		return "", false, m.lastErr
	}
	state, ok := m.states[entityID]
	return state, ok, nil
}

func (m *MockStore) SaveState(_ context.Context, entityID, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[entityID] = state
	m.saves = append(m.saves, entityID+"="+state)
	return nil
}

func (m *MockStore) Saves() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.saves))
	copy(out, m.saves)
	return out
}

// MockNotifier records every snapshot it receives.
type MockNotifier struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (m *MockNotifier) EntityStateChanged(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, snap)
}

func (m *MockNotifier) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, len(m.snaps))
	copy(out, m.snaps)
	return out
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snaps)
}

// MockEngine compiles a handful of recognisable sources into fixed
// behaviours so tests can exercise template paths without a real
// template engine.
//
//	"upper"      uppercases the payload
//	"json:<key>" extracts a string key from a JSON object payload
//	"fail"       compiles but always errors at render time
//	"bad"        fails to compile
type MockEngine struct{}

func (MockEngine) Compile(source string) (TemplateFn, error) {
	switch {
	case source == "upper":
		return func(raw string, _ map[string]any) (string, error) {
			return strings.ToUpper(raw), nil
		}, nil
	case source == "fail":
		return func(string, map[string]any) (string, error) {
			return "", errors.New("render failed")
		}, nil
	case source == "bad":
		return nil, errors.New("compile failed")
	case strings.HasPrefix(source, "json:"):
		key := strings.TrimPrefix(source, "json:")
		return func(raw string, _ map[string]any) (string, error) {
			var obj map[string]any
			if err := json.Unmarshal([]byte(raw), &obj); err != nil {
				return "", err
			}
			s, _ := obj[key].(string)
			return s, nil
		}, nil
	default:
		return func(raw string, _ map[string]any) (string, error) {
			return raw, nil
		}, nil
	}
}

// newTestDeps wires mocks into the internal dependency bundle used by
// the kind constructors.
func newTestDeps(transport *MockTransport, store *MockStore, onChange func(Snapshot)) deps {
	var s StateStore
	if store != nil {
		s = store
	}
	return deps{
		transport: transport,
		engine:    MockEngine{},
		store:     s,
		logger:    noopLogger{},
		onChange:  onChange,
	}
}
