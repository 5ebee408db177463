package entity

import (
	"errors"
	"fmt"
)

// Subscription roles. Each names one configured topic slot an entity
// may bind a handler to.
const (
	roleState         = "state"
	roleLatestVersion = "latest_version"
)

// topicSpec describes one desired topic binding for a subscription role.
// Two specs are equivalent when topic, qos, and encoding all match;
// handler identity does not participate in the comparison.
type topicSpec struct {
	topic    string
	qos      byte
	encoding string
	handler  MessageHandler
}

func (t topicSpec) equivalent(o topicSpec) bool {
	return t.topic == o.topic && t.qos == o.qos && t.encoding == o.encoding
}

// subscriptions tracks the live topic bindings of a single entity, keyed
// by role ("state", "latest_version", ...). Each role has at most one
// binding at any time.
type subscriptions struct {
	transport Transport
	active    map[string]topicSpec
}

func newSubscriptions(transport Transport) *subscriptions {
	return &subscriptions{
		transport: transport,
		active:    make(map[string]topicSpec),
	}
}

// apply diffs the desired bindings against the active ones. Stale
// bindings (removed roles and changed specs) are all unsubscribed before
// any new subscription is made, so a role never has two live handlers
// during reconfiguration. Unchanged bindings are left untouched.
//
// A failed subscription leaves that role unbound; all errors are
// collected and joined so one bad topic does not mask the rest.
func (s *subscriptions) apply(desired map[string]topicSpec) error {
	var errs []error

	for role, current := range s.active {
		want, keep := desired[role]
		if keep && want.topic != "" && want.equivalent(current) {
			continue
		}
		if err := s.transport.Unsubscribe(current.topic); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s (%s): %w", current.topic, role, err))
		}
		delete(s.active, role)
	}

	for role, want := range desired {
		if want.topic == "" {
			continue
		}
		if _, bound := s.active[role]; bound {
			continue
		}
		if err := s.transport.Subscribe(want.topic, want.qos, want.handler); err != nil {
			errs = append(errs, fmt.Errorf("subscribe %s (%s): %w", want.topic, role, err))
			continue
		}
		s.active[role] = want
	}

	return errors.Join(errs...)
}

// clear unsubscribes every active binding. Used on entity teardown.
func (s *subscriptions) clear() error {
	var errs []error
	for role, current := range s.active {
		if err := s.transport.Unsubscribe(current.topic); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s (%s): %w", current.topic, role, err))
		}
		delete(s.active, role)
	}
	return errors.Join(errs...)
}

func (s *subscriptions) count() int {
	return len(s.active)
}
