package mqtt

import "errors"

// Sentinel errors returned by the client. Wrap sites add topic and
// operation context; callers match with errors.Is.
var (
	// ErrNotConnected is returned when an operation needs a live broker
	// session and none is established.
	ErrNotConnected = errors.New("mqtt: no broker connection")

	// ErrConnectionFailed is returned when the initial broker handshake
	// does not complete.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed is returned when the broker does not accept a
	// published message.
	ErrPublishFailed = errors.New("mqtt: publish rejected")

	// ErrSubscribeFailed is returned when a topic subscription is not
	// granted.
	ErrSubscribeFailed = errors.New("mqtt: subscribe rejected")

	// ErrUnsubscribeFailed is returned when a topic unsubscribe is not
	// acknowledged.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe rejected")

	// ErrInvalidQoS is returned for QoS levels outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1, or 2")

	// ErrInvalidTopic is returned for an empty topic string.
	ErrInvalidTopic = errors.New("mqtt: empty topic")

	// ErrTimeout is returned when a broker operation exceeds its
	// deadline.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
