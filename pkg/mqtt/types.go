package mqtt

import (
	"time"
)

type EventKind int

const (
	// EventMessage is an inbound publish on a subscribed topic.
	EventMessage EventKind = iota
	// EventConnected is emitted on every (re)connect.
	EventConnected
	// EventError carries a connection level failure in Err.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventConnected:
		return "connected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind      EventKind
	Topic     string
	Payload   []byte
	Err       error
	Timestamp time.Time
}

type ConnectionState int

const (
	ConnectionStateClosed ConnectionState = iota
	ConnectionStateConnecting
	ConnectionStateConnected
	ConnectionStateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateClosed:
		return "closed"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// QoS levels
const (
	AtMostOnce byte = iota
	AtLeastOnce
	ExactlyOnce
)
