package bus

import "time"

// Event is a domain event published on the bus.
//
// Kinds are dot-namespaced: "conn." for connection lifecycle and server
// errors, "wire." for parsed inbound protocol events, "message." for
// synchronization engine results, "session." for state machine transitions.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Kinds published by the core components.
const (
	KindSessionStateChanged = "session.state_changed"

	KindConnConnected    = "conn.connected"
	KindConnDisconnected = "conn.disconnected"
	KindConnReconnecting = "conn.reconnecting"
	KindConnServerError  = "conn.server_error"

	KindWireMessage        = "wire.message"
	KindWireMessageDeleted = "wire.message_deleted"
	KindWirePresence       = "wire.presence"
	KindWireTyping         = "wire.typing"
	KindWireAck            = "wire.ack"

	KindMessageConfirmed = "message.confirmed"
	KindMessagePending   = "message.pending"
	KindMessageFailed    = "message.failed"
	KindMessageDeleted   = "message.deleted"
)
