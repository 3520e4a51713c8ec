package wire

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/geovannymcode/chatflow-client/internal/bus"
	"github.com/geovannymcode/chatflow-client/internal/conn"
)

// Subscriber is the slice of the connection manager the handler needs.
type Subscriber interface {
	Subscribe(eventType string, h conn.Handler) string
	Unsubscribe(id string)
}

// Handler subscribes to the recognized inbound frame types, parses their
// payloads, and republishes them as typed "wire." bus events. It does NOT
// call the sync engine directly; the engine subscribes to the bus
// independently.
type Handler struct {
	bus    *bus.Bus
	logger *zap.Logger
	subIDs []string
}

// NewHandler creates a protocol event handler.
func NewHandler(b *bus.Bus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{bus: b, logger: logger}
}

// Attach registers the handler on the connection manager's registry.
// Registration is connection-state independent and survives reconnects.
func (h *Handler) Attach(sub Subscriber) {
	h.subIDs = append(h.subIDs,
		sub.Subscribe(TypeNewMessage, h.handleMessage),
		sub.Subscribe(TypeMessageDeleted, h.handleDeleted),
		sub.Subscribe(TypePresence, h.handlePresence),
		sub.Subscribe(TypeTyping, h.handleTyping),
		sub.Subscribe(TypeMessageAck, h.handleAck),
	)
}

// Detach removes all registrations.
func (h *Handler) Detach(sub Subscriber) {
	for _, id := range h.subIDs {
		sub.Unsubscribe(id)
	}
	h.subIDs = nil
}

func (h *Handler) handleMessage(payload json.RawMessage) {
	evt, err := ParseMessage(payload)
	if err != nil {
		h.logger.Warn("bad message payload", zap.Error(err))
		return
	}
	h.bus.Publish(bus.Event{Kind: bus.KindWireMessage, Timestamp: time.Now(), Payload: evt})
}

func (h *Handler) handleDeleted(payload json.RawMessage) {
	evt, err := ParseDeleted(payload)
	if err != nil {
		h.logger.Warn("bad deleted payload", zap.Error(err))
		return
	}
	h.bus.Publish(bus.Event{Kind: bus.KindWireMessageDeleted, Timestamp: time.Now(), Payload: evt})
}

func (h *Handler) handlePresence(payload json.RawMessage) {
	evt, err := ParsePresence(payload)
	if err != nil {
		h.logger.Warn("bad presence payload", zap.Error(err))
		return
	}
	h.bus.Publish(bus.Event{Kind: bus.KindWirePresence, Timestamp: time.Now(), Payload: evt})
}

func (h *Handler) handleTyping(payload json.RawMessage) {
	evt, err := ParseTyping(payload)
	if err != nil {
		h.logger.Warn("bad typing payload", zap.Error(err))
		return
	}
	h.bus.Publish(bus.Event{Kind: bus.KindWireTyping, Timestamp: time.Now(), Payload: evt})
}

func (h *Handler) handleAck(payload json.RawMessage) {
	evt, err := ParseAck(payload)
	if err != nil {
		h.logger.Warn("bad ack payload", zap.Error(err))
		return
	}
	h.bus.Publish(bus.Event{Kind: bus.KindWireAck, Timestamp: time.Now(), Payload: evt})
}
