package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/geovannymcode/chatflow-client/internal/bus"
	"github.com/geovannymcode/chatflow-client/internal/conn"
)

type fakeSubscriber struct {
	handlers map[string]conn.Handler
	removed  []string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]conn.Handler)}
}

func (f *fakeSubscriber) Subscribe(eventType string, h conn.Handler) string {
	f.handlers[eventType] = h
	return "sub-" + eventType
}

func (f *fakeSubscriber) Unsubscribe(id string) {
	f.removed = append(f.removed, id)
}

func (f *fakeSubscriber) push(t *testing.T, eventType, payload string) {
	t.Helper()
	h, ok := f.handlers[eventType]
	if !ok {
		t.Fatalf("no handler registered for %s", eventType)
	}
	h(json.RawMessage(payload))
}

func recvEvent(t *testing.T, ch <-chan bus.Event) bus.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bus event")
		return bus.Event{}
	}
}

func TestHandlerRegistersAllTypes(t *testing.T) {
	sub := newFakeSubscriber()
	h := NewHandler(bus.New(), nil)
	h.Attach(sub)

	for _, typ := range []string{TypeNewMessage, TypeMessageDeleted, TypePresence, TypeTyping, TypeMessageAck} {
		if _, ok := sub.handlers[typ]; !ok {
			t.Fatalf("handler not registered for %s", typ)
		}
	}

	h.Detach(sub)
	if len(sub.removed) != 5 {
		t.Fatalf("Detach removed %d subscriptions, want 5", len(sub.removed))
	}
}

func TestHandlerPublishesParsedMessage(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("wire.", 8)
	defer unsub()

	sub := newFakeSubscriber()
	h := NewHandler(b, nil)
	h.Attach(sub)

	sub.push(t, TypeNewMessage, `{"id":"m1","chatId":"c1","sender":{"userId":"u1","username":"ana"},"content":"hola"}`)

	evt := recvEvent(t, ch)
	if evt.Kind != bus.KindWireMessage {
		t.Fatalf("kind = %q", evt.Kind)
	}
	me, ok := evt.Payload.(*MessageEvent)
	if !ok {
		t.Fatalf("payload type %T", evt.Payload)
	}
	if me.Message.ID != "m1" || me.Message.SenderName != "ana" {
		t.Fatalf("unexpected message: %+v", me.Message)
	}
}

func TestHandlerDropsMalformedPayloads(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("wire.", 8)
	defer unsub()

	sub := newFakeSubscriber()
	h := NewHandler(b, nil)
	h.Attach(sub)

	sub.push(t, TypeNewMessage, `{"content":"no ids"}`)
	sub.push(t, TypePresence, `garbage`)
	sub.push(t, TypeTyping, `{"chatId":"c1","userId":"u1","isTyping":true}`)

	evt := recvEvent(t, ch)
	if evt.Kind != bus.KindWireTyping {
		t.Fatalf("expected only the valid typing event, got %q", evt.Kind)
	}
}
