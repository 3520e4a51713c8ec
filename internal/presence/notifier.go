package presence

import (
	"sync"
	"time"

	"github.com/geovannymcode/chatflow-client/internal/wire"
)

// Sender is the slice of the connection manager the notifier writes through.
type Sender interface {
	Send(eventType string, payload any)
}

// Notifier debounces the local user's outbound typing signals. A start is
// re-emitted only when the previous one is older than the window; the stop
// timer is re-armed on every keystroke so sustained typing produces a single
// start and a single trailing stop.
type Notifier struct {
	mu         sync.Mutex
	sender     Sender
	window     time.Duration
	lastStart  map[string]time.Time
	stopTimers map[string]*stopEntry
}

// stopEntry is the armed trailing-stop handle for one chat. The callback
// holds the entry and emits only while it still owns the chat's slot, so a
// timer that fired just as a keystroke re-armed it stays silent.
type stopEntry struct {
	timer *time.Timer
}

func NewNotifier(sender Sender, window time.Duration) *Notifier {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &Notifier{
		sender:     sender,
		window:     window,
		lastStart:  make(map[string]time.Time),
		stopTimers: make(map[string]*stopEntry),
	}
}

// Typing records local keyboard activity for the chat.
func (n *Notifier) Typing(chatID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	if last, ok := n.lastStart[chatID]; !ok || now.Sub(last) >= n.window {
		n.sender.Send(wire.TypeTyping, wire.TypingPayload{ChatID: chatID, IsTyping: true})
		n.lastStart[chatID] = now
	}

	if e, ok := n.stopTimers[chatID]; ok {
		e.timer.Stop()
	}
	entry := &stopEntry{}
	entry.timer = time.AfterFunc(n.window, func() {
		n.emitStop(chatID, entry)
	})
	n.stopTimers[chatID] = entry
}

// StopTyping emits an immediate stop, canceling the pending trailing one.
func (n *Notifier) StopTyping(chatID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	e, armed := n.stopTimers[chatID]
	if armed {
		e.timer.Stop()
		delete(n.stopTimers, chatID)
	}
	if _, signaled := n.lastStart[chatID]; !signaled && !armed {
		return
	}
	delete(n.lastStart, chatID)
	n.sender.Send(wire.TypeTyping, wire.TypingPayload{ChatID: chatID, IsTyping: false})
}

// emitStop fires the trailing stop, but only if the entry still owns the
// chat's slot. A keystroke that re-armed the timer after it fired has
// already replaced the entry and must keep the signal alive.
func (n *Notifier) emitStop(chatID string, entry *stopEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopTimers[chatID] != entry {
		return
	}
	delete(n.stopTimers, chatID)
	delete(n.lastStart, chatID)
	n.sender.Send(wire.TypeTyping, wire.TypingPayload{ChatID: chatID, IsTyping: false})
}
