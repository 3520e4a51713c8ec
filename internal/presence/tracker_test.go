package presence

import (
	"context"
	"testing"
	"time"

	"github.com/geovannymcode/chatflow-client/internal/bus"
	"github.com/geovannymcode/chatflow-client/internal/model"
)

func typing(chatID, userID string, on bool) *model.TypingNotification {
	return &model.TypingNotification{ChatID: chatID, UserID: userID, UserName: userID, IsTyping: on}
}

func TestPresenceLastWriteWins(t *testing.T) {
	tr := NewTracker(time.Second)

	tr.UpdatePresence(&model.PresenceNotification{UserID: "u1", Status: model.PresenceOnline})
	tr.UpdatePresence(&model.PresenceNotification{UserID: "u1", Status: model.PresenceAway})

	if got := tr.GetPresence("u1"); got.Status != model.PresenceAway {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestUnknownUserIsOffline(t *testing.T) {
	tr := NewTracker(time.Second)
	if got := tr.GetPresence("stranger"); got.Status != model.PresenceOffline {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestTypingExpires(t *testing.T) {
	tr := NewTracker(50 * time.Millisecond)

	tr.SetTyping(typing("c1", "u1", true))
	if got := tr.TypingUsers("c1"); len(got) != 1 {
		t.Fatalf("typing = %v", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := tr.TypingUsers("c1"); len(got) != 0 {
		t.Fatalf("typing did not expire: %v", got)
	}
}

func TestTypingWindowResetsOnActivity(t *testing.T) {
	tr := NewTracker(80 * time.Millisecond)

	tr.SetTyping(typing("c1", "u1", true))
	time.Sleep(50 * time.Millisecond)
	tr.SetTyping(typing("c1", "u1", true))

	// Past the original window but inside the refreshed one.
	time.Sleep(50 * time.Millisecond)
	if got := tr.TypingUsers("c1"); len(got) != 1 {
		t.Fatalf("refreshed window lost: %v", got)
	}

	time.Sleep(80 * time.Millisecond)
	if got := tr.TypingUsers("c1"); len(got) != 0 {
		t.Fatalf("typing did not expire after refresh: %v", got)
	}
}

func TestSupersededExpiryTimerDoesNotEvict(t *testing.T) {
	tr := NewTracker(time.Minute)
	tr.SetTyping(typing("c1", "u1", true))

	tr.mu.Lock()
	stale := tr.typing["c1"]["u1"]
	tr.mu.Unlock()

	// A fresh typing event replaces the entry. Stop cannot cancel a timer
	// that already fired and is waiting on the mutex, so its callback may
	// still run after the replacement; it must leave the new entry alone.
	tr.SetTyping(typing("c1", "u1", true))

	tr.expire("c1", "u1", stale)

	if got := tr.TypingUsers("c1"); len(got) != 1 {
		t.Fatalf("stale expiry evicted the refreshed entry: %v", got)
	}
}

func TestTypingStopRemovesImmediately(t *testing.T) {
	tr := NewTracker(time.Minute)

	tr.SetTyping(typing("c1", "u1", true))
	tr.SetTyping(typing("c1", "u2", true))
	tr.SetTyping(typing("c1", "u1", false))

	if got := tr.TypingUsers("c1"); len(got) != 1 || got[0] != "u2" {
		t.Fatalf("typing = %v", got)
	}
}

func TestTypingSetsAreIndependentPerChat(t *testing.T) {
	tr := NewTracker(time.Minute)

	tr.SetTyping(typing("c1", "u1", true))
	tr.SetTyping(typing("c2", "u1", true))
	tr.SetTyping(typing("c1", "u1", false))

	if got := tr.TypingUsers("c2"); len(got) != 1 {
		t.Fatalf("c2 typing = %v", got)
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker(time.Minute)
	tr.UpdatePresence(&model.PresenceNotification{UserID: "u1", Status: model.PresenceOnline})
	tr.SetTyping(typing("c1", "u1", true))

	tr.Reset()

	if got := tr.GetPresence("u1"); got.Status != model.PresenceOffline {
		t.Fatalf("presence survived reset: %+v", got)
	}
	if got := tr.TypingUsers("c1"); len(got) != 0 {
		t.Fatalf("typing survived reset: %v", got)
	}
}

func TestStartRoutesBusEvents(t *testing.T) {
	b := bus.New()
	tr := NewTracker(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx, b)

	b.Publish(bus.Event{Kind: bus.KindWirePresence, Timestamp: time.Now(), Payload: &model.PresenceNotification{
		UserID: "u1", Status: model.PresenceOnline,
	}})
	b.Publish(bus.Event{Kind: bus.KindWireTyping, Timestamp: time.Now(), Payload: typing("c1", "u2", true)})

	deadline := time.After(time.Second)
	for {
		if tr.GetPresence("u1").Status == model.PresenceOnline && len(tr.TypingUsers("c1")) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("bus events not applied")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
