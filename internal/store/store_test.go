package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/geovannymcode/chatflow-client/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must report no change.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestUpsertMessageIdempotent(t *testing.T) {
	db := testDB(t)

	m := &model.Message{
		ID: "m1", ChatID: "c1", SenderID: "u1", SenderName: "Alice",
		Content: "v1", Type: model.MessageText, CreatedAt: time.UnixMilli(1000),
	}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	m.Content = "v2"
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1", time.Time{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent)", len(msgs))
	}
	if msgs[0].Content != "v2" {
		t.Errorf("content = %q, want v2 (updated)", msgs[0].Content)
	}
}

func TestListMessagesKeysetPagination(t *testing.T) {
	db := testDB(t)

	for i, ts := range []int64{1000, 2000, 3000} {
		m := &model.Message{
			ID: string(rune('a' + i)), ChatID: "c1", Content: "msg",
			Type: model.MessageText, CreatedAt: time.UnixMilli(ts),
		}
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	// Newest first.
	msgs, err := db.ListMessages("c1", time.Time{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 || msgs[0].CreatedAt.UnixMilli() != 3000 {
		t.Fatalf("got %d messages, first at %v; want 3, newest first", len(msgs), msgs[0].CreatedAt)
	}

	// Strictly older than the oldest of the first page.
	older, err := db.ListMessages("c1", time.UnixMilli(2000), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 1 || older[0].CreatedAt.UnixMilli() != 1000 {
		t.Errorf("got %d older messages, want exactly the 1000ms one", len(older))
	}
}

func TestMarkMessageDeleted(t *testing.T) {
	db := testDB(t)

	m := &model.Message{ID: "m1", ChatID: "c1", Content: "secret", Type: model.MessageText, CreatedAt: time.UnixMilli(1000)}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkMessageDeleted("m1"); err != nil {
		t.Fatal(err)
	}

	msgs, _ := db.ListMessages("c1", time.Time{}, 10)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !msgs[0].IsDeleted || msgs[0].Content != "" {
		t.Errorf("message = %+v, want deleted with blank content", msgs[0])
	}
}

func TestChatUpsertAndOrdering(t *testing.T) {
	db := testDB(t)

	chats := []*model.Chat{
		{ID: "c1", Name: "One", Type: model.ChatDirect, LastMessageAt: time.UnixMilli(1000)},
		{ID: "c2", Name: "Two", Type: model.ChatGroup, LastMessageAt: time.UnixMilli(3000)},
		{ID: "c3", Name: "Empty", Type: model.ChatDirect},
	}
	for _, c := range chats {
		if err := db.UpsertChat(c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListChats(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d chats, want 3", len(got))
	}
	if got[0].ID != "c2" || got[1].ID != "c1" || got[2].ID != "c3" {
		t.Errorf("order = %s,%s,%s; want c2,c1,c3 (no-message chat last)", got[0].ID, got[1].ID, got[2].ID)
	}
}

// TestChatPreviewNeverRegresses verifies that a stale history page cannot
// move a chat's preview backwards in time.
func TestChatPreviewNeverRegresses(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertChat(&model.Chat{ID: "c1", LastMessageAt: time.UnixMilli(5000), LastMessagePreview: "newest"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertChat(&model.Chat{ID: "c1", LastMessageAt: time.UnixMilli(1000), LastMessagePreview: "old"}); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetChat("c1")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil {
		t.Fatal("chat not found")
	}
	if c.LastMessagePreview != "newest" || c.LastMessageAt.UnixMilli() != 5000 {
		t.Errorf("preview = %q at %v, want newest at 5000", c.LastMessagePreview, c.LastMessageAt)
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	db := testDB(t)

	tok, err := db.AccessToken()
	if err != nil {
		t.Fatal(err)
	}
	if tok != "" {
		t.Errorf("fresh db access token = %q, want empty", tok)
	}

	if err := db.SetTokens("acc-1", "ref-1"); err != nil {
		t.Fatal(err)
	}
	tok, _ = db.AccessToken()
	ref, _ := db.RefreshToken()
	if tok != "acc-1" || ref != "ref-1" {
		t.Errorf("tokens = %q/%q, want acc-1/ref-1", tok, ref)
	}

	// Overwrite is last-write-wins.
	if err := db.SetTokens("acc-2", "ref-2"); err != nil {
		t.Fatal(err)
	}
	tok, _ = db.AccessToken()
	if tok != "acc-2" {
		t.Errorf("token after overwrite = %q, want acc-2", tok)
	}

	if err := db.ClearTokens(); err != nil {
		t.Fatal(err)
	}
	tok, _ = db.AccessToken()
	if tok != "" {
		t.Errorf("token after clear = %q, want empty", tok)
	}
}
