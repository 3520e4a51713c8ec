package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticTokens string

func (s staticTokens) AccessToken() (string, error) { return string(s), nil }

func TestListMessagesFlattensAndPages(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"m2","chatId":"c1","sender":{"userId":"u1","username":"ana"},"content":"b"},
			{"id":"m1","chatId":"c1","senderId":"u2","content":"a"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok-123"), nil)
	items, hasMore, err := c.ListMessages(context.Background(), "c1", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPath != "/api/chats/c1/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery != "limit=2&offset=0" {
		t.Fatalf("query = %q", gotQuery)
	}
	if len(items) != 2 || items[0].SenderName != "ana" || items[1].SenderID != "u2" {
		t.Fatalf("items = %+v", items)
	}
	if !hasMore {
		t.Fatal("full page should report more")
	}
}

func TestListMessagesShortPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"m1","chatId":"c1","content":"a"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens(""), nil)
	_, hasMore, err := c.ListMessages(context.Background(), "c1", 0, 50)
	if err != nil {
		t.Fatal(err)
	}
	if hasMore {
		t.Fatal("short page should report no more")
	}
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"not a participant"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	err := c.DeleteMessage(context.Background(), "c1", "m1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != "not a participant" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestDeleteMessageUsesDeleteVerb(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	if err := c.DeleteMessage(context.Background(), "c1", "m1"); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/chats/c1/messages/m1" {
		t.Fatalf("%s %s", gotMethod, gotPath)
	}
}

func TestCreateDirectChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chats/direct" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id":"c9","name":"ana","type":"DIRECT","otherParticipantId":"u1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	chat, err := c.CreateDirectChat(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if chat.ID != "c9" || chat.OtherParticipantID != "u1" {
		t.Fatalf("chat = %+v", chat)
	}
}

func TestListChats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"c1","name":"ops","type":"GROUP","participantCount":4,"lastMessageAt":"2026-08-29T10:00:00Z"},
			{"id":"c2","type":"DIRECT"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	chats, hasMore, err := c.ListChats(context.Background(), 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 || chats[0].ParticipantCount != 4 || chats[0].LastMessageAt.IsZero() {
		t.Fatalf("chats = %+v", chats)
	}
	if !hasMore {
		t.Fatal("full page should report more")
	}
}
