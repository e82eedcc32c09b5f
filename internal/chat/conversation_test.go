package chat

import (
	"errors"
	"strings"
	"testing"

	"shopanalyst/internal/api"
	"shopanalyst/internal/store"
)

func newTestConversation(t *testing.T) (*Conversation, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return NewConversation(st, nil), st
}

// startSession drives a successful create-session round trip.
func startSession(t *testing.T, c *Conversation, storeURL, sessionID string) {
	t.Helper()
	tok, ok := c.BeginStart(storeURL)
	if !ok {
		t.Fatalf("BeginStart(%q) rejected", storeURL)
	}
	if err := c.FinishStart(tok, sessionID, nil); err != nil {
		t.Fatalf("FinishStart() error = %v", err)
	}
}

func persistedPair(t *testing.T, st *store.Memory) (string, string) {
	t.Helper()
	sid, _, err := st.Get("session_id")
	if err != nil {
		t.Fatalf("Get(session_id) error = %v", err)
	}
	url, _, err := st.Get("store_url")
	if err != nil {
		t.Fatalf("Get(store_url) error = %v", err)
	}
	return sid, url
}

func TestConversation_StartSession(t *testing.T) {
	c, st := newTestConversation(t)

	startSession(t, c, "https://a.myshopify.com", "S1")

	snap := c.Snapshot()
	if !snap.Active() || snap.SessionID != "S1" {
		t.Errorf("SessionID = %q, want S1", snap.SessionID)
	}
	if snap.Loading {
		t.Error("Loading should be false after FinishStart")
	}
	if len(snap.Messages) != 1 {
		t.Fatalf("got %d messages, want exactly one seeded greeting", len(snap.Messages))
	}
	greeting := snap.Messages[0]
	if greeting.Role != RoleAssistant {
		t.Errorf("greeting role = %q, want assistant", greeting.Role)
	}
	if !strings.Contains(greeting.Content, "https://a.myshopify.com") {
		t.Errorf("greeting %q does not mention the store URL", greeting.Content)
	}

	sid, url := persistedPair(t, st)
	if sid != "S1" || url != "https://a.myshopify.com" {
		t.Errorf("persisted pair = (%q, %q), want (S1, https://a.myshopify.com)", sid, url)
	}
}

func TestConversation_StartSession_Failure(t *testing.T) {
	c, st := newTestConversation(t)

	tok, ok := c.BeginStart("https://a.myshopify.com")
	if !ok {
		t.Fatal("BeginStart rejected")
	}
	err := c.FinishStart(tok, "", errors.New("store not found"))
	if err == nil || err.Error() != "store not found" {
		t.Errorf("FinishStart error = %v, want store not found", err)
	}

	snap := c.Snapshot()
	if snap.Active() {
		t.Error("conversation should stay sessionless after a failed create")
	}
	if snap.Loading {
		t.Error("Loading should be cleared on failure")
	}
	if sid, _ := persistedPair(t, st); sid != "" {
		t.Errorf("nothing should be persisted on failure, got session id %q", sid)
	}
}

func TestConversation_BeginStart_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Conversation)
		url   string
	}{
		{"empty url", func(c *Conversation) {}, ""},
		{"whitespace url", func(c *Conversation) {}, "   "},
		{"already loading", func(c *Conversation) {
			c.BeginStart("https://a.myshopify.com")
		}, "https://b.myshopify.com"},
		{"already active", func(c *Conversation) {
			startSessionQuiet(c, "https://a.myshopify.com", "S1")
		}, "https://b.myshopify.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestConversation(t)
			tt.setup(c)
			before := c.Snapshot()
			if _, ok := c.BeginStart(tt.url); ok {
				t.Fatalf("BeginStart(%q) should be rejected", tt.url)
			}
			after := c.Snapshot()
			if len(after.Messages) != len(before.Messages) || after.Loading != before.Loading {
				t.Error("rejected BeginStart must have no side effects")
			}
		})
	}
}

func startSessionQuiet(c *Conversation, storeURL, sessionID string) {
	tok, _ := c.BeginStart(storeURL)
	_ = c.FinishStart(tok, sessionID, nil)
}

func TestConversation_SendMessage_EmptyIsNoOp(t *testing.T) {
	c, _ := newTestConversation(t)
	startSession(t, c, "https://a.myshopify.com", "S1")

	for _, text := range []string{"", "  ", "\n\t"} {
		if _, _, ok := c.BeginSend(text); ok {
			t.Errorf("BeginSend(%q) should be rejected", text)
		}
	}
	snap := c.Snapshot()
	if len(snap.Messages) != 1 || snap.Loading {
		t.Error("empty sends must leave the message list and loading flag unchanged")
	}
}

func TestConversation_LoadingSerializesSends(t *testing.T) {
	c, _ := newTestConversation(t)
	startSession(t, c, "https://a.myshopify.com", "S1")

	tok, _, ok := c.BeginSend("first")
	if !ok {
		t.Fatal("first BeginSend rejected")
	}
	if _, _, ok := c.BeginSend("second"); ok {
		t.Error("second send must be rejected while one is outstanding")
	}
	if len(c.Snapshot().Messages) != 2 {
		t.Error("rejected send must not append anything")
	}

	if err := c.FinishSend(tok, "done", nil); err != nil {
		t.Fatalf("FinishSend() error = %v", err)
	}
	if _, _, ok := c.BeginSend("second"); !ok {
		t.Error("send should be accepted again once the in-flight turn resolves")
	}
}

func TestConversation_SendMessage_Success(t *testing.T) {
	c, _ := newTestConversation(t)
	startSession(t, c, "https://a.myshopify.com", "S1")

	tok, text, ok := c.BeginSend("total revenue?")
	if !ok {
		t.Fatal("BeginSend rejected")
	}
	if text != "total revenue?" {
		t.Errorf("outbound text = %q", text)
	}
	if err := c.FinishSend(tok, "$500", nil); err != nil {
		t.Fatalf("FinishSend() error = %v", err)
	}

	snap := c.Snapshot()
	if len(snap.Messages) != 3 {
		t.Fatalf("got %d messages, want greeting + user + assistant", len(snap.Messages))
	}
	if snap.Messages[1].Role != RoleUser || snap.Messages[1].Content != "total revenue?" {
		t.Errorf("user turn = %+v", snap.Messages[1])
	}
	if snap.Messages[2].Role != RoleAssistant || snap.Messages[2].Content != "$500" {
		t.Errorf("assistant turn = %+v", snap.Messages[2])
	}
	if snap.Loading {
		t.Error("Loading should be false after the turn resolves")
	}
}

func TestConversation_SendMessage_Failure(t *testing.T) {
	c, _ := newTestConversation(t)
	startSession(t, c, "https://a.myshopify.com", "S1")

	tok, _, _ := c.BeginSend("total revenue?")
	err := c.FinishSend(tok, "", errors.New("Network Error"))
	if err == nil {
		t.Fatal("FinishSend should surface the failure")
	}

	snap := c.Snapshot()
	if len(snap.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(snap.Messages))
	}
	// The user's message is never rolled back, even on failure.
	if snap.Messages[1].Role != RoleUser || snap.Messages[1].Content != "total revenue?" {
		t.Errorf("user turn missing after failure: %+v", snap.Messages[1])
	}
	last := snap.Messages[2]
	if last.Role != RoleAssistant || !strings.Contains(last.Content, "Network Error") {
		t.Errorf("failure turn = %+v, want assistant turn embedding the error", last)
	}
	if snap.Loading {
		t.Error("Loading should be cleared on failure")
	}
}

func TestConversation_NewChat(t *testing.T) {
	c, st := newTestConversation(t)
	startSession(t, c, "https://a.myshopify.com", "S1")
	c.BeginSend("pending question")

	c.NewChat()

	snap := c.Snapshot()
	if snap.Active() || snap.StoreURL != "" || len(snap.Messages) != 0 || snap.Loading {
		t.Errorf("NewChat must fully reset, got %+v", snap)
	}
	sid, url := persistedPair(t, st)
	if sid != "" || url != "" {
		t.Errorf("persisted pair should be removed, got (%q, %q)", sid, url)
	}
}

func TestConversation_StaleSendDiscarded(t *testing.T) {
	c, _ := newTestConversation(t)
	startSession(t, c, "https://a.myshopify.com", "S1")

	tok, _, _ := c.BeginSend("question")
	c.NewChat()

	// The orphaned completion resolves after the reset: it must be a
	// silent no-op, success or failure alike.
	if err := c.FinishSend(tok, "late reply", nil); err != nil {
		t.Errorf("stale success should be discarded silently, got %v", err)
	}
	if err := c.FinishSend(tok, "", errors.New("late failure")); err != nil {
		t.Errorf("stale failure should be discarded silently, got %v", err)
	}
	if snap := c.Snapshot(); len(snap.Messages) != 0 || snap.Active() {
		t.Errorf("stale completions mutated state: %+v", snap)
	}
}

func TestConversation_StaleHistoryDiscarded(t *testing.T) {
	c, _ := newTestConversation(t)
	tok, ok := c.Switch("S1", "https://a.myshopify.com")
	if !ok {
		t.Fatal("Switch rejected")
	}
	// Switching away invalidates the earlier load, even back to a
	// different id and again: generation, not session id, is the guard.
	c.Switch("S2", "https://b.myshopify.com")

	records := []api.HistoryMessage{{Role: "user", Content: "old", Timestamp: "t1"}}
	if err := c.ApplyHistory(tok, records, nil); err != nil {
		t.Errorf("stale history should be discarded silently, got %v", err)
	}
	if len(c.Snapshot().Messages) != 0 {
		t.Error("stale history must not replace the transcript")
	}
}

func TestConversation_ApplyHistory(t *testing.T) {
	c, _ := newTestConversation(t)
	tok, _ := c.Switch("S1", "https://a.myshopify.com")

	records := []api.HistoryMessage{
		{Role: "user", Content: "hello", Timestamp: "2024-05-01T10:00:00Z"},
		{Role: "assistant", Content: "hi", Timestamp: ""},
		{Role: "assistant", Content: "more", Timestamp: ""},
	}
	if err := c.ApplyHistory(tok, records, nil); err != nil {
		t.Fatalf("ApplyHistory() error = %v", err)
	}

	snap := c.Snapshot()
	if len(snap.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(snap.Messages))
	}
	if snap.Messages[0].ID != "2024-05-01T10:00:00Z" {
		t.Errorf("message id = %q, want the server timestamp", snap.Messages[0].ID)
	}
	// Records without timestamps get generated ids, and they must not
	// collide.
	if snap.Messages[1].ID == "" || snap.Messages[1].ID == snap.Messages[2].ID {
		t.Errorf("fallback ids not unique: %q vs %q", snap.Messages[1].ID, snap.Messages[2].ID)
	}
}

func TestConversation_HistoryFailureKeepsMessages(t *testing.T) {
	c, _ := newTestConversation(t)
	startSession(t, c, "https://a.myshopify.com", "S1")
	tok, _, _ := c.BeginSend("question")
	c.FinishSend(tok, "answer", nil)
	before := c.Snapshot()

	htok, ok := c.BeginHistory()
	if !ok {
		t.Fatal("BeginHistory rejected")
	}
	err := c.ApplyHistory(htok, nil, errors.New("timeout"))
	if err == nil {
		t.Fatal("ApplyHistory should surface the failure")
	}

	after := c.Snapshot()
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("failed reload changed the transcript: %d -> %d messages", len(before.Messages), len(after.Messages))
	}
	for i := range after.Messages {
		if after.Messages[i] != before.Messages[i] {
			t.Errorf("message %d changed on failed reload", i)
		}
	}
}

func TestConversation_Switch(t *testing.T) {
	c, st := newTestConversation(t)

	if _, ok := c.Switch("", "https://a.myshopify.com"); ok {
		t.Error("Switch with empty session id must be rejected")
	}

	tok, ok := c.Switch("S9", "https://b.myshopify.com")
	if !ok {
		t.Fatal("Switch rejected")
	}
	if tok.SessionID() != "S9" {
		t.Errorf("token session = %q, want S9", tok.SessionID())
	}
	snap := c.Snapshot()
	if snap.SessionID != "S9" || snap.StoreURL != "https://b.myshopify.com" {
		t.Errorf("state after switch = %+v", snap)
	}
	sid, url := persistedPair(t, st)
	if sid != "S9" || url != "https://b.myshopify.com" {
		t.Errorf("persisted pair = (%q, %q)", sid, url)
	}
}

func TestConversation_Resume(t *testing.T) {
	st := store.NewMemory()
	st.Set("session_id", "S1")
	st.Set("store_url", "https://a.myshopify.com")

	c := NewConversation(st, nil)
	tok, ok := c.Resume()
	if !ok {
		t.Fatal("Resume should succeed with a full persisted pair")
	}
	if tok.SessionID() != "S1" {
		t.Errorf("token session = %q, want S1", tok.SessionID())
	}
	snap := c.Snapshot()
	if snap.SessionID != "S1" || snap.StoreURL != "https://a.myshopify.com" {
		t.Errorf("state after resume = %+v", snap)
	}
}

func TestConversation_Resume_PartialPair(t *testing.T) {
	st := store.NewMemory()
	st.Set("session_id", "S1") // store_url missing

	c := NewConversation(st, nil)
	if _, ok := c.Resume(); ok {
		t.Error("Resume with half a pair must stay sessionless")
	}
	if c.Snapshot().Active() {
		t.Error("conversation should be sessionless")
	}
}

func TestForgetIfActive(t *testing.T) {
	st := store.NewMemory()
	st.Set("session_id", "S1")
	st.Set("store_url", "https://a.myshopify.com")

	cleared, err := ForgetIfActive(st, "S2")
	if err != nil || cleared {
		t.Errorf("ForgetIfActive(S2) = (%v, %v), want no-op", cleared, err)
	}

	cleared, err = ForgetIfActive(st, "S1")
	if err != nil || !cleared {
		t.Fatalf("ForgetIfActive(S1) = (%v, %v), want cleared", cleared, err)
	}
	if sid, ok, _ := st.Get("session_id"); ok {
		t.Errorf("session id still persisted: %q", sid)
	}
	if url, ok, _ := st.Get("store_url"); ok {
		t.Errorf("store url still persisted: %q", url)
	}
}
