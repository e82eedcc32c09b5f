package api

import "encoding/json"

// Session is one server-tracked conversation context, scoped to a store URL.
// Identity fields are server-assigned and never mutated by the client.
type Session struct {
	ID         string `json:"id"`
	StoreURL   string `json:"store_url"`
	CreatedAt  string `json:"created_at"`
	LastActive string `json:"last_active"`
	Preview    string `json:"preview,omitempty"`
}

// ChatResponse is one completed chat turn. Tables and ThoughtProcess are
// carried through to the presentation layer untouched; the client never
// interprets them.
type ChatResponse struct {
	SessionID      string          `json:"session_id"`
	Message        string          `json:"message"`
	Tables         json.RawMessage `json:"tables,omitempty"`
	ThoughtProcess string          `json:"thought_process,omitempty"`
}

// HistoryMessage is one server-persisted turn in a session's history.
type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type createSessionRequest struct {
	StoreURL string `json:"store_url"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}
