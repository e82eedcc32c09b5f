package chat

// Role identifies which side of the conversation a message belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the visible transcript. Content is opaque text; any
// embedded markup is the presentation layer's problem.
type Message struct {
	ID      string
	Role    Role
	Content string
	// IsStreaming is reserved. The turn protocol is request/response, so
	// nothing sets it today.
	IsStreaming bool
}

// State is the conversation snapshot handed to the presentation layer.
// SessionID is empty exactly when the UI is in the store-URL entry state;
// Messages are only meaningful while SessionID is set.
type State struct {
	StoreURL  string
	SessionID string
	Messages  []Message
	Loading   bool
}

// Active reports whether a session is attached.
func (s State) Active() bool { return s.SessionID != "" }

// Token ties an in-flight gateway call to the conversation identity it was
// issued under. Completions presenting a stale token are discarded, so a
// reply that races a new-chat or session switch can never corrupt the
// superseding state.
type Token struct {
	gen       uint64
	sessionID string
}

// SessionID returns the session the operation was issued for.
func (t Token) SessionID() string { return t.sessionID }
