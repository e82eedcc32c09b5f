package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"shopanalyst/internal/api"
	"shopanalyst/internal/store"
	"shopanalyst/internal/utils"
)

// Persistence keys, always written and removed as a pair.
const (
	keySessionID = "session_id"
	keyStoreURL  = "store_url"
)

// Conversation is the state machine behind the chat screen. It owns the
// active session identity, the transcript and the loading flag, and it is
// the only writer of all three.
//
// Callers drive it in two phases: a Begin* method validates an intent,
// applies any optimistic mutation and hands back a Token; once the gateway
// call resolves, the matching Finish*/Apply* method applies the outcome.
// All methods must be called from a single goroutine (the bubbletea update
// loop in the TUI); the event loop is the serialization mechanism.
type Conversation struct {
	store  store.Store
	logger *utils.Logger

	state State
	gen   uint64
}

func NewConversation(st store.Store, logger *utils.Logger) *Conversation {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Conversation{store: st, logger: logger}
}

// Snapshot returns a copy of the current state for rendering.
func (c *Conversation) Snapshot() State {
	out := c.state
	out.Messages = make([]Message, len(c.state.Messages))
	copy(out.Messages, c.state.Messages)
	return out
}

// BeginStart validates a start-session intent for storeURL and marks the
// conversation loading. It is rejected (returning ok=false) when the URL is
// blank, a session is already attached, or another create/send is in flight.
func (c *Conversation) BeginStart(storeURL string) (Token, bool) {
	if strings.TrimSpace(storeURL) == "" || c.state.Active() || c.state.Loading {
		return Token{}, false
	}
	c.state.StoreURL = storeURL
	c.state.Loading = true
	return c.token(), true
}

// FinishStart applies the outcome of the create-session call issued under
// tok. On success the conversation becomes active, the transcript is seeded
// with the greeting and the session pair is persisted. On failure the
// conversation stays sessionless and the gateway's message is returned for
// display. Stale tokens are discarded silently.
func (c *Conversation) FinishStart(tok Token, sessionID string, err error) error {
	if !c.current(tok) {
		c.logger.Debugf("discarding stale create-session result")
		return nil
	}
	c.state.Loading = false
	if err != nil {
		return err
	}
	c.state.SessionID = sessionID
	c.state.Messages = []Message{greeting(c.state.StoreURL)}
	c.gen++
	c.persistPair()
	return nil
}

// Switch repoints the conversation at an existing session. Identity fields
// change and persist immediately; the caller is expected to follow up with a
// history load using the returned token. Any in-flight operation from the
// previous identity becomes stale.
func (c *Conversation) Switch(sessionID, storeURL string) (Token, bool) {
	if strings.TrimSpace(sessionID) == "" {
		return Token{}, false
	}
	c.state.SessionID = sessionID
	c.state.StoreURL = storeURL
	c.state.Loading = false
	c.gen++
	c.persistPair()
	return c.token(), true
}

// Resume restores the persisted session at startup. It behaves like Switch
// except nothing is re-persisted; with no (or a partial) persisted pair the
// conversation stays sessionless.
func (c *Conversation) Resume() (Token, bool) {
	sessionID, ok, err := c.store.Get(keySessionID)
	if err != nil {
		c.logger.Warnf("failed to read persisted session: %v", err)
		return Token{}, false
	}
	storeURL, ok2, err := c.store.Get(keyStoreURL)
	if err != nil {
		c.logger.Warnf("failed to read persisted store url: %v", err)
		return Token{}, false
	}
	if !ok || !ok2 || sessionID == "" || storeURL == "" {
		return Token{}, false
	}
	c.state.SessionID = sessionID
	c.state.StoreURL = storeURL
	c.gen++
	return c.token(), true
}

// BeginHistory issues a token for reloading the active session's history.
// History loads do not touch the loading flag; they may overlap a send.
func (c *Conversation) BeginHistory() (Token, bool) {
	if !c.state.Active() {
		return Token{}, false
	}
	return c.token(), true
}

// ApplyHistory replaces the transcript wholesale with the server's log.
// Record ids come from the server timestamp, with a generated fallback so
// list keys stay unique. On failure the existing (possibly stale) transcript
// is deliberately left alone: the likely cause is a transient network error,
// not an invalid session.
func (c *Conversation) ApplyHistory(tok Token, records []api.HistoryMessage, err error) error {
	if !c.current(tok) {
		c.logger.Debugf("discarding stale history for session %s", tok.SessionID())
		return nil
	}
	if err != nil {
		return err
	}
	messages := make([]Message, 0, len(records))
	for _, r := range records {
		id := r.Timestamp
		if id == "" {
			id = uuid.NewString()
		}
		messages = append(messages, Message{ID: id, Role: Role(r.Role), Content: r.Content})
	}
	c.state.Messages = messages
	return nil
}

// BeginSend validates a send intent and optimistically appends the user's
// message before any network activity. Rejected when the trimmed text is
// empty, no session is attached, or another create/send is in flight. The
// returned text is what must go over the wire.
func (c *Conversation) BeginSend(text string) (Token, string, bool) {
	if strings.TrimSpace(text) == "" || !c.state.Active() || c.state.Loading {
		return Token{}, "", false
	}
	c.state.Messages = append(c.state.Messages, Message{
		ID:      utils.NewID("msg"),
		Role:    RoleUser,
		Content: text,
	})
	c.state.Loading = true
	return c.token(), text, true
}

// FinishSend applies a chat turn's outcome. Success appends the analyst's
// reply. Failure appends a synthesized assistant turn embedding the error so
// the failure stays visible in the transcript, and the error is also
// returned for the notification channel. The optimistic user message is
// never rolled back; sent text must not silently vanish.
func (c *Conversation) FinishSend(tok Token, reply string, err error) error {
	if !c.current(tok) {
		c.logger.Debugf("discarding stale reply for session %s", tok.SessionID())
		return nil
	}
	c.state.Loading = false
	if err != nil {
		c.state.Messages = append(c.state.Messages, Message{
			ID:      utils.NewID("msg"),
			Role:    RoleAssistant,
			Content: fmt.Sprintf("Error: %s. Please check backend logs.", err.Error()),
		})
		return err
	}
	c.state.Messages = append(c.state.Messages, Message{
		ID:      utils.NewID("msg"),
		Role:    RoleAssistant,
		Content: reply,
	})
	return nil
}

// NewChat unconditionally resets to the sessionless state and clears the
// persisted pair. Safe at any time, including with a call in flight; the
// orphaned completion will present a stale token and be dropped.
func (c *Conversation) NewChat() {
	c.state = State{}
	c.gen++
	c.clearPair()
}

func (c *Conversation) current(tok Token) bool { return tok.gen == c.gen }

func (c *Conversation) token() Token {
	return Token{gen: c.gen, sessionID: c.state.SessionID}
}

func (c *Conversation) persistPair() {
	if err := c.store.Set(keySessionID, c.state.SessionID); err != nil {
		c.logger.Warnf("failed to persist session id: %v", err)
	}
	if err := c.store.Set(keyStoreURL, c.state.StoreURL); err != nil {
		c.logger.Warnf("failed to persist store url: %v", err)
	}
}

func (c *Conversation) clearPair() {
	if err := c.store.Delete(keySessionID); err != nil {
		c.logger.Warnf("failed to clear session id: %v", err)
	}
	if err := c.store.Delete(keyStoreURL); err != nil {
		c.logger.Warnf("failed to clear store url: %v", err)
	}
}

func greeting(storeURL string) Message {
	return Message{
		ID:      "init",
		Role:    RoleAssistant,
		Content: fmt.Sprintf("Connected to %s. I'm ready to analyze your shopify data. How can I help you?", storeURL),
	}
}
