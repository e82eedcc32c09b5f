package chat

import (
	"fmt"
	"strings"

	"shopanalyst/internal/api"
)

// Directory holds the sidebar's list of known sessions. It is always
// refreshed by a full re-fetch from the gateway rather than patched in
// place; the extra round-trip buys list/server consistency for free. The
// list here and the Conversation's state are separate data, only reconciled
// by re-fetching after a create, switch or delete.
type Directory struct {
	sessions []api.Session
}

func NewDirectory() *Directory {
	return &Directory{}
}

// Replace swaps in a freshly fetched list, preserving server order.
func (d *Directory) Replace(sessions []api.Session) {
	d.sessions = make([]api.Session, len(sessions))
	copy(d.sessions, sessions)
}

// Sessions returns a copy of the current list.
func (d *Directory) Sessions() []api.Session {
	out := make([]api.Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// Remove drops one entry after a confirmed, successful server-side delete.
// On a failed delete the caller must not call Remove; the list stays as-is.
func (d *Directory) Remove(id string) {
	kept := d.sessions[:0]
	for _, s := range d.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	d.sessions = kept
}

func (d *Directory) Len() int { return len(d.sessions) }

// Label derives the display name for a session from its store URL. It is a
// pure function of the list snapshot, computed at render time and never
// stored; position-based fallbacks are unstable under concurrent
// insertion/deletion, which is an accepted display-only limitation.
func Label(s api.Session, position int) string {
	name := strings.TrimPrefix(s.StoreURL, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.TrimSuffix(name, "/")
	name = strings.TrimSuffix(name, ".myshopify.com")
	if name == "" {
		return fmt.Sprintf("Analysis #%d", position+1)
	}
	return name
}
