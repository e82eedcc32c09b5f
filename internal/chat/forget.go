package chat

import "shopanalyst/internal/store"

// ForgetIfActive clears the persisted session pair when it points at id.
// Used after deleting a session outside the TUI, so the next interactive run
// does not resume into a session that no longer exists.
func ForgetIfActive(st store.Store, id string) (bool, error) {
	current, ok, err := st.Get(keySessionID)
	if err != nil {
		return false, err
	}
	if !ok || current != id {
		return false, nil
	}
	if err := st.Delete(keySessionID); err != nil {
		return false, err
	}
	if err := st.Delete(keyStoreURL); err != nil {
		return false, err
	}
	return true, nil
}
