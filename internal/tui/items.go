package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"shopanalyst/internal/api"
	"shopanalyst/internal/chat"
)

type sessionItem struct {
	data     api.Session
	position int
}

func (i sessionItem) Title() string { return chat.Label(i.data, i.position) }

func (i sessionItem) Description() string {
	parts := []string{formatLastActive(i.data.LastActive)}
	if i.data.Preview != "" {
		parts = append(parts, previewText(i.data.Preview, 40))
	}
	return strings.Join(parts, " · ")
}

func (i sessionItem) FilterValue() string { return i.data.StoreURL + " " + i.data.ID }

func buildSessionItems(in []api.Session) []list.Item {
	items := make([]list.Item, 0, len(in))
	for pos, s := range in {
		items = append(items, sessionItem{data: s, position: pos})
	}
	return items
}

func formatLastActive(raw string) string {
	if raw == "" {
		return "never"
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Local().Format("Jan 2 15:04")
}

func previewText(text string, limit int) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\n", " ")
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
