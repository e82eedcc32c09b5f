package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"shopanalyst/internal/api"
	"shopanalyst/internal/chat"
)

// Completion messages carry the token their call was issued under so the
// conversation can drop results that arrive after a new-chat or switch.

type sessionCreatedMsg struct {
	tok       chat.Token
	sessionID string
	err       error
}

type chatReplyMsg struct {
	tok  chat.Token
	resp *api.ChatResponse
	err  error
}

type historyMsg struct {
	tok     chat.Token
	records []api.HistoryMessage
	err     error
}

type sessionsMsg struct {
	sessions []api.Session
	err      error
}

type sessionDeletedMsg struct {
	id  string
	err error
}

func createSessionCmd(client *api.Client, tok chat.Token, storeURL string) tea.Cmd {
	return func() tea.Msg {
		id, err := client.CreateSession(context.Background(), storeURL)
		return sessionCreatedMsg{tok: tok, sessionID: id, err: err}
	}
}

func chatCmd(client *api.Client, tok chat.Token, text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Chat(context.Background(), tok.SessionID(), text)
		return chatReplyMsg{tok: tok, resp: resp, err: err}
	}
}

func historyCmd(client *api.Client, tok chat.Token) tea.Cmd {
	return func() tea.Msg {
		records, err := client.History(context.Background(), tok.SessionID())
		return historyMsg{tok: tok, records: records, err: err}
	}
}

func listSessionsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		sessions, err := client.ListSessions(context.Background())
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func deleteSessionCmd(client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		err := client.DeleteSession(context.Background(), id)
		return sessionDeletedMsg{id: id, err: err}
	}
}
