package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"shopanalyst/internal/api"
	"shopanalyst/internal/chat"
	"shopanalyst/internal/config"
	"shopanalyst/internal/store"
	"shopanalyst/internal/utils"
)

const sidebarWidth = 32

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	analystStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	sidebarStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderRight(true).BorderForeground(lipgloss.Color("240")).PaddingRight(1)
)

type model struct {
	cfg    config.Config
	logger *utils.Logger
	client *api.Client
	conv   *chat.Conversation
	dir    *chat.Directory

	width  int
	height int

	urlInput    textinput.Model
	msgInput    textinput.Model
	transcript  viewport.Model
	sessionList list.Model
	spinner     spinner.Model
	keys        keyMap
	help        help.Model
	showHelp    bool

	sidebarFocus     bool
	fetchingSessions bool
	confirmDelete    string
	errText          string

	initCmd tea.Cmd
}

// Run wires the gateway, the persistence store and the conversation core
// together and hands control to the bubbletea event loop.
func Run(cfg config.Config, logger *utils.Logger) error {
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	st, err := store.OpenSQLite(cfg.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	client := api.NewClient(cfg.API.BaseURL, cfg.APITimeout(), logger)
	conv := chat.NewConversation(st, logger)
	dir := chat.NewDirectory()

	urlInput := textinput.New()
	urlInput.Placeholder = "https://your-store.myshopify.com"
	urlInput.Width = 48

	msgInput := textinput.New()
	msgInput.Placeholder = "Ask about your orders, products, or revenue..."
	msgInput.Prompt = "> "

	spin := spinner.New()
	spin.Spinner = spinner.Line
	spin.Style = dimStyle

	delegate := list.NewDefaultDelegate()
	sessionList := list.New([]list.Item{}, delegate, sidebarWidth-2, 0)
	sessionList.SetShowTitle(false)
	sessionList.SetShowStatusBar(false)
	sessionList.SetShowHelp(false)

	m := model{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		conv:        conv,
		dir:         dir,
		urlInput:    urlInput,
		msgInput:    msgInput,
		transcript:  viewport.New(0, 0),
		sessionList: sessionList,
		spinner:     spin,
		keys:        defaultKeyMap,
		help:        help.New(),
	}

	// Pick up where the last run left off; a persisted pair restores the
	// session and kicks off a history load.
	if tok, ok := conv.Resume(); ok {
		m.initCmd = historyCmd(client, tok)
		m.msgInput.Focus()
		logger.Infof("resumed session %s", tok.SessionID())
	} else {
		m.urlInput.Focus()
	}
	m.syncTranscript()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, listSessionsCmd(m.client)}
	if m.initCmd != nil {
		cmds = append(cmds, m.initCmd)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.syncTranscript()
		m.transcript.GotoBottom()

	case sessionCreatedMsg:
		if err := m.conv.FinishStart(msg.tok, msg.sessionID, msg.err); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.errText = ""
		m.urlInput.Blur()
		m.msgInput.Focus()
		m.syncTranscript()
		m.transcript.GotoBottom()
		return m, listSessionsCmd(m.client)

	case chatReplyMsg:
		reply := ""
		if msg.resp != nil {
			reply = msg.resp.Message
		}
		if err := m.conv.FinishSend(msg.tok, reply, msg.err); err != nil {
			m.errText = err.Error()
		} else {
			m.errText = ""
		}
		m.syncTranscript()
		m.transcript.GotoBottom()
		return m, nil

	case historyMsg:
		if err := m.conv.ApplyHistory(msg.tok, msg.records, msg.err); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.syncTranscript()
		m.transcript.GotoBottom()
		return m, nil

	case sessionsMsg:
		m.fetchingSessions = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.dir.Replace(msg.sessions)
		m.sessionList.SetItems(buildSessionItems(m.dir.Sessions()))
		return m, nil

	case sessionDeletedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.dir.Remove(msg.id)
		m.sessionList.SetItems(buildSessionItems(m.dir.Sessions()))
		if msg.id == m.conv.Snapshot().SessionID {
			// The active session is gone server-side; don't leave the
			// UI pointed at it.
			m.startNewChat()
		}
		return m, listSessionsCmd(m.client)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.conv.Snapshot().Loading || m.fetchingSessions {
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Destructive-action safeguard: a pending delete swallows every key
	// until it is confirmed or dismissed.
	if m.confirmDelete != "" {
		switch msg.String() {
		case "y", "enter":
			id := m.confirmDelete
			m.confirmDelete = ""
			return m, deleteSessionCmd(m.client, id)
		case "n", "esc":
			m.confirmDelete = ""
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Focus) {
		m.toggleFocus()
		return m, nil
	}
	if key.Matches(msg, m.keys.NewChat) {
		m.startNewChat()
		return m, nil
	}

	if m.sidebarFocus {
		return m.handleSidebarKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sessionList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.fetchingSessions = true
			return m, tea.Batch(listSessionsCmd(m.client), m.spinner.Tick)
		case key.Matches(msg, m.keys.Delete):
			if item, ok := m.sessionList.SelectedItem().(sessionItem); ok {
				m.confirmDelete = item.data.ID
			}
			return m, nil
		case key.Matches(msg, m.keys.Select):
			item, ok := m.sessionList.SelectedItem().(sessionItem)
			if !ok {
				return m, nil
			}
			tok, ok := m.conv.Switch(item.data.ID, item.data.StoreURL)
			if !ok {
				return m, nil
			}
			m.errText = ""
			m.sidebarFocus = false
			m.urlInput.Blur()
			m.msgInput.Focus()
			m.syncTranscript()
			return m, tea.Batch(historyCmd(m.client, tok), listSessionsCmd(m.client))
		}
	}
	var cmd tea.Cmd
	m.sessionList, cmd = m.sessionList.Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if !m.conv.Snapshot().Active() {
			tok, ok := m.conv.BeginStart(m.urlInput.Value())
			if !ok {
				return m, nil
			}
			m.errText = ""
			return m, tea.Batch(createSessionCmd(m.client, tok, strings.TrimSpace(m.urlInput.Value())), m.spinner.Tick)
		}
		tok, text, ok := m.conv.BeginSend(m.msgInput.Value())
		if !ok {
			return m, nil
		}
		m.errText = ""
		m.msgInput.SetValue("")
		m.syncTranscript()
		m.transcript.GotoBottom()
		return m, tea.Batch(chatCmd(m.client, tok, text), m.spinner.Tick)
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	case "esc":
		m.toggleFocus()
		return m, nil
	}

	var cmd tea.Cmd
	if m.conv.Snapshot().Active() {
		m.msgInput, cmd = m.msgInput.Update(msg)
	} else {
		m.urlInput, cmd = m.urlInput.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	sidebar := m.viewSidebar()
	var main string
	if m.conv.Snapshot().Active() {
		main = m.viewChat()
	} else {
		main = m.viewWelcome()
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
	footer := footerStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
	if m.showHelp {
		footer = footerStyle.Render(m.help.FullHelpView(m.keys.FullHelp()))
	}
	return strings.Join([]string{body, footer}, "\n")
}

func (m model) viewSidebar() string {
	title := headerStyle.Render("Recent Chats")
	if m.sidebarFocus {
		title = headerStyle.Render("Recent Chats") + dimStyle.Render(" ●")
	}
	lines := []string{title, ""}
	if m.dir.Len() == 0 {
		lines = append(lines, dimStyle.Render("No history yet."))
	} else {
		lines = append(lines, m.sessionList.View())
	}
	if m.confirmDelete != "" {
		lines = append(lines, "", confirmStyle.Render("Delete this chat? (y/n)"))
	}
	content := strings.Join(lines, "\n")
	return sidebarStyle.Width(sidebarWidth).Height(m.bodyHeight()).Render(content)
}

func (m model) viewWelcome() string {
	snap := m.conv.Snapshot()
	lines := []string{
		headerStyle.Render("Shopify Analyst AI"),
		dimStyle.Render("Enter your store URL to begin analyzing data."),
		"",
		m.urlInput.View(),
	}
	if snap.Loading {
		lines = append(lines, "", dimStyle.Render(m.spinner.View()+" Starting session..."))
	}
	if m.errText != "" {
		lines = append(lines, "", errStyle.Render(m.errText))
	}
	content := strings.Join(lines, "\n")
	return lipgloss.NewStyle().
		Width(m.mainWidth()).
		Height(m.bodyHeight()).
		Padding(2, 2).
		Render(content)
}

func (m model) viewChat() string {
	snap := m.conv.Snapshot()
	header := headerStyle.Render("Shopify Analyst") + "  " + dimStyle.Render(snap.StoreURL)
	status := ""
	if snap.Loading {
		status = dimStyle.Render(m.spinner.View() + " Analyst is thinking...")
	}
	errLine := ""
	if m.errText != "" {
		errLine = errStyle.Render(m.errText)
	}
	lines := []string{
		header,
		dimStyle.Render(strings.Repeat("─", max(0, m.mainWidth()-2))),
		m.transcript.View(),
		status,
		errLine,
		m.msgInput.View(),
	}
	return lipgloss.NewStyle().
		Width(m.mainWidth()).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (m *model) toggleFocus() {
	m.sidebarFocus = !m.sidebarFocus
	if m.sidebarFocus {
		m.urlInput.Blur()
		m.msgInput.Blur()
		return
	}
	if m.conv.Snapshot().Active() {
		m.msgInput.Focus()
	} else {
		m.urlInput.Focus()
	}
}

func (m *model) startNewChat() {
	m.conv.NewChat()
	m.errText = ""
	m.confirmDelete = ""
	m.sidebarFocus = false
	m.msgInput.Blur()
	m.msgInput.SetValue("")
	m.urlInput.SetValue("")
	m.urlInput.Focus()
	m.syncTranscript()
}

func (m *model) layout() {
	mainWidth := m.mainWidth()
	m.transcript.Width = mainWidth - 2
	m.transcript.Height = max(3, m.bodyHeight()-5)
	m.msgInput.Width = mainWidth - 4
	m.sessionList.SetSize(sidebarWidth-2, max(3, m.bodyHeight()-4))
	m.help.Width = m.width
}

func (m model) mainWidth() int {
	return max(20, m.width-sidebarWidth-2)
}

func (m model) bodyHeight() int {
	return max(6, m.height-2)
}

// syncTranscript rebuilds the viewport content from the conversation
// snapshot. Message bodies are rendered as plain wrapped text; any markdown
// or table markup inside them is left as-is.
func (m *model) syncTranscript() {
	snap := m.conv.Snapshot()
	width := m.transcript.Width
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	for _, msg := range snap.Messages {
		label, style := "Analyst", analystStyle
		if msg.Role == chat.RoleUser {
			label, style = "You", userStyle
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n")
		b.WriteString(ansi.Wrap(msg.Content, width, ""))
		b.WriteString("\n\n")
	}
	m.transcript.SetContent(strings.TrimRight(b.String(), "\n"))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
