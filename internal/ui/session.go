package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/edumesh/liveclass/internal/peer"
	"github.com/edumesh/liveclass/internal/presence"
	"github.com/edumesh/liveclass/internal/room"
)

const chatLogLines = 8

// SessionModel is the interactive in-room view: participant table, chat log
// and the keybindings driving the orchestrator.
type SessionModel struct {
	orc  *room.Orchestrator
	self room.Identity

	input textinput.Model
	spin  spinner.Model

	participants map[string]presence.Record
	states       map[string]peer.State
	chatLog      []string

	selected int
	chatting bool
	kicked   bool
	width    int
}

type eventMsg struct{ ev room.Event }

// NewSession builds the session model around a joined orchestrator.
func NewSession(orc *room.Orchestrator, self room.Identity) SessionModel {
	input := textinput.New()
	input.Placeholder = "Say something..."
	input.CharLimit = 500
	input.Prompt = ChatNameStyle.Render("> ")

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return SessionModel{
		orc:          orc,
		self:         self,
		input:        input,
		spin:         s,
		participants: orc.Participants(),
		states:       orc.PeerStates(),
	}
}

// Kicked reports whether the session ended because the host removed us.
func (m SessionModel) Kicked() bool { return m.kicked }

func (m SessionModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitEvent())
}

// waitEvent blocks on the orchestrator's event stream and feeds it into the
// bubbletea loop one message at a time.
func (m SessionModel) waitEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.orc.Events()
		if !ok {
			return nil
		}
		return eventMsg{ev: ev}
	}
}

func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case eventMsg:
		return m.handleEvent(msg.ev)

	case tea.KeyMsg:
		if m.chatting {
			return m.updateChatInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m SessionModel) handleEvent(ev room.Event) (tea.Model, tea.Cmd) {
	switch ev := ev.(type) {
	case room.ParticipantsEvent:
		m.participants = ev.Records
		if n := len(m.participants); m.selected >= n && n > 0 {
			m.selected = n - 1
		}

	case room.PeerStateEvent:
		if m.states == nil {
			m.states = make(map[string]peer.State)
		}
		m.states[ev.PeerID] = ev.State

	case room.RemoteTrackEvent:
		m.appendLog(MutedStyle.Render(fmt.Sprintf("receiving %s from %s", ev.Kind, m.displayName(ev.PeerID))))

	case room.ChatEvent:
		line := fmt.Sprintf("%s %s %s",
			MutedStyle.Render(ev.Message.SentAt.Local().Format("15:04")),
			ChatNameStyle.Render(ev.Message.Name+":"),
			ev.Message.Body)
		m.appendLog(line)

	case room.NoticeEvent:
		m.appendLog(NoticeStyle.Render(ev.Text))

	case room.KickedEvent:
		m.kicked = true
		return m, tea.Quit
	}
	return m, m.waitEvent()
}

func (m SessionModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.orc.Leave()
		return m, tea.Quit

	case "m":
		if _, err := m.orc.ToggleMic(); err != nil {
			m.appendLog(NoticeStyle.Render(err.Error()))
		}

	case "v":
		if _, err := m.orc.ToggleCamera(); err != nil {
			m.appendLog(NoticeStyle.Render(err.Error()))
		}

	case "s":
		var err error
		if m.orc.Sharing() {
			err = m.orc.StopScreenShare()
		} else {
			err = m.orc.StartScreenShare()
		}
		if err != nil {
			m.appendLog(NoticeStyle.Render(err.Error()))
		}

	case "up":
		if m.selected > 0 {
			m.selected--
		}

	case "down":
		if m.selected < len(m.participants)-1 {
			m.selected++
		}

	case "k":
		if id, ok := m.selectedID(); ok {
			if err := m.orc.Kick(id); err != nil {
				m.appendLog(NoticeStyle.Render(err.Error()))
			}
		}

	case "u":
		if id, ok := m.selectedID(); ok {
			if err := m.orc.RequestMute(id); err != nil {
				m.appendLog(NoticeStyle.Render(err.Error()))
			}
		}

	case "c":
		m.chatting = true
		return m, m.input.Focus()
	}
	return m, nil
}

func (m SessionModel) updateChatInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.chatting = false
		m.input.Blur()
		m.input.Reset()
		return m, nil

	case "enter":
		body := strings.TrimSpace(m.input.Value())
		m.chatting = false
		m.input.Blur()
		m.input.Reset()
		if body == "" {
			return m, nil
		}
		if err := m.orc.SendChat(body); err != nil {
			m.appendLog(NoticeStyle.Render(err.Error()))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m SessionModel) View() string {
	var b strings.Builder

	host := ""
	if m.orc.IsHost() {
		host = " " + IconHost + " host"
	}
	title := m.orc.Descriptor().Title
	if title == "" {
		title = m.orc.Descriptor().RoomID
	}
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s %s (%s)%s", IconRoom, title, m.orc.Phase(), host)))
	b.WriteString("\n\n")

	rows, selectedRow := m.participantRows()
	b.WriteString(ParticipantsView(rows, selectedRow))
	b.WriteString("\n\n")

	b.WriteString(MutedStyle.Render(IconChat + " chat"))
	b.WriteString("\n")
	if len(m.chatLog) == 0 {
		b.WriteString(MutedStyle.Render("  (quiet so far)"))
		b.WriteString("\n")
	}
	for _, line := range m.chatLog {
		b.WriteString("  " + line + "\n")
	}

	if m.chatting {
		b.WriteString("\n" + m.input.View() + "\n")
	}

	help := "m mic • v camera • c chat • ↑/↓ select • q leave"
	if m.orc.IsHost() {
		help = "m mic • v camera • s share • c chat • ↑/↓ select • k kick • u mute • q leave"
	}
	b.WriteString(FooterStyle.Render(m.spin.View() + " " + help))
	b.WriteString("\n")

	return b.String()
}

// participantRows renders the presence snapshot sorted by user ID, which also
// keeps the selection stable across updates.
func (m SessionModel) participantRows() ([]ParticipantRow, int) {
	ids := m.sortedIDs()

	rows := make([]ParticipantRow, 0, len(ids))
	for _, id := range ids {
		rec := m.participants[id]

		name := rec.DisplayName
		if id == m.self.ID {
			name += " (you)"
		}

		mic := IconMicOn
		if rec.AudioMuted {
			mic = IconMicOff
		}
		cam := IconCamOn
		if rec.VideoOff {
			cam = IconCamOff
		}

		link := "—"
		if id != m.self.ID {
			if state, ok := m.states[id]; ok {
				link = state.String()
			} else {
				link = "none"
			}
		}

		rows = append(rows, ParticipantRow{
			Name: name,
			Role: rec.Role,
			Mic:  mic,
			Cam:  cam,
			Link: link,
		})
	}

	// lipgloss table rows are 1-based; header is row 0's sibling.
	return rows, m.selected + 1
}

func (m SessionModel) sortedIDs() []string {
	ids := make([]string, 0, len(m.participants))
	for id := range m.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m SessionModel) selectedID() (string, bool) {
	ids := m.sortedIDs()
	if m.selected < 0 || m.selected >= len(ids) {
		return "", false
	}
	id := ids[m.selected]
	if id == m.self.ID {
		return "", false
	}
	return id, true
}

func (m SessionModel) displayName(id string) string {
	if rec, ok := m.participants[id]; ok && rec.DisplayName != "" {
		return rec.DisplayName
	}
	return id
}

func (m *SessionModel) appendLog(line string) {
	m.chatLog = append(m.chatLog, line)
	if len(m.chatLog) > chatLogLines {
		m.chatLog = m.chatLog[len(m.chatLog)-chatLogLines:]
	}
}

// RunSession drives the session UI until the user leaves or is kicked.
func RunSession(orc *room.Orchestrator, self room.Identity) (kicked bool, err error) {
	p := tea.NewProgram(NewSession(orc, self), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	if m, ok := final.(SessionModel); ok {
		return m.Kicked(), nil
	}
	return false, nil
}
