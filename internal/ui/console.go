package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pion/webrtc/v4"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
	"github.com/AyushKoirala03/Video-chatting/internal/room"
	"github.com/AyushKoirala03/Video-chatting/internal/rtc"
)

// chatHistory is how many chat lines the console keeps.
const chatHistory = 100

// Console is the terminal surface for a room session. It implements the
// session's event sink by forwarding notifications into the Bubble Tea
// program, so rendering stays off the session's event loop.
type Console struct {
	session *room.Session
	model   *consoleModel
	events  chan tea.Msg
}

// Event messages crossing from the session into the program.
type (
	roomJoinedMsg struct {
		roomID string
		users  []protocol.User
	}
	userJoinedMsg struct{ id, username string }
	userLeftMsg   struct{ id, username string }
	chatMsg       struct{ from, username, text, timestamp string }
	peerStateMsg  struct {
		id    string
		state rtc.ControlMessage
	}
	remoteTrackMsg struct{ peerID, kind string }
	statusMsg      struct{ text string }
	sessionEndMsg  struct{}
)

// NewConsole builds the console for one join. Bind the session before Run.
func NewConsole(roomID, username string) *Console {
	ti := textinput.New()
	ti.Placeholder = "type a message"
	ti.CharLimit = 2000
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	c := &Console{
		events: make(chan tea.Msg, 100),
	}
	c.model = &consoleModel{
		console:      c,
		roomID:       roomID,
		username:     username,
		participants: make(map[string]*participant),
		input:        ti,
		spinner:      s,
		status:       "connecting",
	}
	return c
}

// Bind attaches the session the key bindings drive.
func (c *Console) Bind(session *room.Session) {
	c.session = session
	c.model.session = session
}

// Run blocks until the user quits or the session ends.
func (c *Console) Run() error {
	p := tea.NewProgram(c.model)
	go func() {
		<-c.session.Done()
		c.push(sessionEndMsg{})
	}()
	_, err := p.Run()
	return err
}

// push hands an event to the program, dropping it when the buffer is full
// rather than stalling the session loop.
func (c *Console) push(msg tea.Msg) {
	select {
	case c.events <- msg:
	default:
	}
}

func (c *Console) RoomJoined(roomID string, participants []protocol.User) {
	c.push(roomJoinedMsg{roomID: roomID, users: participants})
}

func (c *Console) UserJoined(id, username string) {
	c.push(userJoinedMsg{id: id, username: username})
}

func (c *Console) UserLeft(id, username string) {
	c.push(userLeftMsg{id: id, username: username})
}

func (c *Console) Chat(from, username, text, timestamp string) {
	c.push(chatMsg{from: from, username: username, text: text, timestamp: timestamp})
}

func (c *Console) PeerState(id string, state rtc.ControlMessage) {
	c.push(peerStateMsg{id: id, state: state})
}

func (c *Console) RemoteTrack(peerID string, track *webrtc.TrackRemote) {
	c.push(remoteTrackMsg{peerID: peerID, kind: track.Kind().String()})
}

func (c *Console) Status(message string) {
	c.push(statusMsg{text: message})
}

// participant is the console's view of one remote.
type participant struct {
	id         string
	username   string
	audioMuted bool
	videoMuted bool
	source     string
	trackKinds map[string]bool
}

type chatLine struct {
	username  string
	text      string
	timestamp string
	self      bool
}

type consoleModel struct {
	console *Console
	session *room.Session

	roomID   string
	username string

	joined       bool
	participants map[string]*participant
	chat         []chatLine
	status       string
	sharing      bool
	audioOn      bool
	videoOn      bool

	input   textinput.Model
	spinner spinner.Model

	width    int
	quitting bool
}

func (m *consoleModel) Init() tea.Cmd {
	m.audioOn = true
	m.videoOn = true
	return tea.Batch(m.spinner.Tick, m.listen(), textinput.Blink)
}

func (m *consoleModel) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.console.events
	}
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				if err := m.session.SendChat(text); err != nil {
					m.status = "chat not sent: " + err.Error()
				}
				m.input.SetValue("")
			}
			return m, nil

		case "ctrl+a":
			m.audioOn = m.session.Media().ToggleAudio()
			return m, nil

		case "ctrl+o":
			m.videoOn = m.session.Media().ToggleVideo()
			return m, nil

		case "ctrl+s":
			if m.sharing {
				m.session.Media().StopScreenShare()
				m.sharing = false
				m.status = "screen share stopped"
			} else if err := m.session.Media().StartScreenShare(); err != nil {
				m.status = "screen share: " + err.Error()
			} else {
				m.sharing = true
				m.status = "sharing your screen"
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-6)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case roomJoinedMsg:
		m.joined = true
		m.status = fmt.Sprintf("joined %s", msg.roomID)
		for _, u := range msg.users {
			m.upsert(u.ClientID, u.Username)
		}
		cmds = append(cmds, m.listen())

	case userJoinedMsg:
		m.upsert(msg.id, msg.username)
		m.status = fmt.Sprintf("%s joined", msg.username)
		cmds = append(cmds, m.listen())

	case userLeftMsg:
		delete(m.participants, msg.id)
		m.status = fmt.Sprintf("%s left", msg.username)
		cmds = append(cmds, m.listen())

	case chatMsg:
		m.chat = append(m.chat, chatLine{
			username:  msg.username,
			text:      msg.text,
			timestamp: msg.timestamp,
			self:      msg.username == m.username,
		})
		if len(m.chat) > chatHistory {
			m.chat = m.chat[len(m.chat)-chatHistory:]
		}
		cmds = append(cmds, m.listen())

	case peerStateMsg:
		if p, ok := m.participants[msg.id]; ok {
			p.audioMuted = msg.state.AudioMuted
			p.videoMuted = msg.state.VideoMuted
			p.source = msg.state.VideoSource
		}
		cmds = append(cmds, m.listen())

	case remoteTrackMsg:
		if p, ok := m.participants[msg.peerID]; ok {
			p.trackKinds[msg.kind] = true
		}
		cmds = append(cmds, m.listen())

	case statusMsg:
		m.status = msg.text
		cmds = append(cmds, m.listen())

	case sessionEndMsg:
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *consoleModel) upsert(id, username string) {
	if _, ok := m.participants[id]; ok {
		return
	}
	if username == "" {
		username = id
	}
	m.participants[id] = &participant{
		id:         id,
		username:   username,
		trackKinds: make(map[string]bool),
	}
}

func (m *consoleModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s %s", IconRoom, m.roomID)))
	b.WriteString("\n\n")

	if !m.joined {
		b.WriteString(fmt.Sprintf("%s connecting to the room...\n", m.spinner.View()))
	} else {
		b.WriteString(m.participantsView())
	}

	b.WriteString("\n")
	b.WriteString(m.chatView())
	b.WriteString("\n")
	b.WriteString(ChatBoxStyle.Render(m.input.View()))
	b.WriteString("\n")

	local := fmt.Sprintf("you: %s %s", micIcon(!m.audioOn), camIcon(!m.videoOn, m.sharing))
	hints := "enter send · ctrl+a mic · ctrl+o camera · ctrl+s screen · esc leave"
	b.WriteString(StatusBarStyle.Render(fmt.Sprintf("%s │ %s │ %s", local, m.status, hints)))
	b.WriteString("\n")

	return b.String()
}

func (m *consoleModel) participantsView() string {
	if len(m.participants) == 0 {
		return MutedStyle.Render("nobody else is here yet") + "\n"
	}

	ids := make([]string, 0, len(m.participants))
	for id := range m.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		p := m.participants[id]
		b.WriteString(fmt.Sprintf("  %s %s  %s %s",
			IconPeer,
			UsernameStyle.Render(p.username),
			micIcon(p.audioMuted),
			camIcon(p.videoMuted, p.source == rtc.SourceScreen),
		))
		if len(p.trackKinds) == 0 {
			b.WriteString(MutedStyle.Render("  connecting..."))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *consoleModel) chatView() string {
	if len(m.chat) == 0 {
		return MutedStyle.Render(fmt.Sprintf("%s no messages yet", IconChat)) + "\n"
	}

	shown := m.chat
	if len(shown) > 10 {
		shown = shown[len(shown)-10:]
	}

	var b strings.Builder
	for _, line := range shown {
		name := UsernameStyle.Render(line.username)
		if line.self {
			name = BoldStyle.Render("you")
		}
		b.WriteString(fmt.Sprintf("%s %s: %s\n", MutedStyle.Render(shortTime(line.timestamp)), name, line.text))
	}
	return b.String()
}

func micIcon(muted bool) string {
	if muted {
		return IconMicOff
	}
	return IconMic
}

func camIcon(muted, screen bool) string {
	if muted {
		return IconCamOff
	}
	if screen {
		return IconScreen
	}
	return IconCamera
}

// shortTime trims an RFC 3339 timestamp down to HH:MM:SS for display.
func shortTime(ts string) string {
	if len(ts) >= 19 {
		return ts[11:19]
	}
	return ts
}
