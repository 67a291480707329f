package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/tvremote/internal/control"
	"github.com/muurk/tvremote/internal/discovery"
	"github.com/muurk/tvremote/internal/protocol"
)

// ConnectionState describes what the remote screen knows about the TV
type ConnectionState int

const (
	ConnectionChecking ConnectionState = iota
	ConnectionOK
	ConnectionFailed
)

// Messages for async control operations
type connectionMsg struct {
	err error
}

type supportedKeysMsg struct {
	keys []protocol.Key
}

type keySentMsg struct {
	key protocol.Key
}

type textSentMsg struct {
	text string
}

// backToDiscoveryMsg asks the app to return to the discovery screen
type backToDiscoveryMsg struct{}

// remoteKeys maps terminal keys to remote-control key codes.
// Digits are handled separately through protocol.DigitKey.
var remoteKeys = map[string]protocol.Key{
	"up":        protocol.KeyCursorUp,
	"down":      protocol.KeyCursorDown,
	"left":      protocol.KeyCursorLeft,
	"right":     protocol.KeyCursorRight,
	"enter":     protocol.KeyConfirm,
	"backspace": protocol.KeyBack,
	"h":         protocol.KeyHome,
	"m":         protocol.KeyMenu,
	"i":         protocol.KeyInfo,
	"s":         protocol.KeySource,
	"p":         protocol.KeyStandby,
	"+":         protocol.KeyVolumeUp,
	"=":         protocol.KeyVolumeUp,
	"-":         protocol.KeyVolumeDown,
	"pgup":      protocol.KeyChannelUp,
	"pgdown":    protocol.KeyChannelDown,
	"x":         protocol.KeyMute,
	".":         protocol.KeyDigitDash,
}

// KeyFor returns the key code bound to a terminal key, if any
func KeyFor(s string) (protocol.Key, bool) {
	if k, ok := remoteKeys[s]; ok {
		return k, true
	}
	if r := []rune(s); len(r) == 1 {
		return protocol.DigitKey(r[0])
	}
	return "", false
}

// remoteKeyMap defines key bindings for the help view
type remoteKeyMap struct {
	Navigate key.Binding
	Confirm  key.Binding
	Back     key.Binding
	Volume   key.Binding
	Channel  key.Binding
	Text     key.Binding
	Retry    key.Binding
	Exit     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k remoteKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Navigate, k.Confirm, k.Back, k.Volume, k.Channel, k.Text, k.Exit, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k remoteKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Navigate, k.Confirm, k.Back},
		{k.Volume, k.Channel, k.Text},
		{k.Retry, k.Exit, k.Quit},
	}
}

// RemoteModel represents the remote-control screen for one TV
type RemoteModel struct {
	deps   Deps
	Device discovery.Result

	// Connection state
	State     ConnectionState
	Err       error
	Supported map[protocol.Key]bool
	LastSent  string

	// Text mode
	TextMode  bool
	TextInput textinput.Model

	// UI state
	Width     int
	Height    int
	Spinner   spinner.Model
	ticking   bool
	Help      help.Model
	Keys      remoteKeyMap
	InputKeys inputKeyMap
}

// NewRemoteModel creates a remote screen for device
func NewRemoteModel(deps Deps, device discovery.Result) RemoteModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ti := textinput.New()
	ti.Placeholder = "text to type on the TV"
	ti.CharLimit = 256
	ti.Width = 40

	keys := remoteKeyMap{
		Navigate: key.NewBinding(
			key.WithKeys("up", "down", "left", "right"),
			key.WithHelp("←↑↓→", "navigate"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ok"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("⌫", "back"),
		),
		Volume: key.NewBinding(
			key.WithKeys("+", "-"),
			key.WithHelp("+/-", "volume"),
		),
		Channel: key.NewBinding(
			key.WithKeys("pgup", "pgdown"),
			key.WithHelp("pgup/pgdn", "channel"),
		),
		Text: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "type text"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Exit: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "devices"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	inputKeys := inputKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "done"),
		),
	}

	return RemoteModel{
		deps:      deps,
		Device:    device,
		State:     ConnectionChecking,
		ticking:   true,
		TextInput: ti,
		Spinner:   s,
		Help:      help.New(),
		Keys:      keys,
		InputKeys: inputKeys,
	}
}

// Init checks that the TV answers
func (m RemoteModel) Init() tea.Cmd {
	return tea.Batch(checkConnection(m.deps.Client, m.Device.Address), m.Spinner.Tick)
}

// Update handles messages and updates the model
func (m RemoteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case connectionMsg:
		m.Err = msg.err
		if msg.err != nil {
			m.State = ConnectionFailed
			return m, nil
		}
		m.State = ConnectionOK
		return m, fetchSupportedKeys(m.deps.Client, m.Device.Address)

	case supportedKeysMsg:
		m.Supported = make(map[protocol.Key]bool, len(msg.keys))
		for _, k := range msg.keys {
			m.Supported[k] = true
		}
		return m, nil

	case keySentMsg:
		m.LastSent = string(msg.key)
		return m, nil

	case textSentMsg:
		m.LastSent = fmt.Sprintf("text %q", msg.text)
		return m, nil

	case spinner.TickMsg:
		if msg.ID != m.Spinner.ID() {
			return m, nil
		}
		if m.State != ConnectionChecking {
			m.ticking = false
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.TextMode {
			return m.updateTextMode(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

// updateKeys handles keyboard input in remote mode
func (m RemoteModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc":
		return m, func() tea.Msg { return backToDiscoveryMsg{} }

	case "r":
		if m.State == ConnectionFailed {
			m.State = ConnectionChecking
			m.Err = nil
			tick := m.startSpinner()
			return m, tea.Batch(checkConnection(m.deps.Client, m.Device.Address), tick)
		}
		return m, nil

	case "t":
		m.TextMode = true
		m.TextInput.SetValue("")
		m.TextInput.Focus()
		return m, textinput.Blink
	}

	if k, ok := KeyFor(msg.String()); ok {
		return m, sendKeyCmd(m.deps.Client, m.Device.Address, k)
	}
	return m, nil
}

// startSpinner starts the tick chain unless one is already running
func (m *RemoteModel) startSpinner() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.Spinner.Tick
}

// updateTextMode handles keyboard input while typing text
func (m RemoteModel) updateTextMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.TextMode = false
		m.TextInput.Blur()
		return m, nil

	case "enter":
		text := m.TextInput.Value()
		if text == "" {
			return m, nil
		}
		m.TextInput.SetValue("")
		return m, sendTextCmd(m.deps.Client, m.Device.Address, text)
	}

	m.TextInput, cmd = m.TextInput.Update(msg)
	return m, cmd
}

// View renders the remote screen
func (m RemoteModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(RenderTitle(m.Device.DisplayName))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle(m.Device.Address.String()))
	b.WriteString("\n\n")

	switch m.State {
	case ConnectionChecking:
		b.WriteString(fmt.Sprintf("  %s Connecting...\n\n", m.Spinner.View()))
	case ConnectionOK:
		b.WriteString(RenderSuccess("Connected"))
		b.WriteString("\n\n")
	case ConnectionFailed:
		label, style := failureStatus(m.Err)
		b.WriteString("  " + style.Render("● "+label))
		b.WriteString("\n")
		b.WriteString(RenderError(control.GetShortErrorMessage(m.Err)))
		b.WriteString("\n\n")
		for _, line := range strings.Split(control.GetTroubleshootingHint(m.Err), "\n") {
			b.WriteString("  " + SubtitleStyle.Render(line) + "\n")
		}
		b.WriteString("\n  Press 'r' to retry.\n\n")
	}

	b.WriteString(m.renderPad())
	b.WriteString("\n")

	if m.TextMode {
		b.WriteString("\n  Text: ")
		b.WriteString(m.TextInput.View())
		b.WriteString("\n")
	}

	if m.LastSent != "" {
		b.WriteString("\n  Last sent: " + SuccessStyle.Render(m.LastSent) + "\n")
	}

	var helpText string
	if m.TextMode {
		helpText = m.Help.View(m.InputKeys)
	} else {
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(b.String(), helpText, m.Width, m.Height)
}

// renderPad draws the remote as rows of buttons, highlighting keys the TV advertises
func (m RemoteModel) renderPad() string {
	rows := [][]protocol.Key{
		{protocol.KeyStandby, protocol.KeySource, protocol.KeyHome, protocol.KeyMenu, protocol.KeyInfo},
		{protocol.KeyCursorUp, protocol.KeyCursorDown, protocol.KeyCursorLeft, protocol.KeyCursorRight, protocol.KeyConfirm, protocol.KeyBack},
		{protocol.KeyVolumeUp, protocol.KeyVolumeDown, protocol.KeyMute, protocol.KeyChannelUp, protocol.KeyChannelDown},
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		buttons := make([]string, 0, len(row))
		for _, k := range row {
			style := ButtonStyle
			if m.Supported[k] {
				style = SupportedButtonStyle
			}
			if m.LastSent == string(k) {
				style = PressedButtonStyle
			}
			buttons = append(buttons, style.Render(string(k)))
		}
		lines = append(lines, "  "+lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// failureStatus picks the status badge for a failed reachability check.
// A TV that answers with an HTTP error or refuses the port is up but not
// accepting control, which is shown as a warning rather than an error.
func failureStatus(err error) (string, lipgloss.Style) {
	switch {
	case control.IsHTTPError(err):
		return "API ERROR", WarningStyle
	case control.IsConnectionRefused(err):
		return "REMOTE CONTROL DISABLED", WarningStyle
	case control.IsTimeout(err):
		return "NO RESPONSE", ErrorTextStyle
	case control.IsNetworkError(err):
		return "UNREACHABLE", ErrorTextStyle
	default:
		return "ERROR", ErrorTextStyle
	}
}

// checkConnection runs the reachability check
func checkConnection(client *control.Client, addr protocol.Address) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return connectionMsg{err: fmt.Errorf("control client not configured")}
		}
		return connectionMsg{err: client.CheckReachable(context.Background(), addr)}
	}
}

// fetchSupportedKeys asks the TV which keys its settings structure mentions
func fetchSupportedKeys(client *control.Client, addr protocol.Address) tea.Cmd {
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		return supportedKeysMsg{keys: client.SupportedKeys(context.Background(), addr, protocol.Keys)}
	}
}

// sendKeyCmd presses one key
func sendKeyCmd(client *control.Client, addr protocol.Address, k protocol.Key) tea.Cmd {
	return func() tea.Msg {
		if client != nil {
			client.SendKey(context.Background(), addr, k)
		}
		return keySentMsg{key: k}
	}
}

// sendTextCmd types text on the TV
func sendTextCmd(client *control.Client, addr protocol.Address, text string) tea.Cmd {
	return func() tea.Msg {
		if client != nil {
			client.SendText(context.Background(), addr, text)
		}
		return textSentMsg{text: text}
	}
}
