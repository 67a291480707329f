package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/tvremote/internal/discovery"
	"github.com/muurk/tvremote/internal/protocol"
)

// Messages for async scan operations
type scanStartedMsg struct {
	events <-chan discovery.Event
	cancel context.CancelFunc
}

type scanEventMsg struct {
	event discovery.Event
}

type scanErrMsg struct {
	err error
}

type scanClosedMsg struct{}

type renamedMsg struct {
	ip          string
	displayName string
}

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Rename key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Rename, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Rename, k.Quit},
	}
}

// inputKeyMap defines key bindings for manual IP entry and rename
type inputKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (m inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (m inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.Confirm, m.Cancel},
	}
}

// scanningKeyMap defines key bindings for scanning mode
type scanningKeyMap struct {
	Cancel key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (s scanningKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{s.Cancel, s.Rescan, s.Manual, s.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (s scanningKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{s.Cancel, s.Rescan, s.Manual, s.Quit},
	}
}

// inputMode is the text entry currently shown, if any
type inputMode int

const (
	inputNone inputMode = iota
	inputManualIP
	inputRename
)

// deviceItem wraps a scan result for use with bubbles/list
type deviceItem struct {
	result discovery.Result
	manual bool
}

// FilterValue implements list.Item
func (d deviceItem) FilterValue() string {
	return d.result.DisplayName + " " + d.result.Address.IP
}

// Title returns the display name for list display
func (d deviceItem) Title() string {
	return d.result.DisplayName
}

// Description returns device details for list display
func (d deviceItem) Description() string {
	source := "scan"
	if d.manual {
		source = "manual"
	}
	return fmt.Sprintf("%s • %s", d.result.Address, source)
}

// deviceDelegate renders each device as a bordered card
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 6 } // Card height including borders

func (d deviceDelegate) Spacing() int { return 0 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}

	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + di.Title()))
	} else {
		content.WriteString("  " + di.Title())
	}
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("  Address:  %s\n", di.result.Address))

	reported := di.result.ReportedName
	if reported == "" || reported == di.result.Address.IP {
		reported = "-"
	}
	content.WriteString(fmt.Sprintf("  Reported: %s", reported))

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(CardWidth(d.width))

	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel represents the device discovery screen state
type DiscoveryModel struct {
	deps Deps

	// Scan state
	Scanning bool
	Probed   int
	Total    int
	Notice   string
	Err      error
	events   <-chan discovery.Event
	cancel   context.CancelFunc

	// Device list
	DeviceList list.Model
	Selected   bool

	// Text entry state (manual IP or rename)
	Input     inputMode
	TextInput textinput.Model

	// UI state
	Width         int
	Height        int
	Spinner       spinner.Model
	ticking       bool
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	InputKeys     inputKeyMap
	ScanningKeys  scanningKeyMap
}

// NewDiscoveryModel creates a new discovery screen model
func NewDiscoveryModel(deps Deps) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 30

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth}, 0, 0)
	deviceList.Title = "Televisions"
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(false)
	deviceList.SetShowHelp(false)
	deviceList.Styles.Title = TitleStyle

	keys := discoveryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "connect"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual IP"),
		),
		Rename: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "rename"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	inputKeys := inputKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	scanningKeys := scanningKeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "stop scan"),
		),
		Rescan: keys.Rescan,
		Manual: keys.Manual,
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	return DiscoveryModel{
		deps:         deps,
		DeviceList:   deviceList,
		TextInput:    ti,
		Spinner:      s,
		ProgressBar:  progressBar,
		Help:         help.New(),
		Keys:         keys,
		InputKeys:    inputKeys,
		ScanningKeys: scanningKeys,
	}
}

// Init starts scanning immediately
func (m DiscoveryModel) Init() tea.Cmd {
	return startScan(m.deps.Coordinator)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Input != inputNone {
			return m.updateInput(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(msg.Height - 10) // Leave room for header/footer
		return m, nil

	case scanStartedMsg:
		m.Scanning = true
		m.Probed, m.Total = 0, 0
		m.Err = nil
		m.Notice = ""
		m.events = msg.events
		m.cancel = msg.cancel
		m.ScanStartTime = time.Now()
		m.DeviceList.SetItems(m.manualItems())
		tick := m.startSpinner()
		return m, tea.Batch(waitForEvent(msg.events), tick)

	case scanErrMsg:
		if errors.Is(msg.err, discovery.ErrScanInProgress) {
			// The running scan is unaffected
			m.Notice = "A scan is already running"
			return m, nil
		}
		m.Err = msg.err
		return m, nil

	case scanEventMsg:
		return m.handleScanEvent(msg.event)

	case scanClosedMsg:
		m.finishScan()
		return m, nil

	case renamedMsg:
		m.applyRename(msg.ip, msg.displayName)
		return m, nil

	case spinner.TickMsg:
		if msg.ID != m.Spinner.ID() {
			return m, nil
		}
		if !m.Scanning {
			m.ticking = false
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// startSpinner starts the tick chain unless one is already running
func (m *DiscoveryModel) startSpinner() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.Spinner.Tick
}

// handleScanEvent folds one coordinator event into the model
func (m DiscoveryModel) handleScanEvent(ev discovery.Event) (tea.Model, tea.Cmd) {
	switch e := ev.(type) {
	case discovery.ProgressEvent:
		m.Probed, m.Total = e.Probed, e.Total

	case discovery.DiscoveryEvent:
		m.upsert(deviceItem{result: e.Result})
		return m, tea.Batch(waitForEvent(m.events), recordSeen(m.deps, e.Result))

	case discovery.CompleteEvent:
		m.Probed, m.Total = e.Snapshot.Probed, e.Snapshot.Total
		if e.Snapshot.Cancelled {
			m.Notice = fmt.Sprintf("Scan stopped after %d of %d addresses", e.Snapshot.Probed, e.Snapshot.Total)
		}
		m.finishScan()
		return m, nil
	}

	return m, waitForEvent(m.events)
}

func (m *DiscoveryModel) finishScan() {
	m.Scanning = false
	m.events = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// upsert adds or replaces the item for an IP, keeping items sorted by address
func (m *DiscoveryModel) upsert(item deviceItem) {
	results := make([]discovery.Result, 0, len(m.DeviceList.Items())+1)
	manual := make(map[string]bool)
	replaced := false
	for _, it := range m.DeviceList.Items() {
		di := it.(deviceItem)
		if di.result.Address.IP == item.result.Address.IP {
			di = item
			replaced = true
		}
		results = append(results, di.result)
		manual[di.result.Address.IP] = di.manual
	}
	if !replaced {
		results = append(results, item.result)
		manual[item.result.Address.IP] = item.manual
	}

	discovery.SortResults(results)
	items := make([]list.Item, len(results))
	for i, r := range results {
		items[i] = deviceItem{result: r, manual: manual[r.Address.IP]}
	}
	m.DeviceList.SetItems(items)
}

// manualItems returns the manually entered devices, which survive a rescan
func (m DiscoveryModel) manualItems() []list.Item {
	var items []list.Item
	for _, it := range m.DeviceList.Items() {
		if di, ok := it.(deviceItem); ok && di.manual {
			items = append(items, di)
		}
	}
	return items
}

func (m *DiscoveryModel) applyRename(ip, displayName string) {
	for i, it := range m.DeviceList.Items() {
		di := it.(deviceItem)
		if di.result.Address.IP == ip {
			di.result.DisplayName = displayName
			m.DeviceList.SetItem(i, di)
			return
		}
	}
}

// updateNormalMode handles keyboard input in device list mode
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "c":
		if m.Scanning && m.cancel != nil {
			m.cancel()
			m.Notice = "Stopping scan..."
		}
		return m, nil

	case "enter", " ":
		if m.DeviceList.SelectedItem() != nil {
			m.Selected = true
		}
		return m, nil

	case "r":
		// Rejected by the coordinator while a scan is running
		return m, startScan(m.deps.Coordinator)

	case "m":
		m.Input = inputManualIP
		m.TextInput.Placeholder = "192.168.1.42"
		m.TextInput.SetValue("")
		m.TextInput.Focus()
		return m, textinput.Blink

	case "n":
		selected, ok := m.DeviceList.SelectedItem().(deviceItem)
		if !ok {
			return m, nil
		}
		m.Input = inputRename
		m.TextInput.Placeholder = "Living room"
		m.TextInput.SetValue(selected.result.DisplayName)
		m.TextInput.CursorEnd()
		m.TextInput.Focus()
		return m, textinput.Blink
	}

	// Let the list handle up/down navigation
	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateInput handles keyboard input while a text entry is open
func (m DiscoveryModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "ctrl+c", "esc":
		m.closeInput()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.TextInput.Value())
		switch m.Input {
		case inputManualIP:
			if value == "" {
				return m, nil
			}
			addr, err := parseManualAddress(value, m.deps.Port)
			if err != nil {
				m.Err = err
				return m, nil
			}
			m.Err = nil
			displayName := addr.IP
			if m.deps.Store != nil {
				displayName = m.deps.Store.DisplayName(addr.IP, "")
			}
			m.upsert(deviceItem{
				result: discovery.Result{Address: addr, DisplayName: displayName},
				manual: true,
			})
			m.selectIP(addr.IP)
			m.closeInput()
			return m, nil

		case inputRename:
			selected, ok := m.DeviceList.SelectedItem().(deviceItem)
			m.closeInput()
			if !ok {
				return m, nil
			}
			return m, renameDevice(m.deps, selected.result, value)
		}
	}

	m.TextInput, cmd = m.TextInput.Update(msg)
	return m, cmd
}

func (m *DiscoveryModel) closeInput() {
	m.Input = inputNone
	m.TextInput.SetValue("")
	m.TextInput.Blur()
}

func (m *DiscoveryModel) selectIP(ip string) {
	for i, it := range m.DeviceList.Items() {
		if di, ok := it.(deviceItem); ok && di.result.Address.IP == ip {
			m.DeviceList.Select(i)
			return
		}
	}
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var content string
	switch {
	case m.Input == inputManualIP:
		content = m.renderInput("Enter TV IP address (port optional)", "IP Address: ")
	case m.Input == inputRename:
		content = m.renderInput("Enter a name for this TV (blank restores the reported name)", "Name: ")
	case m.Scanning:
		content = m.renderScanning(width)
	default:
		content = m.renderDeviceResults()
	}

	var helpText string
	switch {
	case m.Input != inputNone:
		helpText = m.Help.View(m.InputKeys)
	case m.Scanning:
		helpText = m.Help.View(m.ScanningKeys)
	default:
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// Fraction returns scan progress in [0, 1]
func (m DiscoveryModel) Fraction() float64 {
	return discovery.ProgressEvent{Probed: m.Probed, Total: m.Total}.Fraction()
}

// renderScanning renders the progress display, with devices found so far below it
func (m DiscoveryModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime).Round(time.Second)

	title := fmt.Sprintf("%s SEARCHING FOR TELEVISIONS", m.Spinner.View())
	subtitle := fmt.Sprintf("Probed %d of %d addresses • %d found • %s",
		m.Probed, m.Total, len(m.DeviceList.Items()), elapsed)

	parts := []string{
		"",
		TitleStyle.Render(title),
		SubtitleStyle.Render(subtitle),
		"",
		m.ProgressBar.ViewAs(m.Fraction()),
		"",
	}
	if m.Notice != "" {
		parts = append(parts, WarningStyle.Render(m.Notice), "")
	}

	header := lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Center, parts...))

	if len(m.DeviceList.Items()) == 0 {
		return header
	}
	return header + "\n" + m.DeviceList.View()
}

// renderDeviceResults renders the device list or "no devices found" message
func (m DiscoveryModel) renderDeviceResults() string {
	var b strings.Builder

	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(RenderError(m.Err.Error()))
		b.WriteString("\n\n")
	}

	if m.Notice != "" {
		b.WriteString("  " + WarningStyle.Render(m.Notice))
		b.WriteString("\n\n")
	}

	if len(m.DeviceList.Items()) == 0 {
		b.WriteString("  ")
		b.WriteString(WarningStyle.Render("⚠ No televisions found on your network"))
		b.WriteString("\n\n")

		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Ensure the TV is switched on\n")
		b.WriteString("    • Verify this computer is on the same network as the TV\n")
		b.WriteString("    • Enter the TV's address manually (use 'm')\n")
		b.WriteString("    • Rescan (use 'r')\n")
		return b.String()
	}

	b.WriteString(m.DeviceList.View())
	return b.String()
}

// renderInput renders the manual IP / rename dialog
func (m DiscoveryModel) renderInput(prompt, label string) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(RenderSubtitle(prompt))
	b.WriteString("\n\n  ")
	b.WriteString(label)
	b.WriteString(m.TextInput.View())
	b.WriteString("\n\n")

	if m.Err != nil {
		b.WriteString(RenderError(m.Err.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

// GetSelectedDevice returns the selected device (if any)
func (m DiscoveryModel) GetSelectedDevice() (discovery.Result, bool) {
	if !m.Selected {
		return discovery.Result{}, false
	}
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.result, true
	}
	return discovery.Result{}, false
}

// parseManualAddress accepts "ip" or "ip:port", defaulting to port
func parseManualAddress(value string, port int) (protocol.Address, error) {
	addr, err := protocol.ParseAddress(value)
	if err != nil {
		return protocol.Address{}, err
	}
	if !strings.Contains(value, ":") && port > 0 {
		addr.Port = port
	}
	return addr, nil
}

// startScan asks the coordinator for a new session
func startScan(coord *discovery.Coordinator) tea.Cmd {
	return func() tea.Msg {
		if coord == nil {
			return scanErrMsg{err: errors.New("scanner not configured")}
		}
		ctx, cancel := context.WithCancel(context.Background())
		events, err := coord.Start(ctx)
		if err != nil {
			cancel()
			return scanErrMsg{err: err}
		}
		return scanStartedMsg{events: events, cancel: cancel}
	}
}

// waitForEvent delivers the next coordinator event as a message
func waitForEvent(events <-chan discovery.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return scanClosedMsg{}
		}
		return scanEventMsg{event: ev}
	}
}

// recordSeen remembers a discovered TV in the registry
func recordSeen(deps Deps, r discovery.Result) tea.Cmd {
	if deps.Store == nil {
		return nil
	}
	return func() tea.Msg {
		reported := r.ReportedName
		if reported == r.Address.IP {
			reported = ""
		}
		deps.Store.RecordSeen(r.Address.IP, reported)
		return nil
	}
}

// renameDevice stores a custom name and reports the resulting display name
func renameDevice(deps Deps, r discovery.Result, name string) tea.Cmd {
	return func() tea.Msg {
		reported := r.ReportedName
		if deps.Store == nil {
			if name == "" {
				return renamedMsg{ip: r.Address.IP, displayName: r.Address.IP}
			}
			return renamedMsg{ip: r.Address.IP, displayName: name}
		}
		deps.Store.SetName(r.Address.IP, name)
		return renamedMsg{ip: r.Address.IP, displayName: deps.Store.DisplayName(r.Address.IP, reported)}
	}
}
