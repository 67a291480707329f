package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/tvremote/internal/config"
	"github.com/muurk/tvremote/internal/control"
	"github.com/muurk/tvremote/internal/discovery"
	"github.com/muurk/tvremote/internal/protocol"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenRemote    Screen = "remote"
)

// Deps are the collaborators shared by all screens
type Deps struct {
	Coordinator *discovery.Coordinator
	Client      *control.Client
	Store       *config.Store
	Port        int
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	deps Deps

	// Current screen state
	CurrentScreen Screen

	// Screen models
	DiscoveryModel DiscoveryModel
	RemoteModel    RemoteModel

	// Shared application state
	SelectedDevice *discovery.Result

	// UI state
	Width  int
	Height int
}

// NewAppModel creates the application model. A non-nil device opens the
// remote screen directly; otherwise the app starts with a scan.
func NewAppModel(deps Deps, device *protocol.Address) AppModel {
	if deps.Port <= 0 {
		deps.Port = protocol.DefaultPort
	}

	model := AppModel{
		deps:           deps,
		DiscoveryModel: NewDiscoveryModel(deps),
	}

	if device == nil {
		model.CurrentScreen = ScreenDiscovery
		return model
	}

	result := discovery.Result{Address: *device, DisplayName: device.IP}
	if deps.Store != nil {
		result.DisplayName = deps.Store.DisplayName(device.IP, "")
	}
	model.SelectedDevice = &result
	model.CurrentScreen = ScreenRemote
	model.RemoteModel = NewRemoteModel(deps, result)
	return model
}

// SetSize sets the initial terminal dimensions before the first WindowSizeMsg
func (m *AppModel) SetSize(width, height int) {
	m.Width, m.Height = width, height
	m.DiscoveryModel.Width, m.DiscoveryModel.Height = width, height
	m.RemoteModel.Width, m.RemoteModel.Height = width, height
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.Init()
	case ScreenRemote:
		return tea.Batch(m.RemoteModel.Init(), m.rememberDevice())
	default:
		return nil
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		// Propagate to all screens
		d, _ := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = d.(DiscoveryModel)
		r, _ := m.RemoteModel.Update(msg)
		m.RemoteModel = r.(RemoteModel)
		return m, nil

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case backToDiscoveryMsg:
		return m.transitionTo(ScreenDiscovery)
	}

	// Scan traffic keeps flowing to the discovery model even while the
	// remote screen is showing, so a running session can finish.
	if isScanMsg(msg) {
		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)
		return m, cmd
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.CurrentScreen {
	case ScreenDiscovery:
		updated, c := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)
		cmd = c

		// Check if user selected a device
		if m.DiscoveryModel.Selected {
			m.DiscoveryModel.Selected = false
			if device, ok := m.DiscoveryModel.DeviceList.SelectedItem().(deviceItem); ok {
				m.SelectedDevice = &device.result
				next, c := m.transitionTo(ScreenRemote)
				return next, tea.Batch(cmd, c)
			}
		}

	case ScreenRemote:
		updated, c := m.RemoteModel.Update(msg)
		m.RemoteModel = updated.(RemoteModel)
		cmd = c
	}

	return m, cmd
}

// transitionTo transitions to a new screen
func (m AppModel) transitionTo(screen Screen) (tea.Model, tea.Cmd) {
	m.CurrentScreen = screen

	switch screen {
	case ScreenDiscovery:
		// Keep the existing list; the user rescans with 'r'
		return m, nil

	case ScreenRemote:
		if m.SelectedDevice == nil {
			m.CurrentScreen = ScreenDiscovery
			return m, nil
		}
		m.RemoteModel = NewRemoteModel(m.deps, *m.SelectedDevice)
		m.RemoteModel.Width = m.Width
		m.RemoteModel.Height = m.Height
		return m, tea.Batch(m.RemoteModel.Init(), m.rememberDevice())
	}

	return m, nil
}

// rememberDevice stores the selected device as the last one used
func (m AppModel) rememberDevice() tea.Cmd {
	if m.deps.Store == nil || m.SelectedDevice == nil {
		return nil
	}
	store := m.deps.Store
	address := m.SelectedDevice.Address.String()
	return func() tea.Msg {
		store.SetLastDevice(address)
		return nil
	}
}

// View renders the current screen
// Each screen handles its own container using RenderApplicationContainer()
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.View()
	case ScreenRemote:
		return m.RemoteModel.View()
	default:
		return "Unknown screen"
	}
}

func isScanMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case scanStartedMsg, scanEventMsg, scanErrMsg, scanClosedMsg, renamedMsg:
		return true
	}
	return false
}
