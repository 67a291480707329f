// Package tui implements the interactive terminal remote for JointSpace televisions.
//
// Built on Bubble Tea, the application has two screens:
//   - Discovery: scans the local /24 for televisions, shows progress and
//     results as they arrive, and supports rescan, cancel, manual IP entry
//     and renaming a device.
//   - Remote: checks that the chosen TV answers, then maps keyboard input to
//     remote-control key codes. Text mode types into the TV's focused field.
//
// Scan progress is consumed from the discovery coordinator's event channel one
// event per tea.Cmd, so the model never blocks the UI loop.
//
// # Usage Example
//
//	app := tui.NewAppModel(tui.Deps{
//	    Coordinator: coord,
//	    Client:      control.NewClient(),
//	    Store:       config.OpenDefault(),
//	}, nil)
//	program := tea.NewProgram(app, tea.WithAltScreen())
//
//	if _, err := program.Run(); err != nil {
//	    log.Fatal(err)
//	}
package tui
