package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/muurk/tvremote/internal/config"
	"github.com/muurk/tvremote/internal/protocol"
)

// settings are the effective runtime options after precedence is applied:
// command-line flag, then registry preferences, then package defaults.
type settings struct {
	Port           int
	Workers        int
	ProbeTimeout   time.Duration
	CheckTimeout   time.Duration
	CommandTimeout time.Duration
	LastDevice     string
}

// flagValues are the raw option flags and whether each was set explicitly
type flagValues struct {
	Port      int
	Workers   int
	TimeoutMs int
	Changed   func(name string) bool
}

// resolveSettings merges flags over preferences
func resolveSettings(flags flagValues, prefs *config.Preferences) settings {
	p := prefs.WithDefaults()
	s := settings{
		Port:           p.Port,
		Workers:        p.Workers,
		ProbeTimeout:   p.ProbeTimeout(),
		CheckTimeout:   p.CheckTimeout(),
		CommandTimeout: p.CommandTimeout(),
		LastDevice:     p.LastDevice,
	}

	changed := flags.Changed
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if changed("port") && flags.Port > 0 {
		s.Port = flags.Port
	}
	if changed("workers") && flags.Workers > 0 {
		s.Workers = flags.Workers
	}
	if changed("timeout-ms") && flags.TimeoutMs > 0 {
		s.ProbeTimeout = time.Duration(flags.TimeoutMs) * time.Millisecond
	}
	return s
}

// resolveDevice turns the --device value into an address. An address
// without a port uses the configured port. With no --device, the last
// connected TV is used when one is remembered.
func resolveDevice(device string, s settings) (protocol.Address, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		device = s.LastDevice
	}
	if device == "" {
		return protocol.Address{}, fmt.Errorf("no device specified. Use --device to give the TV's IP address (try 'tvremote scan')")
	}

	addr, err := protocol.ParseAddress(device)
	if err != nil {
		return protocol.Address{}, fmt.Errorf("invalid --device: %w", err)
	}
	if !strings.Contains(device, ":") && s.Port > 0 {
		addr.Port = s.Port
	}
	return addr, nil
}
