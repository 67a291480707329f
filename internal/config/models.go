package config

import (
	"strings"
	"time"
)

// CurrentVersion is the registry file format version
const CurrentVersion = 1

// Defaults applied when preferences are missing or zero
const (
	DefaultPort             = 1925
	DefaultWorkers          = 64
	DefaultProbeTimeoutMs   = 1000
	DefaultCommandTimeoutMs = 2000
	DefaultCheckTimeoutMs   = 2000
)

// Registry represents the entire user configuration file.
// This stores user-defined device names and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device IPv4 address
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents what the user and the scanner know about one address.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-chosen display name
	LastName string    `yaml:"last_name,omitempty"` // Name last reported by the device
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery/connection time
}

// Preferences represents application-wide user preferences.
// Zero values mean "use the default".
type Preferences struct {
	Port             int    `yaml:"port,omitempty"`               // Control API port
	Workers          int    `yaml:"workers,omitempty"`            // Concurrent probes during a scan
	ProbeTimeoutMs   int    `yaml:"probe_timeout_ms,omitempty"`   // Per-probe timeout
	CommandTimeoutMs int    `yaml:"command_timeout_ms,omitempty"` // Per-command timeout
	CheckTimeoutMs   int    `yaml:"check_timeout_ms,omitempty"`   // Reachability check timeout
	LastDevice       string `yaml:"last_device,omitempty"`        // Last connected address
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Devices:     make(map[string]*Device),
		Preferences: DefaultPreferences(),
	}
}

// DefaultPreferences returns preferences populated with package defaults
func DefaultPreferences() *Preferences {
	return &Preferences{
		Port:             DefaultPort,
		Workers:          DefaultWorkers,
		ProbeTimeoutMs:   DefaultProbeTimeoutMs,
		CommandTimeoutMs: DefaultCommandTimeoutMs,
		CheckTimeoutMs:   DefaultCheckTimeoutMs,
	}
}

// WithDefaults returns a copy of p with zero fields replaced by defaults.
// A nil receiver yields DefaultPreferences.
func (p *Preferences) WithDefaults() *Preferences {
	out := DefaultPreferences()
	if p == nil {
		return out
	}
	if p.Port > 0 {
		out.Port = p.Port
	}
	if p.Workers > 0 {
		out.Workers = p.Workers
	}
	if p.ProbeTimeoutMs > 0 {
		out.ProbeTimeoutMs = p.ProbeTimeoutMs
	}
	if p.CommandTimeoutMs > 0 {
		out.CommandTimeoutMs = p.CommandTimeoutMs
	}
	if p.CheckTimeoutMs > 0 {
		out.CheckTimeoutMs = p.CheckTimeoutMs
	}
	out.LastDevice = p.LastDevice
	return out
}

// ProbeTimeout returns the probe timeout as a duration
func (p *Preferences) ProbeTimeout() time.Duration {
	return time.Duration(p.WithDefaults().ProbeTimeoutMs) * time.Millisecond
}

// CommandTimeout returns the command timeout as a duration
func (p *Preferences) CommandTimeout() time.Duration {
	return time.Duration(p.WithDefaults().CommandTimeoutMs) * time.Millisecond
}

// CheckTimeout returns the reachability check timeout as a duration
func (p *Preferences) CheckTimeout() time.Duration {
	return time.Duration(p.WithDefaults().CheckTimeoutMs) * time.Millisecond
}

// GetDevice retrieves device metadata by address.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(ip string) *Device {
	return r.Devices[ip]
}

// EnsureDevice ensures a device entry exists in the registry.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(ip string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[ip]; exists {
		return device
	}

	device := &Device{}
	r.Devices[ip] = device
	return device
}

// SetDeviceNickname sets a user-friendly nickname for a device.
// A blank nickname clears the override.
func (r *Registry) SetDeviceNickname(ip, nickname string) {
	device := r.EnsureDevice(ip)
	device.Nickname = strings.TrimSpace(nickname)
}

// UpdateDeviceLastSeen updates the last seen timestamp and reported name.
// An empty reported name leaves the stored one unchanged.
func (r *Registry) UpdateDeviceLastSeen(ip, reportedName string) {
	device := r.EnsureDevice(ip)
	device.LastSeen = time.Now()
	if reportedName != "" {
		device.LastName = reportedName
	}
}

// Nickname returns the custom name for ip, if any
func (r *Registry) Nickname(ip string) (string, bool) {
	device := r.GetDevice(ip)
	if device == nil || device.Nickname == "" {
		return "", false
	}
	return device.Nickname, true
}

// ResolveDisplayName applies the naming rule: custom name if present,
// else the protocol-reported name, else the raw address.
func ResolveDisplayName(custom, reported, ip string) string {
	if custom != "" {
		return custom
	}
	if reported != "" {
		return reported
	}
	return ip
}
