// Package config provides user configuration management for tvremote.
//
// This package manages a YAML-based configuration file that stores
// user-chosen display names for televisions (keyed by IPv4 address), the
// name each device last reported, and application preferences such as the
// scan worker count and request timeouts.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/tvremote/config.yaml or $HOME/.config/tvremote/config.yaml
//   - macOS: $HOME/.config/tvremote/config.yaml
//   - Windows: %LOCALAPPDATA%\tvremote\config.yaml
//
// TVREMOTE_CONFIG overrides the location.
//
// # Name Resolution
//
// The name displayed for a device is the custom name if one was set, else
// the name the device reported over the control protocol, else the raw
// address:
//
//	store := config.NewStore(path)
//	store.SetName("192.168.1.42", "Sala")
//	store.DisplayName("192.168.1.42", "TV-X") // "Sala"
//	store.DisplayName("192.168.1.50", "TV-Y") // "TV-Y"
//	store.DisplayName("192.168.1.60", "")     // "192.168.1.60"
//
// # Failure Handling
//
// Store never returns I/O errors. A file that cannot be read means "no
// custom names"; a failed save is logged and dropped. An existing file that
// fails to parse is never overwritten.
//
// # Thread Safety
//
// Each Store serializes every load and save behind one mutex, so renames
// cannot race with name lookups made during a scan. Writes go to a
// temporary file that is renamed into place.
package config
