package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/tvremote/internal/logging"
)

// Store is the durable name-override registry.
//
// Every operation loads the file, and mutations write it back, under a
// single mutex. I/O failures are logged and otherwise ignored: a store that
// cannot be read behaves as if no custom names exist.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// DeviceEntry is a flattened registry row for listing
type DeviceEntry struct {
	Address string
	Device
}

// NewStore creates a store backed by the file at path
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: logging.Named("registry"),
	}
}

// OpenDefault creates a store at the platform default location.
// An unresolvable location degrades to a store that never persists.
func OpenDefault() *Store {
	path, err := GetConfigPath()
	if err != nil {
		logging.Warn("Cannot determine config path, names will not persist", zap.Error(err))
		path = ""
	}
	return NewStore(path)
}

// SetLogger replaces the store's logger
func (s *Store) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// load reads the registry. Caller must hold s.mu.
func (s *Store) load() (*Registry, bool) {
	if s.path == "" {
		return NewRegistry(), false
	}
	reg, err := LoadRegistryFile(s.path)
	if err != nil {
		s.logger.Warn("Failed to load registry", zap.String("path", s.path), zap.Error(err))
		return NewRegistry(), false
	}
	return reg, true
}

// save writes the registry. Caller must hold s.mu.
func (s *Store) save(reg *Registry) {
	if s.path == "" {
		return
	}
	if err := reg.SaveFile(s.path); err != nil {
		s.logger.Warn("Failed to save registry", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.logger.Debug("Registry saved", zap.String("path", s.path))
}

// update performs a locked read-modify-write.
// An unreadable file is not overwritten.
func (s *Store) update(fn func(*Registry)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.load()
	if !ok && s.path != "" && fileExists(s.path) {
		return
	}
	fn(reg)
	s.save(reg)
}

// GetName returns the custom name for ip, if one is stored
func (s *Store) GetName(ip string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, _ := s.load()
	return reg.Nickname(ip)
}

// SetName stores a custom name for ip, replacing any previous one.
// A blank name clears the override.
func (s *Store) SetName(ip, name string) {
	s.update(func(reg *Registry) {
		reg.SetDeviceNickname(ip, name)
	})
}

// DisplayName resolves the name shown for ip: the custom name if present,
// else reported, else ip itself.
func (s *Store) DisplayName(ip, reported string) string {
	custom, _ := s.GetName(ip)
	return ResolveDisplayName(custom, reported, ip)
}

// RecordSeen remembers that ip answered with the given reported name
func (s *Store) RecordSeen(ip, reported string) {
	s.update(func(reg *Registry) {
		reg.UpdateDeviceLastSeen(ip, reported)
	})
}

// Devices returns all registry entries sorted by address
func (s *Store) Devices() []DeviceEntry {
	s.mu.Lock()
	reg, _ := s.load()
	s.mu.Unlock()

	entries := make([]DeviceEntry, 0, len(reg.Devices))
	for ip, dev := range reg.Devices {
		if dev == nil {
			continue
		}
		entries = append(entries, DeviceEntry{Address: ip, Device: *dev})
	}
	sort.Slice(entries, func(i, j int) bool {
		return compareIPv4(entries[i].Address, entries[j].Address) < 0
	})
	return entries
}

// Preferences returns the stored preferences with defaults applied
func (s *Store) Preferences() *Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, _ := s.load()
	return reg.Preferences.WithDefaults()
}

// SetLastDevice remembers the most recently connected address
func (s *Store) SetLastDevice(address string) {
	s.update(func(reg *Registry) {
		if reg.Preferences == nil {
			reg.Preferences = &Preferences{}
		}
		reg.Preferences.LastDevice = address
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// compareIPv4 orders dotted quads numerically, falling back to string order
func compareIPv4(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	if len(pa) != 4 || len(pb) != 4 {
		return strings.Compare(a, b)
	}
	for i := 0; i < 4; i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		if errA != nil || errB != nil {
			return strings.Compare(a, b)
		}
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return 0
}
