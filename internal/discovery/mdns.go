package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/tvremote/internal/protocol"
)

const (
	// ServiceTypeRPC is the plain-HTTP JointSpace service
	ServiceTypeRPC = "_philipstv_rpc._tcp"

	// ServiceTypeSecureRPC is the HTTPS JointSpace service
	ServiceTypeSecureRPC = "_philipstv_s_rpc._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultBrowseTimeout is the default time spent listening for advertisements
	DefaultBrowseTimeout = 5 * time.Second
)

// ServiceTypes lists the services Browse listens for
var ServiceTypes = []string{ServiceTypeRPC, ServiceTypeSecureRPC}

// Advertisement is a TV found via mDNS
type Advertisement struct {
	// Instance is the advertised service instance name (often the TV name)
	Instance string

	// Service is the service type the advertisement was seen on
	Service string

	// Host is the mDNS hostname (e.g., "tv-living.local.")
	Host string

	// IP is the IPv4 address, or IPv6 when no IPv4 was advertised
	IP string

	// Port is the advertised service port
	Port int

	// Metadata contains the TXT record data
	Metadata map[string]string
}

// Address returns the control API address for the advertised host.
// The control API always listens on protocol.DefaultPort, whatever the
// advertised service port.
func (a Advertisement) Address() protocol.Address {
	return protocol.NewAddress(a.IP)
}

// Browser discovers TVs through mDNS advertisements
type Browser struct {
	// Timeout is how long to listen for advertisements
	Timeout time.Duration
}

// NewBrowser creates a browser with default settings
func NewBrowser() *Browser {
	return &Browser{Timeout: DefaultBrowseTimeout}
}

// Browse listens for JointSpace advertisements until the timeout elapses
// or ctx is cancelled. A TV advertising several services is reported once
// per service. Results are sorted by IP.
func (b *Browser) Browse(ctx context.Context) ([]Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		found = make(map[string]Advertisement)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, service := range ServiceTypes {
		g.Go(func() error {
			// One resolver per service type; a resolver supports a single browse
			resolver, err := zeroconf.NewResolver(nil)
			if err != nil {
				return fmt.Errorf("failed to create mDNS resolver: %w", err)
			}

			entries := make(chan *zeroconf.ServiceEntry)
			if err := resolver.Browse(gctx, service, ServiceDomain, entries); err != nil {
				return fmt.Errorf("failed to browse for %s: %w", service, err)
			}

			for {
				select {
				case entry, ok := <-entries:
					if !ok {
						return nil
					}
					ad := parseServiceEntry(service, entry)
					if ad == nil {
						continue
					}
					mu.Lock()
					found[service+"|"+ad.Instance+"|"+ad.IP] = *ad
					mu.Unlock()
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	ads := make([]Advertisement, 0, len(found))
	for _, ad := range found {
		ads = append(ads, ad)
	}
	sort.Slice(ads, func(i, j int) bool {
		if c := compareAddress(ads[i].Address(), ads[j].Address()); c != 0 {
			return c < 0
		}
		return ads[i].Service < ads[j].Service
	})
	return ads, nil
}

// parseServiceEntry converts a zeroconf service entry to an Advertisement.
// Returns nil if the entry carries no address.
func parseServiceEntry(service string, entry *zeroconf.ServiceEntry) *Advertisement {
	if entry == nil {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}

	// Fallback to IPv6 if no IPv4
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	// Parse TXT records into metadata
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		// TXT records are in "key=value" format
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			// Key without value
			metadata[parts[0]] = ""
		}
	}

	return &Advertisement{
		Instance: unescapeInstance(entry.Instance),
		Service:  service,
		Host:     entry.HostName,
		IP:       ip,
		Port:     entry.Port,
		Metadata: metadata,
	}
}

// unescapeInstance removes DNS label escaping ("Living\ Room" -> "Living Room")
func unescapeInstance(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// Browse is a convenience function to browse with a custom timeout
func Browse(ctx context.Context, timeout time.Duration) ([]Advertisement, error) {
	browser := NewBrowser()
	if timeout > 0 {
		browser.Timeout = timeout
	}
	return browser.Browse(ctx)
}
