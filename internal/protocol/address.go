package protocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the JointSpace HTTP API port.
const DefaultPort = 1925

// Address identifies a device endpoint on the local network.
// It is a value type; copies are independent and never mutated after creation.
type Address struct {
	// IP is the dotted-quad IPv4 address (e.g., "192.168.1.42")
	IP string

	// Port is the JointSpace API port (typically 1925)
	Port int
}

// NewAddress creates an address for ip on the default port
func NewAddress(ip string) Address {
	return Address{IP: ip, Port: DefaultPort}
}

// ParseAddress parses "ip" or "ip:port" into an Address.
// Only IPv4 addresses are accepted.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}

	host, port := s, DefaultPort
	if strings.Contains(s, ":") {
		h, p, err := net.SplitHostPort(s)
		if err != nil {
			return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return Address{}, fmt.Errorf("invalid port in %q", s)
		}
		host, port = h, n
	}

	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return Address{}, fmt.Errorf("invalid IPv4 address %q", host)
	}

	return Address{IP: ip.To4().String(), Port: port}, nil
}

// String returns "ip:port"
func (a Address) String() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(a.Port))
}

// BaseURL returns the HTTP base URL for the device
func (a Address) BaseURL() string {
	return "http://" + a.String()
}

// URL returns the full URL for an API path on the device
func (a Address) URL(path string) string {
	return a.BaseURL() + path
}
