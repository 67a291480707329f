package discovery

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/muurk/tvremote/internal/logging"
	"github.com/muurk/tvremote/internal/protocol"
)

const (
	// FallbackPrefix is used when the local address cannot be detected
	FallbackPrefix = "192.168.1"

	// detectTarget is a public address used only to select a route.
	// Dialing UDP sends no packets.
	detectTarget = "8.8.8.8:1"

	// hostsPerSubnet is the number of usable host addresses in a /24
	hostsPerSubnet = 254
)

// DetectFunc returns the host's primary local IPv4 address
type DetectFunc func() (net.IP, error)

// CandidateSource yields the addresses a scan should probe
type CandidateSource interface {
	Candidates() []protocol.Address
}

// Enumerator derives scan candidates from the local /24 subnet
type Enumerator struct {
	// Detect finds the local address (default: LocalIPv4)
	Detect DetectFunc

	// Port is the control API port assigned to every candidate
	Port int

	logger *zap.Logger
}

// NewEnumerator creates an enumerator using route-based detection
func NewEnumerator(port int) *Enumerator {
	if port <= 0 {
		port = protocol.DefaultPort
	}
	return &Enumerator{
		Detect: LocalIPv4,
		Port:   port,
		logger: logging.Named("enumerator"),
	}
}

// SetLogger replaces the enumerator's logger
func (e *Enumerator) SetLogger(l *zap.Logger) {
	if l != nil {
		e.logger = l
	}
}

// LocalIPv4 returns the local address the OS would use to reach the
// internet, by connecting a UDP socket without sending anything.
func LocalIPv4() (net.IP, error) {
	conn, err := net.Dial("udp4", detectTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to select route: %w", err)
	}
	defer func() { _ = conn.Close() }()

	udpAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address type %T", conn.LocalAddr())
	}
	return udpAddr.IP, nil
}

// LocalIP returns the detected address, or the fallback subnet's .0
// address when detection fails or yields something unusable.
func (e *Enumerator) LocalIP() net.IP {
	detect := e.Detect
	if detect == nil {
		detect = LocalIPv4
	}

	ip, err := detect()
	switch {
	case err != nil:
		e.logger.Debug("Local address detection failed, using fallback",
			zap.String("fallback", FallbackPrefix), zap.Error(err))
	case ip.To4() == nil:
		e.logger.Debug("Local address is not IPv4, using fallback",
			zap.Stringer("detected", ip), zap.String("fallback", FallbackPrefix))
	case ip.IsLoopback():
		e.logger.Debug("Local address is loopback, using fallback",
			zap.Stringer("detected", ip), zap.String("fallback", FallbackPrefix))
	default:
		e.logger.Debug("Detected local address", zap.Stringer("ip", ip))
		return ip.To4()
	}
	return net.ParseIP(FallbackPrefix + ".0").To4()
}

// Candidates returns the 254 host addresses of the local /24.
// It never fails; detection problems degrade to FallbackPrefix.
func (e *Enumerator) Candidates() []protocol.Address {
	return Candidates(e.LocalIP(), e.Port)
}

// Candidates expands local into x.y.z.1 through x.y.z.254, in order.
// The local address itself is included. A non-IPv4 local address is
// replaced by FallbackPrefix.
func Candidates(local net.IP, port int) []protocol.Address {
	v4 := local.To4()
	if v4 == nil {
		v4 = net.ParseIP(FallbackPrefix + ".0").To4()
	}
	prefix := Prefix(v4)

	out := make([]protocol.Address, 0, hostsPerSubnet)
	for host := 1; host <= hostsPerSubnet; host++ {
		out = append(out, protocol.Address{
			IP:   fmt.Sprintf("%s.%d", prefix, host),
			Port: port,
		})
	}
	return out
}

// Prefix returns the first three octets of an IPv4 address ("192.168.1")
func Prefix(ip net.IP) string {
	v4 := ip.To4()
	if v4 == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", v4[0], v4[1], v4[2])
}
