package discovery

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/muurk/tvremote/internal/protocol"
)

// DefaultProbeTimeout bounds a single probe
const DefaultProbeTimeout = 1 * time.Second

// maxProbeBody caps how much of a /1/system response is read
const maxProbeBody = 64 << 10

// Prober tests one address for the control API.
// It returns the device name and true when a device answered.
type Prober interface {
	Probe(ctx context.Context, addr protocol.Address) (string, bool)
}

// HTTPProber probes with a single GET of the system-info endpoint
type HTTPProber struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Timeout bounds each probe
	Timeout time.Duration
}

// NewHTTPProber creates a prober with the given per-probe timeout.
// A non-positive timeout selects DefaultProbeTimeout.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPProber{
		// Every host is contacted once per scan
		HTTPClient: &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
		Timeout:    timeout,
	}
}

// Probe reports whether addr answers GET /1/system with HTTP 200 and a
// parseable JSON body. The name is the reported "name" field, or addr.IP
// when absent.
// Every failure is the expected "no device here" outcome and is not logged.
func (p *HTTPProber) Probe(ctx context.Context, addr protocol.Address) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.URL(protocol.SystemPath), nil)
	if err != nil {
		return "", false
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return "", false
	}

	info, err := protocol.DecodeSystemInfo(body)
	if err != nil {
		return "", false
	}
	return info.NameOr(addr.IP), true
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, addr protocol.Address) (string, bool)

// Probe calls f(ctx, addr)
func (f ProberFunc) Probe(ctx context.Context, addr protocol.Address) (string, bool) {
	return f(ctx, addr)
}
