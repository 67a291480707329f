package control

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/tvremote/internal/logging"
	"github.com/muurk/tvremote/internal/protocol"
)

const (
	// DefaultCheckTimeout bounds the reachability check and the supported-key probe
	DefaultCheckTimeout = 2 * time.Second

	// DefaultCommandTimeout bounds each key or text POST
	DefaultCommandTimeout = 2 * time.Second

	// maxBodySize caps how much of a response body is read
	maxBodySize = 1 << 20
)

// Client sends commands to a JointSpace TV.
//
// Commands are fire-and-forget: SendKey and SendText never report failure.
// CheckReachable is the only operation that surfaces an error. Nothing is
// retried; a dropped key press is corrected by pressing again.
type Client struct {
	// HTTPClient is the underlying HTTP client. Per-request deadlines come
	// from the timeouts below, not from HTTPClient.Timeout.
	HTTPClient *http.Client

	// CheckTimeout bounds CheckReachable and SupportedKeys
	CheckTimeout time.Duration

	// CommandTimeout bounds each POST made by SendKey and SendText
	CommandTimeout time.Duration

	logger *zap.Logger
}

// NewClient creates a control client with default timeouts
func NewClient() *Client {
	return &Client{
		HTTPClient:     &http.Client{},
		CheckTimeout:   DefaultCheckTimeout,
		CommandTimeout: DefaultCommandTimeout,
		logger:         logging.Named("control"),
	}
}

// SetTimeouts sets the check and command timeouts. Non-positive values keep
// the current setting.
func (c *Client) SetTimeouts(check, command time.Duration) {
	if check > 0 {
		c.CheckTimeout = check
	}
	if command > 0 {
		c.CommandTimeout = command
	}
}

// SetLogger replaces the client's logger
func (c *Client) SetLogger(l *zap.Logger) {
	if l != nil {
		c.logger = l
	}
}

// CheckReachable performs a single GET of the system-info endpoint.
// It returns nil on HTTP 200 and a *DeviceError otherwise.
func (c *Client) CheckReachable(ctx context.Context, addr protocol.Address) error {
	ctx, cancel := context.WithTimeout(ctx, c.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.URL(protocol.SystemPath), nil)
	if err != nil {
		return &DeviceError{Type: ErrTypeUnknown, Message: "failed to create request", Err: err, Address: addr.String()}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := ClassifyNetworkError(err, addr.String())
		c.logger.Debug("Reachability check failed",
			zap.String("address", addr.String()),
			zap.Stringer("type", devErr.Type),
			zap.Error(err))
		return devErr
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Reachability check rejected",
			zap.String("address", addr.String()),
			zap.Int("status", resp.StatusCode))
		return NewHTTPError(resp.StatusCode, addr.String())
	}

	c.logger.Debug("Device reachable", zap.String("address", addr.String()))
	return nil
}

// SendKey presses one remote-control key. Failures are logged at debug
// level and otherwise ignored.
func (c *Client) SendKey(ctx context.Context, addr protocol.Address, key protocol.Key) {
	c.postKey(ctx, addr, string(key))
}

// SendText types text into the focused input field. If the text endpoint
// does not answer 200, the text is sent once to the key endpoint instead.
// Neither failure is reported.
func (c *Client) SendText(ctx context.Context, addr protocol.Address, text string) {
	body, err := protocol.EncodeText(text)
	if err != nil {
		return
	}
	if c.post(ctx, addr, protocol.TextPath, body) {
		return
	}
	c.postKey(ctx, addr, text)
}

// SupportedKeys returns the members of keys whose names appear in the
// device's settings structure. Any failure yields nil.
func (c *Client) SupportedKeys(ctx context.Context, addr protocol.Address, keys []protocol.Key) []protocol.Key {
	ctx, cancel := context.WithTimeout(ctx, c.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.URL(protocol.SettingsStructurePath), nil)
	if err != nil {
		return nil
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Debug("Settings structure unavailable", zap.String("address", addr.String()), zap.Error(err))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Settings structure unavailable",
			zap.String("address", addr.String()),
			zap.Int("status", resp.StatusCode))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil
	}

	text := string(data)
	var found []protocol.Key
	for _, k := range keys {
		if k != "" && strings.Contains(text, string(k)) {
			found = append(found, k)
		}
	}
	return found
}

func (c *Client) postKey(ctx context.Context, addr protocol.Address, key string) {
	body, err := protocol.EncodeKey(key)
	if err != nil {
		return
	}
	c.post(ctx, addr, protocol.KeyPath, body)
}

// post sends one JSON body and reports whether the device answered 200
func (c *Client) post(ctx context.Context, addr protocol.Address, path string, body []byte) bool {
	ctx, cancel := context.WithTimeout(ctx, c.CommandTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr.URL(path), bytes.NewReader(body))
	if err != nil {
		logging.LogCommand(c.logger, addr.String(), path, string(body), 0, err)
		return false
	}
	req.Header.Set("Content-Type", protocol.ContentTypeJSON)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logging.LogCommand(c.logger, addr.String(), path, string(body), 0, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode != http.StatusOK {
		logging.LogCommand(c.logger, addr.String(), path, string(body), resp.StatusCode,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		return false
	}

	logging.LogCommand(c.logger, addr.String(), path, string(body), resp.StatusCode, nil)
	return true
}
