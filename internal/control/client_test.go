package control

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/tvremote/internal/protocol"
)

// recordedRequest captures one request seen by the mock TV
type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Type   string
}

// mockTV is an httptest server that records every request and answers
// according to per-path status codes.
type mockTV struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	status   map[string]int
	body     map[string]string
}

func newMockTV(t *testing.T) *mockTV {
	t.Helper()
	m := &mockTV{
		status: make(map[string]int),
		body:   make(map[string]string),
	}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		m.mu.Lock()
		m.requests = append(m.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Body:   string(data),
			Type:   r.Header.Get("Content-Type"),
		})
		status, ok := m.status[r.URL.Path]
		body := m.body[r.URL.Path]
		m.mu.Unlock()

		if !ok {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockTV) address(t *testing.T) protocol.Address {
	t.Helper()
	return serverAddress(t, m.server)
}

func (m *mockTV) setStatus(path string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[path] = status
}

func (m *mockTV) setBody(path, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body[path] = body
}

func (m *mockTV) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func serverAddress(t *testing.T, server *httptest.Server) protocol.Address {
	t.Helper()
	addr, err := protocol.ParseAddress(strings.TrimPrefix(server.URL, "http://"))
	if err != nil {
		t.Fatalf("ParseAddress(%s) error = %v", server.URL, err)
	}
	return addr
}

func TestNewClient(t *testing.T) {
	client := NewClient()

	if client.HTTPClient == nil {
		t.Error("HTTPClient should not be nil")
	}

	if client.CheckTimeout != DefaultCheckTimeout {
		t.Errorf("CheckTimeout = %v, want %v", client.CheckTimeout, DefaultCheckTimeout)
	}

	if client.CommandTimeout != DefaultCommandTimeout {
		t.Errorf("CommandTimeout = %v, want %v", client.CommandTimeout, DefaultCommandTimeout)
	}
}

func TestSetTimeouts(t *testing.T) {
	client := NewClient()
	client.SetTimeouts(5*time.Second, 0)

	if client.CheckTimeout != 5*time.Second {
		t.Errorf("CheckTimeout = %v, want 5s", client.CheckTimeout)
	}

	if client.CommandTimeout != DefaultCommandTimeout {
		t.Errorf("CommandTimeout = %v, want unchanged %v", client.CommandTimeout, DefaultCommandTimeout)
	}
}

func TestCheckReachable_Success(t *testing.T) {
	tv := newMockTV(t)
	tv.setBody(protocol.SystemPath, `{"name":"LivingRoomTV"}`)

	client := NewClient()
	if err := client.CheckReachable(context.Background(), tv.address(t)); err != nil {
		t.Errorf("CheckReachable() error = %v, want nil", err)
	}

	reqs := tv.recorded()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if reqs[0].Method != http.MethodGet || reqs[0].Path != protocol.SystemPath {
		t.Errorf("request = %s %s, want GET %s", reqs[0].Method, reqs[0].Path, protocol.SystemPath)
	}
}

func TestCheckReachable_HTTPError(t *testing.T) {
	tv := newMockTV(t)
	tv.setStatus(protocol.SystemPath, http.StatusInternalServerError)

	client := NewClient()
	err := client.CheckReachable(context.Background(), tv.address(t))

	if err == nil {
		t.Fatal("CheckReachable() should return error for HTTP 500")
	}

	if !IsHTTPError(err) {
		t.Errorf("CheckReachable() error should be HTTP error, got %v", err)
	}

	devErr, ok := err.(*DeviceError)
	if !ok {
		t.Fatalf("error type = %T, want *DeviceError", err)
	}
	if devErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", devErr.StatusCode)
	}

	if len(tv.recorded()) != 1 {
		t.Errorf("requests = %d, want exactly 1 (no retries)", len(tv.recorded()))
	}
}

func TestCheckReachable_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := serverAddress(t, server)
	server.Close()

	client := NewClient()
	err := client.CheckReachable(context.Background(), addr)

	if err == nil {
		t.Fatal("CheckReachable() should fail against a closed port")
	}

	if !IsConnectionRefused(err) {
		t.Errorf("CheckReachable() error should be connection refused, got %v", err)
	}
}

func TestCheckReachable_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient()
	client.SetTimeouts(50*time.Millisecond, 0)

	start := time.Now()
	err := client.CheckReachable(context.Background(), serverAddress(t, server))

	if !IsTimeout(err) {
		t.Errorf("CheckReachable() error should be timeout, got %v", err)
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("CheckReachable() took %v, timeout was not applied", elapsed)
	}
}

func TestSendKey(t *testing.T) {
	tv := newMockTV(t)

	client := NewClient()
	client.SendKey(context.Background(), tv.address(t), protocol.KeyVolumeUp)

	reqs := tv.recorded()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}

	req := reqs[0]
	if req.Method != http.MethodPost || req.Path != protocol.KeyPath {
		t.Errorf("request = %s %s, want POST %s", req.Method, req.Path, protocol.KeyPath)
	}
	if req.Type != protocol.ContentTypeJSON {
		t.Errorf("Content-Type = %q, want %q", req.Type, protocol.ContentTypeJSON)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["key"] != "VolumeUp" {
		t.Errorf("body key = %q, want VolumeUp", body["key"])
	}
}

func TestSendKey_FailuresAreSwallowed(t *testing.T) {
	tv := newMockTV(t)
	tv.setStatus(protocol.KeyPath, http.StatusServiceUnavailable)

	client := NewClient()
	client.SendKey(context.Background(), tv.address(t), protocol.KeyMute)

	if got := len(tv.recorded()); got != 1 {
		t.Errorf("requests = %d, want 1 (no retries)", got)
	}

	// Closed port: must return without panicking
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := serverAddress(t, server)
	server.Close()
	client.SendKey(context.Background(), addr, protocol.KeyMute)
}

func TestSendText(t *testing.T) {
	tests := []struct {
		name       string
		textStatus int
		keyStatus  int
		wantPaths  []string
	}{
		{
			name:       "text endpoint accepts",
			textStatus: http.StatusOK,
			keyStatus:  http.StatusOK,
			wantPaths:  []string{protocol.TextPath},
		},
		{
			name:       "text endpoint fails, falls back once",
			textStatus: http.StatusInternalServerError,
			keyStatus:  http.StatusOK,
			wantPaths:  []string{protocol.TextPath, protocol.KeyPath},
		},
		{
			name:       "fallback failure is not retried",
			textStatus: http.StatusNotFound,
			keyStatus:  http.StatusInternalServerError,
			wantPaths:  []string{protocol.TextPath, protocol.KeyPath},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tv := newMockTV(t)
			tv.setStatus(protocol.TextPath, tt.textStatus)
			tv.setStatus(protocol.KeyPath, tt.keyStatus)

			client := NewClient()
			client.SendText(context.Background(), tv.address(t), "hello tv")

			reqs := tv.recorded()
			if len(reqs) != len(tt.wantPaths) {
				t.Fatalf("requests = %d, want %d: %+v", len(reqs), len(tt.wantPaths), reqs)
			}
			for i, path := range tt.wantPaths {
				if reqs[i].Path != path {
					t.Errorf("request[%d].Path = %s, want %s", i, reqs[i].Path, path)
				}
			}

			if reqs[0].Body != `{"text":"hello tv"}` {
				t.Errorf("text body = %s", reqs[0].Body)
			}
			if len(reqs) == 2 && reqs[1].Body != `{"key":"hello tv"}` {
				t.Errorf("fallback body = %s, want {\"key\":\"hello tv\"}", reqs[1].Body)
			}
		})
	}
}

func TestSupportedKeys(t *testing.T) {
	tv := newMockTV(t)
	tv.setBody(protocol.SettingsStructurePath,
		`{"node":{"data":{"nodes":[{"context":"Mute"},{"context":"VolumeUp"},{"context":"Home"}]}}}`)

	client := NewClient()
	got := client.SupportedKeys(context.Background(), tv.address(t), protocol.Keys)

	want := map[protocol.Key]bool{protocol.KeyHome: true, protocol.KeyVolumeUp: true, protocol.KeyMute: true}
	if len(got) != len(want) {
		t.Fatalf("SupportedKeys() = %v, want %d keys", got, len(want))
	}
	for _, k := range got {
		if !want[k] {
			t.Errorf("unexpected key %s", k)
		}
	}
}

func TestSupportedKeys_FailSoft(t *testing.T) {
	tv := newMockTV(t)
	tv.setStatus(protocol.SettingsStructurePath, http.StatusNotFound)
	tv.setBody(protocol.SettingsStructurePath, "Mute VolumeUp")

	client := NewClient()
	if got := client.SupportedKeys(context.Background(), tv.address(t), protocol.Keys); got != nil {
		t.Errorf("SupportedKeys() = %v, want nil on 404", got)
	}
}
