package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

// timeoutError implements net.Error with Timeout() == true
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func dialError(err error) error {
	return &url.Error{
		Op:  "Get",
		URL: "http://192.168.1.42:1925/1/system",
		Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: err,
		},
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantType    ErrorType
		wantSubtype NetworkErrorSubtype
	}{
		{
			name:        "dial timeout",
			err:         dialError(&timeoutError{}),
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
		},
		{
			name:        "context deadline",
			err:         &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded},
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
		},
		{
			name:        "connection refused",
			err:         dialError(syscall.ECONNREFUSED),
			wantType:    ErrTypeConnectionRefused,
			wantSubtype: NetworkErrorConnectionRefused,
		},
		{
			name:        "host unreachable",
			err:         dialError(syscall.EHOSTUNREACH),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorHostUnreachable,
		},
		{
			name:        "network unreachable",
			err:         dialError(syscall.ENETUNREACH),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorNetworkUnreachable,
		},
		{
			name:        "other dial failure",
			err:         dialError(syscall.ECONNRESET),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorGeneral,
		},
		{
			name:     "unrecognised",
			err:      errors.New("something odd"),
			wantType: ErrTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := ClassifyNetworkError(tt.err, "192.168.1.42:1925")
			if devErr == nil {
				t.Fatal("Expected DeviceError, got nil")
			}

			if devErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", devErr.Type, tt.wantType)
			}

			if devErr.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", devErr.NetworkSubtype, tt.wantSubtype)
			}

			if devErr.Address != "192.168.1.42:1925" {
				t.Errorf("Address = %q", devErr.Address)
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if devErr := ClassifyNetworkError(nil, "192.168.1.42:1925"); devErr != nil {
		t.Errorf("ClassifyNetworkError(nil) = %v, want nil", devErr)
	}
}

func TestDeviceError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &DeviceError{Type: ErrTypeNetwork, Message: "Host unreachable", Err: cause}

	if !strings.Contains(err.Error(), "Host unreachable") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Error() = %q", err.Error())
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the underlying cause")
	}

	plain := NewHTTPError(404, "192.168.1.42:1925")
	if plain.Error() != "HTTP Error: unexpected status code: 404" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestErrorPredicates_Wrapped(t *testing.T) {
	timeout := ClassifyNetworkError(dialError(&timeoutError{}), "a")
	wrapped := fmt.Errorf("check failed: %w", timeout)

	if !IsTimeout(wrapped) {
		t.Error("IsTimeout should see through wrapping")
	}
	if !IsNetworkError(wrapped) {
		t.Error("timeout should count as a network error")
	}
	if IsHTTPError(wrapped) || IsConnectionRefused(wrapped) {
		t.Error("timeout misclassified")
	}

	if IsTimeout(errors.New("plain")) {
		t.Error("plain errors are not DeviceErrors")
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want string
	}{
		{ErrTypeNetwork, "Network Error"},
		{ErrTypeHTTP, "HTTP Error"},
		{ErrTypeTimeout, "Timeout"},
		{ErrTypeConnectionRefused, "Connection Refused"},
		{ErrTypeUnknown, "Unknown Error"},
		{ErrorType(42), "ErrorType(42)"},
	}

	for _, tt := range tests {
		if got := tt.et.String(); got != tt.want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", int(tt.et), got, tt.want)
		}
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", ClassifyNetworkError(dialError(&timeoutError{}), "a"), "TV not responding (timeout)"},
		{"refused", ClassifyNetworkError(dialError(syscall.ECONNREFUSED), "a"), "TV refused connection - is remote control enabled?"},
		{"host unreachable", ClassifyNetworkError(dialError(syscall.EHOSTUNREACH), "a"), "TV unreachable - check network connection"},
		{"http", NewHTTPError(503, "a"), "TV error (HTTP 503)"},
		{"plain", errors.New("plain failure"), "plain failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetShortErrorMessage(tt.err); got != tt.want {
				t.Errorf("GetShortErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	hostErr := ClassifyNetworkError(dialError(syscall.EHOSTUNREACH), "192.168.1.42:1925")
	hint := GetTroubleshootingHint(hostErr)
	if !strings.Contains(hint, "ping 192.168.1.42") {
		t.Errorf("host unreachable hint should suggest pinging the IP, got:\n%s", hint)
	}

	refused := GetTroubleshootingHint(ClassifyNetworkError(dialError(syscall.ECONNREFUSED), "a"))
	if !strings.Contains(refused, "1925") {
		t.Errorf("refused hint should mention the default port, got:\n%s", refused)
	}

	if !strings.Contains(GetTroubleshootingHint(NewHTTPError(500, "a")), "HTTP 500") {
		t.Error("server error hint should carry the status")
	}

	if GetTroubleshootingHint(errors.New("x")) != "An unexpected error occurred. Please try again." {
		t.Error("non-DeviceError should get the generic hint")
	}
}
