package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Error types for device reachability checks

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (host/network unreachable, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates the device answered with a non-200 status
	ErrTypeHTTP
	// ErrTypeTimeout indicates the device did not answer in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the control port
	ErrTypeConnectionRefused
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents a failed reachability check
type DeviceError struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (if applicable)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Address        string              // Device address (for context)
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a DeviceError
func ClassifyNetworkError(err error, address string) *DeviceError {
	if err == nil {
		return nil
	}

	// Check for timeout errors
	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &DeviceError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Address:        address,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &DeviceError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Device refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Address:        address,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Address:        address,
			}
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Address:        address,
			}
		}
		return &DeviceError{
			Type:           ErrTypeNetwork,
			Message:        "Network error occurred",
			Err:            err,
			NetworkSubtype: NetworkErrorGeneral,
			Address:        address,
		}
	}

	// Check for URL errors
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Recursively classify the underlying error
		return ClassifyNetworkError(urlErr.Err, address)
	}

	return &DeviceError{
		Type:    ErrTypeUnknown,
		Message: "Request failed",
		Err:     err,
		Address: address,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, address string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
		Address:    address,
	}
}

func errorType(err error) (ErrorType, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Type, true
	}
	return ErrTypeUnknown, false
}

// IsTimeout checks if an error is a timeout
func IsTimeout(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTimeout
}

// IsConnectionRefused checks if an error is a refused connection
func IsConnectionRefused(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeConnectionRefused
}

// IsNetworkError checks if an error is any transport-level failure
func IsNetworkError(err error) bool {
	t, ok := errorType(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout || t == ErrTypeConnectionRefused)
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeHTTP
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The TV did not respond in time.",
			"Troubleshooting:",
			"  • Check that the TV is switched on (not in deep standby)",
			"  • Verify this computer is on the same network as the TV",
			"  • Try again with a longer --timeout-ms",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The TV refused the connection.",
			"Troubleshooting:",
			"  • The address answers, but nothing listens on the control port",
			"  • Verify the port number (default is 1925)",
			"  • Enable remote control/JointSpace in the TV network settings",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}

		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The TV is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the IP address is correct (try `tvremote scan`)",
				"  • Ensure the TV is powered on and connected",
				"  • Try pinging the TV: ping "+hostOf(devErr.Address))

		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer cannot reach the TV's network.",
				"Troubleshooting:",
				"  • Check your network adapter settings",
				"  • Verify WiFi or Ethernet is connected")

		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the TV is powered on",
				"  • Ensure you're connected to the same network as the TV")
		}

		return strings.Join(hint, "\n")

	case ErrTypeHTTP:
		if devErr.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The TV returned an error (HTTP %d).", devErr.StatusCode),
				"Troubleshooting:",
				"  • Try switching the TV off and on again",
				"  • Check if a firmware update is available",
			}, "\n")
		}
		return fmt.Sprintf("The TV returned HTTP %d. It may not support this control API version.", devErr.StatusCode)

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "TV not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "TV refused connection - is remote control enabled?"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "TV unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check connection"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("TV error (HTTP %d)", devErr.StatusCode)
	default:
		return devErr.Message
	}
}

func hostOf(address string) string {
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return address
}
