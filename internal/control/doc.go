// Package control provides an HTTP client for commanding a JointSpace TV.
//
// The client talks to the TV's local control API (port 1925 by default):
// a reachability check against the system-info endpoint, remote-control key
// presses, free text input, and a read-only probe of which keys the TV's
// settings menu advertises.
//
// # Usage Example
//
//	addr, err := protocol.ParseAddress("192.168.1.42")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := control.NewClient()
//
//	// Decide whether to open the remote
//	if err := client.CheckReachable(ctx, addr); err != nil {
//	    fmt.Println(control.GetShortErrorMessage(err))
//	    fmt.Println(control.GetTroubleshootingHint(err))
//	    return
//	}
//
//	client.SendKey(ctx, addr, protocol.KeyVolumeUp)
//	client.SendText(ctx, addr, "news")
//
// # Fire-and-Forget Commands
//
// SendKey and SendText return nothing. Timeouts, refused connections and
// non-200 answers are logged at debug level and dropped. SendText falls back
// to exactly one key-endpoint POST carrying the text when the text endpoint
// does not answer 200. No request is ever retried.
//
// # Error Handling
//
// CheckReachable returns a *DeviceError whose Type distinguishes a timeout,
// a refused connection, other network failures and a non-200 status.
// IsTimeout, IsConnectionRefused, IsNetworkError and IsHTTPError inspect the
// error chain, so wrapped errors are classified too.
//
// # Thread Safety
//
// Client instances are safe for concurrent use once configured.
package control
