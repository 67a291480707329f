// Package protocol defines the JointSpace HTTP control protocol used by
// Philips-style televisions.
//
// The protocol is a small JSON-over-HTTP API served on port 1925. This
// package holds the wire-level pieces shared by discovery and control:
// device addresses, endpoint paths, request/response bodies and the
// remote-control key vocabulary. It performs no I/O.
//
// # Endpoints
//
//	GET  /1/system                         system info, optional "name"
//	POST /1/input/key                      {"key": "<KeyCode>"}
//	POST /1/input/text                     {"text": "<text>"}
//	GET  /1/menuitems/settings/structure   settings tree (feature hints)
//
// # Usage Example
//
//	addr, err := protocol.ParseAddress("192.168.1.42")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	key, _ := protocol.ParseKey("vol+") // protocol.KeyVolumeUp
//	body, _ := protocol.EncodeKey(key.String())
//	http.Post(addr.URL(protocol.KeyPath), protocol.ContentTypeJSON, bytes.NewReader(body))
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol
