package protocol

import (
	"encoding/json"
	"fmt"
)

// JointSpace API v1 endpoints
const (
	// SystemPath returns system information, including the device name
	SystemPath = "/1/system"

	// KeyPath accepts a single remote-control key press
	KeyPath = "/1/input/key"

	// TextPath accepts literal text for search and input fields
	TextPath = "/1/input/text"

	// SettingsStructurePath lists the settings menu tree; key names
	// appearing in it indicate features the device supports
	SettingsStructurePath = "/1/menuitems/settings/structure"
)

// ContentTypeJSON is the content type for command bodies
const ContentTypeJSON = "application/json"

// SystemInfo is the subset of the /1/system response used by this project.
// Devices return many more fields; they are ignored.
type SystemInfo struct {
	Name string `json:"name,omitempty"`
}

// KeyRequest is the body of a POST to KeyPath
type KeyRequest struct {
	Key string `json:"key"`
}

// TextRequest is the body of a POST to TextPath
type TextRequest struct {
	Text string `json:"text"`
}

// DecodeSystemInfo parses a /1/system body.
// Any valid JSON is accepted. The name is read only from an object body;
// a missing name is not an error.
func DecodeSystemInfo(body []byte) (*SystemInfo, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to parse system info: invalid JSON")
	}

	info := &SystemInfo{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		// Arrays, strings and numbers carry no name
		return info, nil
	}
	if name, ok := raw["name"]; ok {
		// Non-string names are treated as absent
		_ = json.Unmarshal(name, &info.Name)
	}
	return info, nil
}

// NameOr returns the reported name, or fallback when the device reported none
func (s *SystemInfo) NameOr(fallback string) string {
	if s == nil || s.Name == "" {
		return fallback
	}
	return s.Name
}

// EncodeKey builds the JSON body for a key press
func EncodeKey(key string) ([]byte, error) {
	return json.Marshal(KeyRequest{Key: key})
}

// EncodeText builds the JSON body for a text input
func EncodeText(text string) ([]byte, error) {
	return json.Marshal(TextRequest{Text: text})
}
