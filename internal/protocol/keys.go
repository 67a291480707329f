package protocol

import (
	"fmt"
	"strings"
)

// Key is a JointSpace remote-control key code
type Key string

// Remote-control key vocabulary
const (
	KeyStandby     Key = "Standby"
	KeySource      Key = "Source"
	KeyMenu        Key = "Menu"
	KeyHome        Key = "Home"
	KeyInfo        Key = "Info"
	KeyBack        Key = "Back"
	KeyCursorUp    Key = "CursorUp"
	KeyCursorDown  Key = "CursorDown"
	KeyCursorLeft  Key = "CursorLeft"
	KeyCursorRight Key = "CursorRight"
	KeyConfirm     Key = "Confirm"
	KeyVolumeUp    Key = "VolumeUp"
	KeyVolumeDown  Key = "VolumeDown"
	KeyChannelUp   Key = "ChannelUp"
	KeyChannelDown Key = "ChannelDown"
	KeyMute        Key = "Mute"
	KeyDigit0      Key = "Digit0"
	KeyDigit1      Key = "Digit1"
	KeyDigit2      Key = "Digit2"
	KeyDigit3      Key = "Digit3"
	KeyDigit4      Key = "Digit4"
	KeyDigit5      Key = "Digit5"
	KeyDigit6      Key = "Digit6"
	KeyDigit7      Key = "Digit7"
	KeyDigit8      Key = "Digit8"
	KeyDigit9      Key = "Digit9"
	KeyDigitDash   Key = "DigitDash"
)

// Keys lists the full vocabulary in remote-control order
var Keys = []Key{
	KeyStandby, KeySource, KeyMenu, KeyHome, KeyInfo, KeyBack,
	KeyCursorUp, KeyCursorDown, KeyCursorLeft, KeyCursorRight, KeyConfirm,
	KeyVolumeUp, KeyVolumeDown, KeyChannelUp, KeyChannelDown, KeyMute,
	KeyDigit0, KeyDigit1, KeyDigit2, KeyDigit3, KeyDigit4,
	KeyDigit5, KeyDigit6, KeyDigit7, KeyDigit8, KeyDigit9, KeyDigitDash,
}

// KeyAliases maps short, human-friendly names to key codes.
// Lookups are case-insensitive.
var KeyAliases = map[string]Key{
	"power":  KeyStandby,
	"off":    KeyStandby,
	"input":  KeySource,
	"up":     KeyCursorUp,
	"down":   KeyCursorDown,
	"left":   KeyCursorLeft,
	"right":  KeyCursorRight,
	"ok":     KeyConfirm,
	"enter":  KeyConfirm,
	"vol+":   KeyVolumeUp,
	"vol-":   KeyVolumeDown,
	"ch+":    KeyChannelUp,
	"ch-":    KeyChannelDown,
	"-":      KeyDigitDash,
	"-/--":   KeyDigitDash,
	"return": KeyBack,
}

// keyIndex maps lower-cased key codes to their canonical form
var keyIndex = func() map[string]Key {
	m := make(map[string]Key, len(Keys))
	for _, k := range Keys {
		m[strings.ToLower(string(k))] = k
	}
	return m
}()

// IsValid reports whether k is exactly a code from the fixed vocabulary
func (k Key) IsValid() bool {
	return k != "" && keyIndex[strings.ToLower(string(k))] == k
}

// String returns the key code
func (k Key) String() string {
	return string(k)
}

// ParseKey resolves a key code, alias, or single digit to a Key.
// Matching is case-insensitive.
func ParseKey(s string) (Key, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return "", fmt.Errorf("empty key name")
	}
	if k, ok := keyIndex[name]; ok {
		return k, nil
	}
	if k, ok := KeyAliases[name]; ok {
		return k, nil
	}
	if len(name) == 1 {
		if k, ok := DigitKey(rune(name[0])); ok {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown key %q", s)
}

// DigitKey returns the Digit key for '0'..'9' and '-'
func DigitKey(r rune) (Key, bool) {
	switch {
	case r >= '0' && r <= '9':
		return Key("Digit" + string(r)), true
	case r == '-':
		return KeyDigitDash, true
	}
	return "", false
}
