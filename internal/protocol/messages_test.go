package protocol

import "testing"

func TestDecodeSystemInfo(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantName string
		wantErr  bool
	}{
		{name: "name present", body: `{"name":"LivingRoomTV","menulanguage":"English"}`, wantName: "LivingRoomTV"},
		{name: "name missing", body: `{"country":"Brazil"}`, wantName: ""},
		{name: "non-string name ignored", body: `{"name":42}`, wantName: ""},
		{name: "empty object", body: `{}`, wantName: ""},
		{name: "malformed", body: `{"name":`, wantErr: true},
		{name: "array body", body: `["name"]`, wantName: ""},
		{name: "null body", body: `null`, wantName: ""},
		{name: "string body", body: `"tv"`, wantName: ""},
		{name: "number body", body: `42`, wantName: ""},
		{name: "empty body", body: ``, wantErr: true},
		{name: "html body", body: `<html>router login</html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := DecodeSystemInfo([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeSystemInfo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if info.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", info.Name, tt.wantName)
			}
		})
	}
}

func TestSystemInfo_NameOr(t *testing.T) {
	var nilInfo *SystemInfo
	if got := nilInfo.NameOr("10.0.0.1"); got != "10.0.0.1" {
		t.Errorf("nil NameOr = %s", got)
	}
	if got := (&SystemInfo{}).NameOr("10.0.0.1"); got != "10.0.0.1" {
		t.Errorf("empty NameOr = %s", got)
	}
	if got := (&SystemInfo{Name: "Sala"}).NameOr("10.0.0.1"); got != "Sala" {
		t.Errorf("NameOr = %s, want Sala", got)
	}
}

func TestEncodeBodies(t *testing.T) {
	key, err := EncodeKey("VolumeUp")
	if err != nil {
		t.Fatal(err)
	}
	if string(key) != `{"key":"VolumeUp"}` {
		t.Errorf("EncodeKey = %s", key)
	}

	text, err := EncodeText(`say "hi"`)
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != `{"text":"say \"hi\""}` {
		t.Errorf("EncodeText = %s", text)
	}
}
