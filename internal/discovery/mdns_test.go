package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantInstance string
		wantIP       string
		wantPort     int
	}{
		{
			name: "TV with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Living Room TV"},
				HostName:      "tv-living.local.",
				Port:          1925,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.42")},
			},
			wantInstance: "Living Room TV",
			wantIP:       "192.168.1.42",
			wantPort:     1925,
		},
		{
			name: "escaped instance name",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: `Living\ Room\.TV`},
				HostName:      "tv.local.",
				Port:          1926,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantInstance: "Living Room.TV",
			wantIP:       "10.0.0.5",
			wantPort:     1926,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "TV"},
				HostName:      "tv.local.",
				Port:          1925,
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
		{
			name: "IPv6 only TV",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "TV"},
				HostName:      "tv.local.",
				Port:          1925,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantInstance: "TV",
			wantIP:       "fe80::1",
			wantPort:     1925,
		},
		{
			name: "TV with both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "TV"},
				HostName:      "tv.local.",
				Port:          1925,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantInstance: "TV",
			wantIP:       "192.168.1.50",
			wantPort:     1925,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ad := parseServiceEntry(ServiceTypeRPC, tt.entry)

			if tt.wantNil {
				if ad != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", ad)
				}
				return
			}

			if ad == nil {
				t.Fatal("parseServiceEntry() = nil, want advertisement")
			}

			if ad.Instance != tt.wantInstance {
				t.Errorf("ad.Instance = %q, want %q", ad.Instance, tt.wantInstance)
			}

			if ad.IP != tt.wantIP {
				t.Errorf("ad.IP = %v, want %v", ad.IP, tt.wantIP)
			}

			if ad.Port != tt.wantPort {
				t.Errorf("ad.Port = %v, want %v", ad.Port, tt.wantPort)
			}

			if ad.Host != tt.entry.HostName {
				t.Errorf("ad.Host = %v, want %v", ad.Host, tt.entry.HostName)
			}

			if ad.Service != ServiceTypeRPC {
				t.Errorf("ad.Service = %v, want %v", ad.Service, ServiceTypeRPC)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "TV"},
		HostName:      "tv.local.",
		Port:          1926,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.1.42")},
		Text:          []string{"model=55OLED", "flag", "api=6"},
	}

	ad := parseServiceEntry(ServiceTypeSecureRPC, entry)
	if ad == nil {
		t.Fatal("parseServiceEntry() = nil, want advertisement")
	}

	expectedMetadata := map[string]string{
		"model": "55OLED",
		"flag":  "", // Key without value
		"api":   "6",
	}

	if len(ad.Metadata) != len(expectedMetadata) {
		t.Errorf("ad.Metadata has %d entries, want %d", len(ad.Metadata), len(expectedMetadata))
	}

	for key, expectedValue := range expectedMetadata {
		if actualValue, ok := ad.Metadata[key]; !ok {
			t.Errorf("ad.Metadata missing key %q", key)
		} else if actualValue != expectedValue {
			t.Errorf("ad.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}
}

func TestAdvertisementAddress(t *testing.T) {
	ad := Advertisement{IP: "192.168.1.42", Port: 1926}

	addr := ad.Address()
	if addr.IP != "192.168.1.42" || addr.Port != 1925 {
		t.Errorf("Address() = %v, want 192.168.1.42:1925", addr)
	}
}

func TestNewBrowser(t *testing.T) {
	browser := NewBrowser()

	if browser == nil {
		t.Fatal("NewBrowser() = nil, want browser")
	}

	if browser.Timeout != DefaultBrowseTimeout {
		t.Errorf("browser.Timeout = %v, want %v", browser.Timeout, DefaultBrowseTimeout)
	}

	if DefaultBrowseTimeout > 10*time.Second {
		t.Errorf("DefaultBrowseTimeout = %v, too long for interactive use", DefaultBrowseTimeout)
	}
}

func TestUnescapeInstance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`a\ b`, "a b"},
		{`a\\b`, `a\b`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := unescapeInstance(tt.in); got != tt.want {
			t.Errorf("unescapeInstance(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Note: live mDNS browsing needs multicast on the local segment and is
// exercised manually with `tvremote browse`.
