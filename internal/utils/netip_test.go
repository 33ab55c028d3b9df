package utils

import (
	"net/http/httptest"
	"testing"
)

func TestParseHostNoPort(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"10.0.0.1":         "10.0.0.1",
		"10.0.0.1:443":     "10.0.0.1",
		"[::1]:8080":       "::1",
		"[::1]":            "::1",
		"stash.local:8080": "stash.local",
		" *.example.com ":  "*.example.com",
	}
	for in, want := range tests {
		if got := ParseHostNoPort(in); got != want {
			t.Errorf("ParseHostNoPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", want: "192.0.2.1"},
		{name: "proxy headers ignored", headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, want: "192.0.2.1"},
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": " 203.0.113.9, 10.0.0.1"}, trustProxy: true, want: "203.0.113.9"},
		{name: "cloudflare first", headers: map[string]string{"CF-Connecting-IP": "198.51.100.7", "X-Forwarded-For": "203.0.113.9"}, trustProxy: true, want: "198.51.100.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.8"}, trustProxy: true, want: "198.51.100.8"},
		{name: "no headers behind proxy", trustProxy: true, want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = "192.0.2.1:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.168.1.5 ", "", "garbage", "2001:db8::/32"})
	if m.IsEmpty() {
		t.Fatal("IsEmpty() = true")
	}
	tests := map[string]bool{
		"10.20.30.40":     true,
		"192.168.1.5":     true,
		"192.168.1.6":     false,
		"::ffff:10.1.1.1": true,
		"2001:db8::1":     true,
		"2001:db9::1":     false,
		"not-an-ip":       false,
	}
	for ip, want := range tests {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}
	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("empty list should give an empty matcher")
	}
}
