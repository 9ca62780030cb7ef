package main

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Ace", 16, "Ace"},
		{"   ", 16, "Pilot"},
		{"", 16, "Pilot"},
		{"  Maverick  ", 16, "Maverick"},
		{"ABCDEFGHIJKLMNOPQRSTU", 16, "ABCDEFGHIJKLMNOP"},
		{strings.Repeat("é", 9), 16, strings.Repeat("é", 8)},
		{strings.Repeat("é", 9), 15, strings.Repeat("é", 7)},
	}
	for _, tt := range tests {
		if got := cleanName(tt.in, "Pilot", tt.max); got != tt.want {
			t.Errorf("cleanName(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestExtractIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	if got := extractIP(r); got != "10.1.2.3" {
		t.Errorf("got %q", got)
	}
	r.RemoteAddr = "garbage"
	if got := extractIP(r); got != "garbage" {
		t.Errorf("got %q", got)
	}
}
