package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already canonical", "example.com", "example.com"},
		{"uppercase", "ExAmPle.COM", "example.com"},
		{"trailing dot", "example.com.", "example.com"},
		{"multiple trailing dots", "example.com...", "example.com"},
		{"surrounding whitespace", "  example.com \t", "example.com"},
		{"ipv6 brackets", "[2001:DB8::1]", "2001:db8::1"},
		{"ipv4 untouched", "192.0.2.1", "192.0.2.1"},
		{"root only", ".", ""},
		{"empty", "", ""},
		{"unbalanced bracket kept", "[::1", "[::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalHost(tt.input))
		})
	}
}

func TestLastLabel(t *testing.T) {
	assert.Equal(t, "com", LastLabel("www.example.com"))
	assert.Equal(t, "localhost", LastLabel("localhost"))
	assert.Equal(t, "", LastLabel("example."))
	assert.Equal(t, "", LastLabel(""))
}

func TestASCIIHost(t *testing.T) {
	assert.Equal(t, "example.com", ASCIIHost("example.com"))
	assert.Equal(t, "xn--e1afmkfd.xn--p1ai", ASCIIHost("пример.рф"))
	assert.Equal(t, "xn--e1afmkfd.xn--p1ai", ASCIIHost("xn--e1afmkfd.xn--p1ai"))
	assert.Equal(t, "", ASCIIHost(""))
}
