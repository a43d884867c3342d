package utils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// CanonicalHost returns a host name in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot, so "example.com." and "example.com" compare equal
// - IPv6 literal brackets removed
func CanonicalHost(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		name = name[1 : len(name)-1]
	}
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// LastLabel returns the rightmost dot-separated label of a canonical host.
func LastLabel(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ASCIIHost returns the punycode (A-label) form of a canonical host so that
// "пример.рф" and "xn--e1afmkfd.xn--p1ai" compare equal. Names that cannot be
// converted are returned unchanged.
func ASCIIHost(name string) string {
	if isASCII(name) {
		return name
	}
	a, err := idna.Punycode.ToASCII(name)
	if err != nil {
		return name
	}
	return a
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
