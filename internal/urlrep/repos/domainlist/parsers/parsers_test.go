package parsers

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logpkg "github.com/haukened/rr-urlrep/internal/urlrep/common/log"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
)

var testNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func names(rules []domain.DomainRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.String()
	}
	return out
}

func TestNormalizeEntry(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{" Example.COM. ", "example.com"},
		{"*.example.com", "example.com"},
		{".example.com.", "example.com"},
		{"пример.рф", "xn--e1afmkfd.xn--p1ai"},
		{"", ""},
		{"*.", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEntry(tt.in), "input %q", tt.in)
	}
}

func TestIsValidFQDN(t *testing.T) {
	assert.True(t, isValidFQDN("example.com"))
	assert.True(t, isValidFQDN("1password.com"))
	assert.False(t, isValidFQDN("localhost"))
	assert.False(t, isValidFQDN("a..com"))
	assert.False(t, isValidFQDN("-bad.com"))
	assert.False(t, isValidFQDN(""))
	assert.False(t, isValidFQDN(strings.Repeat("a", 64)+".com"))
	assert.False(t, isValidFQDN(strings.Repeat("a.", 127)+"com"))
}

func TestParsePlainList(t *testing.T) {
	input := "\uFEFF# header comment\n" +
		"example.com\n" +
		"  *.ads.example.net   # trailing comment\n" +
		"\n" +
		".tracker.org\n" +
		"example.com.\n" +
		"*.ads.example.net\n" +
		"ads.example.net\n" +
		"not_a_domain\n" +
		"user@mail\n"

	rules, err := ParsePlainList(strings.NewReader(input), "list.txt", logpkg.NewNoopLogger(), testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"example.com",
		"*.ads.example.net",
		"*.tracker.org",
		"ads.example.net",
	}, names(rules))
	for _, r := range rules {
		assert.Equal(t, "list.txt", r.Source)
		assert.Equal(t, testNow, r.AddedAt)
	}
}

func TestParseHostsFile(t *testing.T) {
	input := "127.0.0.1 localhost\n" +
		"0.0.0.0 ads.example.com tracker.example.com # inline\n" +
		"0.0.0.0 *.wild.example.com .dot.example.com\n" +
		"::1 ip6-localhost ip6.example.org\n" +
		"0.0.0.0\n" +
		"0.0.0.0 ads.example.com\n"

	rules, err := ParseHostsFile(strings.NewReader(input), "hosts", logpkg.NewNoopLogger(), testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example.com", "tracker.example.com", "ip6.example.org"}, names(rules))
	for _, r := range rules {
		assert.Equal(t, domain.RuleExact, r.Kind)
	}
}

func TestParseDomainList_MixedFormats(t *testing.T) {
	input := "# mixed\n" +
		"0.0.0.0 ads.example.com\n" +
		"*.phish.example\n" +
		"malware.example.org spam.example.org\n"

	rules, err := ParseDomainList(strings.NewReader(input), "mixed", logpkg.NewNoopLogger(), testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example.com", "*.phish.example", "malware.example.org", "spam.example.org"}, names(rules))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestParsers_ScanError(t *testing.T) {
	_, err := ParsePlainList(errReader{}, "x", logpkg.NewNoopLogger(), testNow)
	assert.Error(t, err)
	_, err = ParseHostsFile(errReader{}, "x", logpkg.NewNoopLogger(), testNow)
	assert.Error(t, err)
	_, err = ParseDomainList(errReader{}, "x", logpkg.NewNoopLogger(), testNow)
	assert.Error(t, err)
}
