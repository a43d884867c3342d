package domain

import (
	"encoding/json"
	"fmt"
)

// PluginCode is the code every violation carries when surfaced to a host.
const PluginCode = "URL_REPUTATION_BLOCK"

// Code identifies why a URL was blocked. Its String form is the stable
// reason text reported to hosts.
type Code uint8

const (
	CodeUnparseableURL Code = iota + 1
	CodeUnparseableDomain
	CodeNonSecureHTTP
	CodeBlockedDomain
	CodeBlockedPattern
	CodeHighEntropy
	CodeIllegalTLD
	CodeInsecureUnicode
)

var codeReasons = map[Code]string{
	CodeUnparseableURL:    "Could not parse url",
	CodeUnparseableDomain: "Could not parse domain",
	CodeNonSecureHTTP:     "Blocked non secure http url",
	CodeBlockedDomain:     "Blocked domain",
	CodeBlockedPattern:    "Blocked pattern",
	CodeHighEntropy:       "High entropy domain",
	CodeIllegalTLD:        "Illegal TLD",
	CodeInsecureUnicode:   "Domain unicode is not secure",
}

// String returns the reason text for the code.
func (c Code) String() string {
	if s, ok := codeReasons[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(%d)", c)
}

// MarshalText encodes the code as its reason text.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Violation describes why a URL was blocked. Values are never mutated after
// construction; Details may be nil.
type Violation struct {
	Reason      string            `json:"reason"`
	Description string            `json:"description"`
	Code        Code              `json:"-"`
	Details     map[string]string `json:"details,omitempty"`
}

// NewViolation builds a violation whose reason is the code's text.
func NewViolation(code Code, description string, details map[string]string) *Violation {
	return &Violation{
		Reason:      code.String(),
		Description: description,
		Code:        code,
		Details:     details,
	}
}

// MarshalJSON adds the plugin code alongside the reason so hosts receive the
// same shape regardless of which check fired.
func (v Violation) MarshalJSON() ([]byte, error) {
	type alias Violation
	return json.Marshal(struct {
		alias
		Code string `json:"code"`
	}{alias: alias(v), Code: PluginCode})
}
