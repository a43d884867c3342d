package heuristic

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/utils"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
)

const (
	maxDomainLength = 253
	maxLabelLength  = 63
)

// decoder turns A-labels into U-labels. STD3 and hyphen rules are relaxed so
// names like "my--site" or "a_b" reach the script checks instead of failing
// as malformed; punycode that decodes to disallowed runes still errors.
var decoder = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
	idna.Transitional(false),
	idna.CheckJoiners(true),
	idna.BidiRule(),
)

// scriptOrder is consulted before the full unicode.Scripts table; it covers
// nearly every rune seen in host names.
var scriptOrder = []string{
	"Latin", "Common", "Inherited", "Cyrillic", "Greek", "Han",
	"Hiragana", "Katakana", "Hangul", "Bopomofo", "Arabic", "Hebrew",
}

// highlyRestrictive lists the script combinations UTS #39 accepts in a
// single label besides one script alone.
var highlyRestrictive = []map[string]bool{
	{"Latin": true, "Han": true, "Hiragana": true, "Katakana": true},
	{"Latin": true, "Han": true, "Bopomofo": true},
	{"Latin": true, "Han": true, "Hangul": true},
}

// UnicodeCheck flags hosts that could be homograph spoofs: undecodable
// punycode, invisible or non-identifier characters, unnormalized labels and
// labels mixing scripts beyond the highly restrictive profile.
type UnicodeCheck struct{}

func (UnicodeCheck) Name() string { return "unicode" }

func (UnicodeCheck) Check(host string) *domain.Violation {
	if reason := unicodeProblem(host); reason != "" {
		return domain.NewViolation(domain.CodeInsecureUnicode,
			fmt.Sprintf("Domain unicode is not secure for domain: %s", host),
			map[string]string{
				"domain":             host,
				"registrable_domain": utils.ApexDomain(host),
				"problem":            reason,
			})
	}
	return nil
}

// IsUnicodeSecure reports whether host passes the unicode security check.
func IsUnicodeSecure(host string) bool {
	return unicodeProblem(host) == ""
}

// unicodeProblem returns a short description of the first problem found, or
// "" when the host is acceptable.
func unicodeProblem(host string) string {
	decoded, err := decoder.ToUnicode(host)
	if err != nil {
		return "idna decode failed"
	}
	if len(decoded) > maxDomainLength {
		return "name too long"
	}
	for _, label := range strings.Split(decoded, ".") {
		if label == "" {
			return "empty label"
		}
		if utf8.RuneCountInString(label) > maxLabelLength {
			return "label too long"
		}
		cleaned := strings.ReplaceAll(label, "-", "")
		if cleaned == "" {
			return "label has only hyphens"
		}
		for _, r := range cleaned {
			if !identifierAllowed(r) {
				return fmt.Sprintf("disallowed character %U", r)
			}
		}
		if !norm.NFC.IsNormalString(cleaned) {
			return "label not NFC normalized"
		}
		if !restrictedScripts(cleaned) {
			return "mixed scripts"
		}
	}
	return ""
}

// inclusion holds the characters UTS #39 Table 3 allows in identifiers
// beyond letters, marks and digits. Joiners are listed; their context is
// enforced by the decoder's CheckJoiners rule.
var inclusion = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0027, Hi: 0x0027, Stride: 1},
		{Lo: 0x002d, Hi: 0x002e, Stride: 1},
		{Lo: 0x003a, Hi: 0x003a, Stride: 1},
		{Lo: 0x005f, Hi: 0x005f, Stride: 1},
		{Lo: 0x00b7, Hi: 0x00b7, Stride: 1},
		{Lo: 0x0375, Hi: 0x0375, Stride: 1},
		{Lo: 0x058a, Hi: 0x058a, Stride: 1},
		{Lo: 0x05f3, Hi: 0x05f4, Stride: 1},
		{Lo: 0x06fd, Hi: 0x06fe, Stride: 1},
		{Lo: 0x0f0b, Hi: 0x0f0b, Stride: 1},
		{Lo: 0x200c, Hi: 0x200d, Stride: 1},
		{Lo: 0x2010, Hi: 0x2010, Stride: 1},
		{Lo: 0x2019, Hi: 0x2019, Stride: 1},
		{Lo: 0x2027, Hi: 0x2027, Stride: 1},
		{Lo: 0x30a0, Hi: 0x30a0, Stride: 1},
		{Lo: 0x30fb, Hi: 0x30fb, Stride: 1},
	},
}

// identifierAllowed approximates the UTS #39 identifier profile: letters,
// combining marks, decimal digits and the Table 3 inclusions are allowed;
// other format characters, spaces, punctuation and symbols are not.
func identifierAllowed(r rune) bool {
	if unicode.Is(inclusion, r) {
		return true
	}
	if unicode.Is(unicode.Other_Default_Ignorable_Code_Point, r) || unicode.In(r, unicode.Cf, unicode.Cc, unicode.Co, unicode.Cs) {
		return false
	}
	return unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Nd, r)
}

// restrictedScripts reports whether label is ASCII-only, single-script or
// highly restrictive. Common and Inherited runes combine with any script.
func restrictedScripts(label string) bool {
	scripts := make(map[string]bool, 2)
	for _, r := range label {
		if r < utf8.RuneSelf {
			if unicode.IsLetter(r) {
				scripts["Latin"] = true
			}
			continue
		}
		s := scriptOf(r)
		if s == "Common" || s == "Inherited" || s == "" {
			continue
		}
		scripts[s] = true
	}
	if len(scripts) <= 1 {
		return true
	}
	for _, allowed := range highlyRestrictive {
		if subsetOf(scripts, allowed) {
			return true
		}
	}
	return false
}

func scriptOf(r rune) string {
	for _, name := range scriptOrder {
		if unicode.Is(unicode.Scripts[name], r) {
			return name
		}
	}
	for name, table := range unicode.Scripts {
		if unicode.Is(table, r) {
			return name
		}
	}
	return ""
}

func subsetOf(set, of map[string]bool) bool {
	for k := range set {
		if !of[k] {
			return false
		}
	}
	return true
}
