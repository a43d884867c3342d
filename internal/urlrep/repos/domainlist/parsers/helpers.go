package parsers

import (
	"strings"
	"unicode"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/utils"
)

// NormalizeEntry turns a raw list or policy entry into its canonical rule
// name: surrounding whitespace, a leading "*." or "." marker and trailing dots
// are removed, the name is lowercased and converted to its A-label form.
func NormalizeEntry(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "*.")
	name = strings.TrimPrefix(name, ".")
	return utils.ASCIIHost(utils.CanonicalHost(name))
}

// isValidFQDN checks whether the provided string is a usable list entry:
//   - The total length must not exceed 253 characters.
//   - The name must contain at least two labels (e.g. example.com).
//   - Each label must be between 1 and 63 characters long.
//   - The first label must start with a letter or number.
func isValidFQDN(name string) bool {
	if len(name) == 0 || len(name) > 253 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) > 63 || len(label) == 0 {
			return false
		}
	}
	first := []rune(labels[0])
	return isAlphaNumeric(first[0])
}

// isAlphaNumeric reports whether r is a letter or a digit.
func isAlphaNumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// stripLineBOM removes a UTF-8 byte order mark at the start of a line.
func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

// classifyLine reports whether a line is blank or a whole-line comment.
func classifyLine(line string) (isEmpty, isComment bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, false
	}
	return false, strings.HasPrefix(trimmed, "#")
}

// stripInlineComment drops everything from the first '#'.
func stripInlineComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}
