package parsers

import (
	"bufio"
	"io"
	"strings"
	"time"

	logpkg "github.com/haukened/rr-urlrep/internal/urlrep/common/log"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
)

// ParsePlainList parses a newline-delimited list of domains into DomainRules.
// Default is exact; a leading "*." or "." makes a suffix (apex-inclusive) rule.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - Skips empty lines after trimming/stripping comments
// - Skips entries that are not plausible FQDNs
// - De-duplicates by name and kind while preserving first-seen order
// - Each rule is attributed to source and timestamped with now
func ParsePlainList(r io.Reader, source string, logger logpkg.Logger, now time.Time) ([]domain.DomainRule, error) {
	p := newRuleCollector(source, logger, now)
	logger.Debug(map[string]any{"source": source}, "parse_plain_list_start")

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())
		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}
		p.addRaw(lineNum, strings.TrimSpace(stripInlineComment(line)))
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_plain_list_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(p.out)}, "parse_plain_list_done")
	return p.out, nil
}

// ruleCollector accumulates de-duplicated rules for one source.
type ruleCollector struct {
	source string
	logger logpkg.Logger
	now    time.Time
	seen   map[string]struct{}
	out    []domain.DomainRule
}

func newRuleCollector(source string, logger logpkg.Logger, now time.Time) *ruleCollector {
	return &ruleCollector{
		source: source,
		logger: logger,
		now:    now,
		seen:   make(map[string]struct{}),
		out:    make([]domain.DomainRule, 0, 256),
	}
}

// addRaw normalizes one entry and appends it unless invalid or duplicate.
func (c *ruleCollector) addRaw(lineNum int, raw string) {
	if raw == "" {
		return
	}
	kind := domain.RuleKindFromRaw(raw)
	name := NormalizeEntry(raw)
	if !isValidFQDN(name) {
		c.logger.Debug(map[string]any{"line": lineNum, "raw": raw, "name": name}, "skip_invalid_fqdn")
		return
	}
	c.add(lineNum, name, kind)
}

func (c *ruleCollector) add(lineNum int, name string, kind domain.RuleKind) {
	// seen key combines name and kind to allow both for same domain
	seenKey := name + "|" + kind.String()
	if _, ok := c.seen[seenKey]; ok {
		c.logger.Debug(map[string]any{"line": lineNum, "name": name, "kind": kind.String()}, "skip_duplicate")
		return
	}
	rule, err := domain.NewDomainRule(name, kind, c.source, c.now)
	if err != nil {
		c.logger.Debug(map[string]any{"line": lineNum, "name": name, "error": err.Error()}, "skip_constructor_error")
		return
	}
	c.out = append(c.out, rule)
	c.seen[seenKey] = struct{}{}
}
