package parsers

import (
	"bufio"
	"io"
	"net/netip"
	"strings"
	"time"

	logpkg "github.com/haukened/rr-urlrep/internal/urlrep/common/log"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
)

// ParseHostsFile parses /etc/hosts-style files and returns exact rules for
// every hostname after the address field. Wildcards and names starting with
// '.' are not valid in hosts syntax and are skipped.
func ParseHostsFile(r io.Reader, source string, logger logpkg.Logger, now time.Time) ([]domain.DomainRule, error) {
	c := newRuleCollector(source, logger, now)
	logger.Debug(map[string]any{"source": source}, "parse_hosts_start")

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())
		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}
		fields := strings.Fields(stripInlineComment(line))
		if len(fields) < 2 {
			logger.Debug(map[string]any{"line": lineNum}, "hosts_no_hostnames")
			continue
		}
		c.addHostnames(lineNum, fields[1:])
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_hosts_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(c.out)}, "parse_hosts_done")
	return c.out, nil
}

// ParseDomainList accepts both formats in one file: a line whose first field
// is an IP address is read as a hosts entry, anything else as a plain entry.
func ParseDomainList(r io.Reader, source string, logger logpkg.Logger, now time.Time) ([]domain.DomainRule, error) {
	c := newRuleCollector(source, logger, now)
	logger.Debug(map[string]any{"source": source}, "parse_domain_list_start")

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())
		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}
		fields := strings.Fields(stripInlineComment(line))
		if len(fields) == 0 {
			continue
		}
		if _, err := netip.ParseAddr(fields[0]); err == nil {
			c.addHostnames(lineNum, fields[1:])
			continue
		}
		for _, raw := range fields {
			c.addRaw(lineNum, raw)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(c.out)}, "parse_domain_list_done")
	return c.out, nil
}

func (c *ruleCollector) addHostnames(lineNum int, names []string) {
	for _, raw := range names {
		if raw == "" || strings.HasPrefix(raw, ".") || strings.Contains(raw, "*") {
			c.logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "hosts_skip_invalid_token")
			continue
		}
		name := NormalizeEntry(raw)
		if !isValidFQDN(name) {
			c.logger.Debug(map[string]any{"line": lineNum, "name": name}, "hosts_skip_invalid_fqdn")
			continue
		}
		c.add(lineNum, name, domain.RuleExact)
	}
}
