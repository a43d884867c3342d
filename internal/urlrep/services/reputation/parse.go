package reputation

import (
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/utils"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
)

// parseURL normalizes raw and splits it into its components. The returned
// violation is non-nil when the URL or its host cannot be used.
func parseURL(raw string) (domain.ParsedURL, *domain.Violation) {
	full := strings.ToLower(strings.TrimSpace(raw))
	pu := domain.ParsedURL{Raw: raw, Full: full}

	u, err := url.Parse(full)
	if full == "" || err != nil || u.Scheme == "" {
		return pu, urlViolation(domain.CodeUnparseableURL, raw)
	}
	pu.Scheme = u.Scheme
	pu.Path = u.EscapedPath()
	pu.Query = u.RawQuery
	pu.Port = u.Port()
	if pu.Port != "" {
		if _, err := strconv.ParseUint(pu.Port, 10, 16); err != nil {
			return pu, urlViolation(domain.CodeUnparseableURL, raw)
		}
	}

	if u.Host == "" {
		// opaque forms such as mailto:user@example.com carry no host
		return pu, urlViolation(domain.CodeUnparseableDomain, raw)
	}

	host, kind, ok := classifyHost(u.Host, u.Hostname())
	if !ok {
		return pu, urlViolation(domain.CodeUnparseableDomain, raw)
	}
	pu.Host = host
	pu.HostKind = kind
	return pu, nil
}

// classifyHost canonicalizes hostname and decides whether it is an IP
// literal. hostport is the raw authority host, used to see brackets.
func classifyHost(hostport, hostname string) (string, domain.HostKind, bool) {
	host := utils.CanonicalHost(hostname)
	if host == "" {
		return "", domain.HostName, false
	}
	if strings.HasPrefix(hostport, "[") {
		addr, err := netip.ParseAddr(host)
		if err != nil || !addr.Is6() {
			return "", domain.HostName, false
		}
		return addr.String(), domain.HostIPv6, true
	}
	if addr, err := netip.ParseAddr(host); err == nil && addr.Is4() {
		return addr.String(), domain.HostIPv4, true
	}
	if numericHost(host) {
		// looks like an IPv4 literal but is not one, e.g. 332.168.0.1
		return "", domain.HostName, false
	}
	return utils.ASCIIHost(host), domain.HostName, true
}

// numericHost reports whether every label of host is made of decimal digits.
func numericHost(host string) bool {
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return false
		}
		for i := 0; i < len(label); i++ {
			if label[i] < '0' || label[i] > '9' {
				return false
			}
		}
	}
	return true
}

func urlViolation(code domain.Code, raw string) *domain.Violation {
	return domain.NewViolation(code, "URL "+raw+" is blocked", map[string]string{"url": raw})
}
