package domain

// HostKind classifies the host component of a parsed URL.
type HostKind uint8

const (
	HostName HostKind = iota
	HostIPv4
	HostIPv6
)

// IsIP reports whether the host is an IP literal.
func (k HostKind) IsIP() bool { return k == HostIPv4 || k == HostIPv6 }

// ParsedURL is the normalized view of a candidate URL. It lives for one
// validation call only.
type ParsedURL struct {
	Raw      string // input as received
	Full     string // trimmed and lowercased input, the pattern target
	Scheme   string
	Host     string // canonical host, brackets stripped for IPv6
	HostKind HostKind
	Port     string
	Path     string
	Query    string
}

// PathQuery returns the path followed by "?query" when a query is present.
func (u ParsedURL) PathQuery() string {
	if u.Query == "" {
		return u.Path
	}
	return u.Path + "?" + u.Query
}
