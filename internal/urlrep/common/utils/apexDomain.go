package utils

import (
	"net/netip"

	"golang.org/x/net/publicsuffix"
)

// ApexDomain returns the registrable domain (eTLD+1) of a host, used to
// annotate violations. IP literals and names without a public suffix are
// returned unchanged.
func ApexDomain(name string) string {
	name = CanonicalHost(name)
	if _, err := netip.ParseAddr(name); err == nil {
		return name
	}
	apex, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return name
	}
	return apex
}
