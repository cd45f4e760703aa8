package utils

import (
	"net"
	"net/url"
	"strings"
)

// OriginPolicy decides which Origin header values receive CORS headers.
// Origins named in the configured allow list always pass; beyond that the
// policy trusts local-network callers only, since deployments sit on a
// home LAN behind a reverse proxy rather than on the public internet.
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy builds a policy from configured origins. Entries match
// the full scheme://host[:port] value, case-insensitively, ignoring a
// trailing slash.
func NewOriginPolicy(origins []string) *OriginPolicy {
	policy := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		if key := originKey(origin); key != "" {
			policy.allowed[key] = struct{}{}
		}
	}
	return policy
}

func originKey(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

// Allows reports whether origin should be trusted. Without a configured
// match this admits localhost, private and link-local IPs, .local mDNS
// names and bare single-label LAN hostnames.
func (p *OriginPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := p.allowed[originKey(origin)]; ok {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	hostname := parsed.Hostname()

	if hostname == "localhost" || strings.HasSuffix(hostname, ".local") {
		return true
	}
	// IP literals first: IPv6 addresses have no dots and must not fall
	// through to the bare-hostname rule.
	if ip := net.ParseIP(hostname); ip != nil {
		return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
	}
	// A name without dots only resolves on the LAN.
	if !strings.Contains(hostname, ".") {
		return true
	}
	return false
}
