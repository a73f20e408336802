package http

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClientAddress is returned when no address can be determined
const UnknownClientAddress = "unknown"

// IPConfig holds the proxies whose forwarding headers are trusted
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies

	networks []*net.IPNet
}

// NewIPConfig parses the trusted proxy ranges once. Invalid ranges are skipped.
func NewIPConfig(trustedProxies []string) *IPConfig {
	cfg := &IPConfig{TrustedProxies: trustedProxies}
	for _, cidr := range trustedProxies {
		if _, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr)); err == nil {
			cfg.networks = append(cfg.networks, ipNet)
		}
	}
	return cfg
}

// ExtractClientIP returns the address of the peer that sent the request.
// X-Forwarded-For and X-Real-IP are only honoured when the peer is a trusted proxy,
// otherwise any client could choose which rate limit bucket it lands in.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config == nil || !config.trusts(remoteIP) {
		return remoteIP
	}

	// X-Forwarded-For may carry a chain; the first valid entry is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if isValidIP(ip) {
				return ip
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); isValidIP(xri) {
		return xri
	}

	return remoteIP
}

// ClientAddress picks the address a security decision is keyed on.
// Callers relaying a login on behalf of an end user pass that user's address as declared.
func ClientAddress(r *http.Request, config *IPConfig, declared string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	return ExtractClientIP(r, config)
}

// getRemoteAddr strips the port from RemoteAddr
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return UnknownClientAddress
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func (c *IPConfig) trusts(ip string) bool {
	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	networks := c.networks
	if networks == nil && len(c.TrustedProxies) > 0 {
		networks = NewIPConfig(c.TrustedProxies).networks
	}

	for _, ipNet := range networks {
		if ipNet.Contains(clientIP) {
			return true
		}
	}
	return false
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
