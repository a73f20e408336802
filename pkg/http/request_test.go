package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	proxies := pkghttp.NewIPConfig([]string{"10.0.0.0/8", "2001:db8::/32", "not-a-cidr"})

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		config     *pkghttp.IPConfig
		want       string
	}{
		{
			name:       "direct client cannot spoof forwarding headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4, 5.6.7.8",
			xri:        "192.168.1.1",
			config:     proxies,
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy forwards first address",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42, 10.0.0.5",
			config:     proxies,
			want:       "203.0.113.42",
		},
		{
			name:       "invalid entries in the chain are skipped",
			remoteAddr: "10.0.0.5:54321",
			xff:        "garbage, 198.51.100.7",
			config:     proxies,
			want:       "198.51.100.7",
		},
		{
			name:       "trusted proxy falls back to X-Real-IP",
			remoteAddr: "10.1.2.3:80",
			xri:        "198.51.100.9",
			config:     proxies,
			want:       "198.51.100.9",
		},
		{
			name:       "ipv6 trusted proxy",
			remoteAddr: "[2001:db8::1]:443",
			xff:        "2001:db8:ffff::42",
			config:     proxies,
			want:       "2001:db8:ffff::42",
		},
		{
			name:       "nil config ignores headers",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42",
			want:       "10.0.0.5",
		},
		{
			name:       "literal config without NewIPConfig",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}},
			want:       "203.0.113.42",
		},
		{
			name:       "remote address without port",
			remoteAddr: "203.0.113.10",
			config:     proxies,
			want:       "203.0.113.10",
		},
		{
			name:   "missing remote address",
			config: proxies,
			want:   pkghttp.UnknownClientAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}

func TestClientAddress_PrefersDeclaredAddress(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/login/evaluate", nil)
	req.RemoteAddr = "10.0.0.5:54321"

	assert.Equal(t, "198.51.100.20", pkghttp.ClientAddress(req, nil, " 198.51.100.20 "))
	assert.Equal(t, "10.0.0.5", pkghttp.ClientAddress(req, nil, ""))
}
