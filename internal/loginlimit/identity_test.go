package loginlimit

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const firefoxLinux = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

func TestClientID(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.254"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		userAgent  string
		wantPrefix string
		wantOS     string
	}{
		{
			name:       "remote address and browser",
			remoteAddr: "192.0.2.10:53211",
			userAgent:  firefoxLinux,
			wantPrefix: "192.0.2.10|Firefox|",
			wantOS:     "Linux",
		},
		{
			name:       "forwarded address from trusted proxy",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "203.0.113.5",
			userAgent:  firefoxLinux,
			wantPrefix: "203.0.113.5|Firefox|",
			wantOS:     "Linux",
		},
		{
			name:       "chained trusted proxies are skipped",
			remoteAddr: "192.0.2.254:80",
			forwarded:  "198.51.100.9, 203.0.113.5, 10.1.2.3",
			userAgent:  firefoxLinux,
			wantPrefix: "203.0.113.5|Firefox|",
			wantOS:     "Linux",
		},
		{
			name:       "spoofed header from untrusted peer is ignored",
			remoteAddr: "198.51.100.20:40000",
			forwarded:  "203.0.113.5",
			userAgent:  firefoxLinux,
			wantPrefix: "198.51.100.20|Firefox|",
			wantOS:     "Linux",
		},
		{
			name:       "trusted proxy without header",
			remoteAddr: "10.0.0.1:80",
			userAgent:  firefoxLinux,
			wantPrefix: "10.0.0.1|Firefox|",
			wantOS:     "Linux",
		},
		{
			name:       "missing user agent",
			remoteAddr: "192.0.2.10:53211",
			wantPrefix: "192.0.2.10|",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			req.Header.Set("User-Agent", tt.userAgent)

			id := proxies.ClientID(req)
			assert.Regexp(t, `^[^|]+\|[^|]+\|[^|]+$`, id)
			assert.Contains(t, id, tt.wantPrefix)
			assert.Contains(t, id, tt.wantOS)
		})
	}
}

func TestClientIDDiffersByBrowser(t *testing.T) {
	chrome := httptest.NewRequest("POST", "/", nil)
	chrome.RemoteAddr = "192.0.2.10:1"
	chrome.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	firefox := httptest.NewRequest("POST", "/", nil)
	firefox.RemoteAddr = "192.0.2.10:2"
	firefox.Header.Set("User-Agent", firefoxLinux)

	var none TrustedProxies
	assert.NotEqual(t, none.ClientID(chrome), none.ClientID(firefox))
}

func TestSpoofedForwardedForKeepsOneIdentity(t *testing.T) {
	var none TrustedProxies
	ids := map[string]bool{}
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = "198.51.100.20:40000"
		req.Header.Set("User-Agent", firefoxLinux)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		ids[none.ClientID(req)] = true
	}
	assert.Len(t, ids, 1)
}

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "::1", "192.0.2.7"})
	require.NoError(t, err)
	assert.Len(t, proxies, 3)

	assert.True(t, proxies.Trusts("10.200.1.1"))
	assert.True(t, proxies.Trusts("::1"))
	assert.True(t, proxies.Trusts("::ffff:192.0.2.7"))
	assert.False(t, proxies.Trusts("192.0.2.8"))
	assert.False(t, proxies.Trusts("not-an-ip"))

	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)

	none, err := ParseTrustedProxies(nil)
	require.NoError(t, err)
	assert.False(t, none.Trusts("127.0.0.1"))
}
