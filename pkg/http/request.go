package http

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIP is the shared bucket used when the transport exposes no client
// address. Every such request counts against one rate-limit window; that
// imprecision is accepted rather than failing the request.
const UnknownIP = "unknown"

// ExtractClientIP derives the client address for rate limiting and audit
// records. Precedence: first hop of X-Forwarded-For, then X-Real-IP, then
// the connection's remote address. The service sits behind the site's
// reverse proxy, which strips inbound forwarding headers.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if isValidIP(first) {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if isValidIP(xri) {
			return xri
		}
	}

	return remoteAddr(r)
}

// remoteAddr extracts the IP from RemoteAddr, dropping the port if present.
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return UnknownIP
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	if isValidIP(r.RemoteAddr) {
		return r.RemoteAddr
	}
	return UnknownIP
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
