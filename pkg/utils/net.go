package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// GetRemoteIP is only shown on error pages; proxy headers are trusted as sent.
func GetRemoteIP(r *http.Request) string {
	for _, item := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(item)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
