package middleware

import (
	"net"
	"net/http"
)

// ClientIP returns the caller address. Run chi's RealIP first when behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
