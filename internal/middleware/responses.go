package middleware

import (
	"net/http"

	"finitefield.org/fansite/internal/httpx"
)

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if IsHTMX(r.Context()) {
		httpx.WriteError(r.Context(), w, httpx.NewError(codeFor(code), msg, code))
		return
	}
	http.Error(w, msg, code)
}

func codeFor(status int) string {
	switch status {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "error"
	}
}
