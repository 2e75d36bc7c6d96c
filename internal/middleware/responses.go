package middleware

import (
	"net/http"
	"strings"

	"finitefield.org/kickshop/internal/platform/httpx"
)

// writeError answers JSON to htmx and API callers and plain text otherwise.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if IsHTMX(r.Context()) || strings.HasPrefix(r.URL.Path, "/api/") {
		httpx.WriteError(r.Context(), w, httpx.NewError(errorCode(code), msg, code))
		return
	}
	http.Error(w, msg, code)
}

func errorCode(status int) string {
	switch status {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}
