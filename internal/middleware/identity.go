package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/fansite/internal/identity"
	"finitefield.org/fansite/internal/requestctx"
)

// AnonymousSignIn gives sessions without a uid an anonymous one. Failures are logged
// and leave the session signed out; the next page load tries again.
func AnonymousSignIn(provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSession(r)
			if s.UserID == "" && provider != nil {
				uid, err := provider.SignInAnonymously(r.Context())
				if err != nil {
					requestctx.Logger(r.Context()).Warn("anonymous sign-in failed", zap.Error(err))
				} else {
					s.UserID = uid
					s.MarkDirty()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
