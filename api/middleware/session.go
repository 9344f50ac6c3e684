package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deshikart/deshikart-backend/pkg/logger"
)

const (
	sessionCookieName = "dk_session"
	sessionHeaderName = "X-Session-Key"

	sessionCookieMaxAge = 30 * 24 * time.Hour
)

// Session resolves the opaque cart session key for storefront requests.
// The key comes from the X-Session-Key header or the dk_session cookie;
// when neither is present a fresh key is minted and set as a cookie so the
// same anonymous visitor keeps one cart across requests.
func Session(logg *logger.Logger, secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionKey := r.Header.Get(sessionHeaderName)
			if sessionKey == "" {
				if cookie, err := r.Cookie(sessionCookieName); err == nil {
					sessionKey = cookie.Value
				}
			}
			if sessionKey == "" {
				sessionKey = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookieName,
					Value:    sessionKey,
					Path:     "/",
					MaxAge:   int(sessionCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(sessionHeaderName, sessionKey)

			ctx := WithSessionKey(r.Context(), sessionKey)
			if logg != nil {
				ctx = logg.WithSessionKey(ctx, sessionKey)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
