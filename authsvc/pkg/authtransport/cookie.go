package authtransport

import (
	"context"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/securecookie"
	"github.com/ichigozero/tasknotes/authsvc"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authservice"
)

const refreshCookieName = "refresh_token"

func NewCookieCodec() *securecookie.SecureCookie {
	return securecookie.New([]byte(authsvc.CookieHashKey), []byte(authsvc.CookieBlockKey))
}

func setRefreshCookie(w http.ResponseWriter, sc *securecookie.SecureCookie, token string) error {
	encoded, err := sc.Encode(refreshCookieName, token)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(authservice.RefreshTokenExpiry().Seconds()),
		HttpOnly: true,
		Secure:   authsvc.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   authsvc.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	})
}

// cookieToContext falls back to the refresh cookie when no bearer token was
// found in the Authorization header.
func cookieToContext(sc *securecookie.SecureCookie) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		if token, ok := ctx.Value(kitjwt.JWTTokenContextKey).(string); ok && token != "" {
			return ctx
		}

		c, err := r.Cookie(refreshCookieName)
		if err != nil {
			return ctx
		}

		var token string
		if err := sc.Decode(refreshCookieName, c.Value, &token); err != nil {
			return ctx
		}

		return context.WithValue(ctx, kitjwt.JWTTokenContextKey, token)
	}
}
