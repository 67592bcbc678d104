package authtransport

import (
	"context"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/ichigozero/tasknotes/authsvc"
	"github.com/ichigozero/tasknotes/authsvc/inmem"
)

// NewAuthenticater rejects tokens whose access session is no longer stored,
// such as tokens of a session that already logged out.
func NewAuthenticater(c inmem.Client) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
			if !ok {
				return nil, authsvc.ErrClaimsMissing
			}

			uuid, ok := claims["uuid"].(string)
			if !ok {
				return nil, authsvc.ErrClaimsInvalid
			}

			err = c.Get(ctx, uuid)
			if err != nil {
				return nil, err
			}

			ctx = context.WithValue(ctx, authsvc.JWTUUIDContextKey, uuid)

			return next(ctx, request)
		}
	}
}
