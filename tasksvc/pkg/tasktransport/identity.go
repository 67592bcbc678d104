package tasktransport

import (
	"context"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
)

// Identify verifies the bearer token placed in the context by HTTPToContext
// or GRPCToContext and stores its claims for the endpoints. Unlike
// kitjwt.NewParser it never rejects a request: a missing, malformed, expired
// or badly signed token leaves the caller anonymous.
func Identify(secret []byte) endpoint.Middleware {
	keyFunc := func(token *stdjwt.Token) (interface{}, error) {
		if token.Method != stdjwt.SigningMethodHS256 {
			return nil, kitjwt.ErrUnexpectedSigningMethod
		}
		return secret, nil
	}

	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			tokenString, ok := ctx.Value(kitjwt.JWTTokenContextKey).(string)
			if !ok || tokenString == "" {
				return next(ctx, request)
			}

			token, err := stdjwt.ParseWithClaims(tokenString, stdjwt.MapClaims{}, keyFunc)
			if err != nil || !token.Valid {
				return next(ctx, request)
			}

			ctx = context.WithValue(ctx, kitjwt.JWTClaimsContextKey, token.Claims)
			return next(ctx, request)
		}
	}
}
