package authsvc

import (
	"errors"

	"github.com/ichigozero/tasknotes/internal/config"
)

var (
	AppEnv         = config.GetEnv("APP_ENV", "")
	AccessSecret   = config.GetEnv("ACCESS_SECRET", "access-secret")
	RefreshSecret  = config.GetEnv("REFRESH_SECRET", "refresh-secret")
	CookieHashKey  = config.GetEnv("COOKIE_HASH_KEY", "very-secret")
	CookieBlockKey = config.GetEnv("COOKIE_BLOCK_KEY", "a-lots-of-secret")
)

type contextKey string

const JWTUUIDContextKey contextKey = "JWTUUID"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClaimsMissing   = errors.New("JWT claims was not passed through the context")
	ErrClaimsInvalid   = errors.New("JWT claims was invalid")
	ErrSessionExpired  = errors.New("session expired or revoked")
)
