package authendpoint

import (
	"context"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/authsvc"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authservice"
)

type Set struct {
	SignUpEndpoint    endpoint.Endpoint
	SignInEndpoint    endpoint.Endpoint
	AnonymousEndpoint endpoint.Endpoint
	LogoutEndpoint    endpoint.Endpoint
	RefreshEndpoint   endpoint.Endpoint
	ValidateEndpoint  endpoint.Endpoint
}

func New(svc authservice.Service, logger log.Logger) Set {
	var signUpEndpoint endpoint.Endpoint
	{
		signUpEndpoint = MakeSignUpEndpoint(svc)
		signUpEndpoint = LoggingMiddleware(log.With(logger, "method", "SignUp"))(signUpEndpoint)
	}

	var signInEndpoint endpoint.Endpoint
	{
		signInEndpoint = MakeSignInEndpoint(svc)
		signInEndpoint = LoggingMiddleware(log.With(logger, "method", "SignIn"))(signInEndpoint)
	}

	var anonymousEndpoint endpoint.Endpoint
	{
		anonymousEndpoint = MakeAnonymousEndpoint(svc)
		anonymousEndpoint = LoggingMiddleware(log.With(logger, "method", "SignInAnonymous"))(anonymousEndpoint)
	}

	var logoutEndpoint endpoint.Endpoint
	{
		logoutEndpoint = MakeLogoutEndpoint(svc)
		logoutEndpoint = LoggingMiddleware(log.With(logger, "method", "Logout"))(logoutEndpoint)
	}

	var refreshEndpoint endpoint.Endpoint
	{
		refreshEndpoint = MakeRefreshEndpoint(svc)
		refreshEndpoint = LoggingMiddleware(log.With(logger, "method", "Refresh"))(refreshEndpoint)
	}

	var validateEndpoint endpoint.Endpoint
	{
		validateEndpoint = MakeValidateEndpoint(svc)
		validateEndpoint = LoggingMiddleware(log.With(logger, "method", "Validate"))(validateEndpoint)
	}

	return Set{
		SignUpEndpoint:    signUpEndpoint,
		SignInEndpoint:    signInEndpoint,
		AnonymousEndpoint: anonymousEndpoint,
		LogoutEndpoint:    logoutEndpoint,
		RefreshEndpoint:   refreshEndpoint,
		ValidateEndpoint:  validateEndpoint,
	}
}

func (s Set) SignUp(ctx context.Context, username, password string) (map[string]string, error) {
	response, err := s.SignUpEndpoint(ctx, CredentialsRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	resp := response.(TokensResponse)
	return resp.Tokens, resp.Err
}

func (s Set) SignIn(ctx context.Context, username, password string) (map[string]string, error) {
	response, err := s.SignInEndpoint(ctx, CredentialsRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	resp := response.(TokensResponse)
	return resp.Tokens, resp.Err
}

func (s Set) SignInAnonymous(ctx context.Context) (map[string]string, error) {
	response, err := s.AnonymousEndpoint(ctx, AnonymousRequest{})
	if err != nil {
		return nil, err
	}

	resp := response.(TokensResponse)
	return resp.Tokens, resp.Err
}

// Logout and Refresh read their arguments from the token in ctx, so the
// explicit arguments are not forwarded.

func (s Set) Logout(ctx context.Context, _ string) (bool, error) {
	response, err := s.LogoutEndpoint(ctx, LogoutRequest{})
	if err != nil {
		return false, err
	}

	resp := response.(LogoutResponse)
	return resp.Success, resp.Err
}

func (s Set) Refresh(ctx context.Context, _, _, _ string) (map[string]string, error) {
	response, err := s.RefreshEndpoint(ctx, RefreshRequest{})
	if err != nil {
		return nil, err
	}

	resp := response.(TokensResponse)
	return resp.Tokens, resp.Err
}

func (s Set) Validate(ctx context.Context, accessUUID string) (bool, error) {
	response, err := s.ValidateEndpoint(ctx, ValidateRequest{AccessUUID: accessUUID})
	if err != nil {
		return false, err
	}

	resp := response.(ValidateResponse)
	return resp.V, resp.Err
}

func MakeSignUpEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(CredentialsRequest)
		t, err := s.SignUp(ctx, req.Username, req.Password)

		return TokensResponse{Tokens: t, Err: err}, nil
	}
}

func MakeSignInEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(CredentialsRequest)
		t, err := s.SignIn(ctx, req.Username, req.Password)

		return TokensResponse{Tokens: t, Err: err}, nil
	}
}

func MakeAnonymousEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		_ = request.(AnonymousRequest)
		t, err := s.SignInAnonymous(ctx)

		return TokensResponse{Tokens: t, Err: err}, nil
	}
}

func MakeLogoutEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
		if !ok {
			return LogoutResponse{Err: authsvc.ErrClaimsMissing}, nil
		}

		uuid, ok := claims["uuid"].(string)
		if !ok {
			return LogoutResponse{Err: authsvc.ErrClaimsInvalid}, nil
		}

		_ = request.(LogoutRequest)
		s, err := s.Logout(ctx, uuid)

		return LogoutResponse{Success: s, Err: err}, nil
	}
}

func MakeRefreshEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
		if !ok {
			return TokensResponse{Err: authsvc.ErrClaimsMissing}, nil
		}

		accessUUID, ok := claims["access_uuid"].(string)
		if !ok {
			return TokensResponse{Err: authsvc.ErrClaimsInvalid}, nil
		}

		refreshUUID, ok := claims["refresh_uuid"].(string)
		if !ok {
			return TokensResponse{Err: authsvc.ErrClaimsInvalid}, nil
		}

		userID, ok := claims["user_id"].(string)
		if !ok {
			return TokensResponse{Err: authsvc.ErrClaimsInvalid}, nil
		}

		_ = request.(RefreshRequest)
		t, err := s.Refresh(ctx, accessUUID, refreshUUID, userID)

		return TokensResponse{Tokens: t, Err: err}, nil
	}
}

func MakeValidateEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(ValidateRequest)
		v, err := s.Validate(ctx, req.AccessUUID)

		return ValidateResponse{V: v, Err: err}, nil
	}
}

var (
	_ endpoint.Failer = TokensResponse{}
	_ endpoint.Failer = LogoutResponse{}
	_ endpoint.Failer = ValidateResponse{}
)

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AnonymousRequest struct{}

type TokensResponse struct {
	Tokens map[string]string `json:"tokens"`
	Err    error             `json:"-"`
}

func (r TokensResponse) Failed() error { return r.Err }

type LogoutRequest struct{}

type LogoutResponse struct {
	Success bool  `json:"success"`
	Err     error `json:"-"`
}

func (r LogoutResponse) Failed() error { return r.Err }

type RefreshRequest struct{}

type ValidateRequest struct {
	AccessUUID string `json:"access_uuid"`
}

type ValidateResponse struct {
	V   bool  `json:"v"`
	Err error `json:"-"`
}

func (r ValidateResponse) Failed() error { return r.Err }
