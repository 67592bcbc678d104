package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/ichigozero/tasknotes/authsvc"
	"github.com/ichigozero/tasknotes/authsvc/inmem"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authendpoint"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authservice"
	"github.com/ichigozero/tasknotes/usersvc"
)

func NewHTTPHandler(endpoints authendpoint.Set, client inmem.Client, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	sc := NewCookieCodec()

	signUpHandler := httptransport.NewServer(
		endpoints.SignUpEndpoint,
		decodeHTTPCredentialsRequest,
		encodeHTTPTokensResponse(sc),
		options...,
	)

	signInHandler := httptransport.NewServer(
		endpoints.SignInEndpoint,
		decodeHTTPCredentialsRequest,
		encodeHTTPTokensResponse(sc),
		options...,
	)

	anonymousHandler := httptransport.NewServer(
		endpoints.AnonymousEndpoint,
		decodeHTTPAnonymousRequest,
		encodeHTTPTokensResponse(sc),
		options...,
	)

	var logoutEndpoint endpoint.Endpoint
	{
		kf := func(token *stdjwt.Token) (interface{}, error) {
			return []byte(authsvc.AccessSecret), nil
		}

		logoutEndpoint = endpoints.LogoutEndpoint
		logoutEndpoint = NewAuthenticater(client)(logoutEndpoint)
		logoutEndpoint = kitjwt.NewParser(
			kf,
			stdjwt.SigningMethodHS256,
			kitjwt.MapClaimsFactory,
		)(logoutEndpoint)
	}

	logoutHandler := httptransport.NewServer(
		logoutEndpoint,
		decodeHTTPLogoutRequest,
		encodeHTTPLogoutResponse,
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext()))...,
	)

	var refreshEndpoint endpoint.Endpoint
	{
		kf := func(token *stdjwt.Token) (interface{}, error) {
			return []byte(authsvc.RefreshSecret), nil
		}

		refreshEndpoint = endpoints.RefreshEndpoint
		refreshEndpoint = kitjwt.NewParser(
			kf,
			stdjwt.SigningMethodHS256,
			kitjwt.MapClaimsFactory,
		)(refreshEndpoint)
	}

	refreshHandler := httptransport.NewServer(
		refreshEndpoint,
		decodeHTTPRefreshRequest,
		encodeHTTPTokensResponse(sc),
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext(), cookieToContext(sc)))...,
	)

	validateHandler := httptransport.NewServer(
		endpoints.ValidateEndpoint,
		decodeHTTPValidateRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/signup").Handler(signUpHandler)
	r.Methods("POST").Path("/signin").Handler(signInHandler)
	r.Methods("POST").Path("/anonymous").Handler(anonymousHandler)
	r.Methods("POST").Path("/logout").Handler(logoutHandler)
	r.Methods("POST").Path("/refresh").Handler(refreshHandler)
	r.Methods("POST").Path("/validate").Handler(validateHandler)

	return r
}

// NewHTTPClient returns a Set calling the authsvc instance over HTTP. Tokens
// in the context are forwarded as bearer tokens.
func NewHTTPClient(instance string, logger log.Logger) (authendpoint.Set, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return authendpoint.Set{}, err
	}

	var options []httptransport.ClientOption

	client := func(path string, dec httptransport.DecodeResponseFunc, opts ...httptransport.ClientOption) endpoint.Endpoint {
		return httptransport.NewClient(
			"POST",
			copyURL(u, path),
			encodeHTTPGenericRequest,
			dec,
			append(options, opts...)...,
		).Endpoint()
	}

	return authendpoint.Set{
		SignUpEndpoint:    client("/signup", decodeHTTPTokensResponse),
		SignInEndpoint:    client("/signin", decodeHTTPTokensResponse),
		AnonymousEndpoint: client("/anonymous", decodeHTTPTokensResponse),
		LogoutEndpoint:    client("/logout", decodeHTTPLogoutResponse, httptransport.ClientBefore(kitjwt.ContextToHTTP())),
		RefreshEndpoint:   client("/refresh", decodeHTTPTokensResponse, httptransport.ClientBefore(kitjwt.ContextToHTTP())),
		ValidateEndpoint:  client("/validate", decodeHTTPValidateResponse),
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = path
	return &next
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(errorWrapper{Error: err.Error()})
}

var unauthorizedErrors = []error{
	usersvc.ErrInvalidCredentials,
	usersvc.ErrUserNotFound,
	authsvc.ErrClaimsMissing,
	authsvc.ErrClaimsInvalid,
	authsvc.ErrSessionExpired,
	inmem.ErrKeyNotFound,
	kitjwt.ErrTokenContextMissing,
	kitjwt.ErrTokenExpired,
	kitjwt.ErrTokenInvalid,
	kitjwt.ErrTokenMalformed,
	kitjwt.ErrTokenNotActive,
	kitjwt.ErrUnexpectedSigningMethod,
}

var badRequestErrors = []error{
	usersvc.ErrInvalidArgument,
	authsvc.ErrInvalidArgument,
}

func err2code(err error) int {
	for _, e := range badRequestErrors {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	for _, e := range unauthorizedErrors {
		if errors.Is(err, e) {
			return http.StatusUnauthorized
		}
	}
	if errors.Is(err, usersvc.ErrUserExists) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// str2err maps an error message received from a remote authsvc back to
// the local sentinel so err2code treats it the same way.
func str2err(s string) error {
	for _, known := range append(append([]error{usersvc.ErrUserExists}, badRequestErrors...), unauthorizedErrors...) {
		if s == known.Error() {
			return known
		}
	}
	return errors.New(s)
}

type errorWrapper struct {
	Error string `json:"error"`
}

func decodeHTTPCredentialsRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPAnonymousRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return authendpoint.AnonymousRequest{}, nil
}

func decodeHTTPLogoutRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return authendpoint.LogoutRequest{}, nil
}

func decodeHTTPRefreshRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return authendpoint.RefreshRequest{}, nil
}

func decodeHTTPValidateRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

// Non-200 replies carry a business error, which the decoders below return
// inside the response so that load balancers do not retry it.

func decodeHTTPTokensResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return authendpoint.TokensResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp authendpoint.TokensResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPLogoutResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return authendpoint.LogoutResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp authendpoint.LogoutResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPValidateResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return authendpoint.ValidateResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp authendpoint.ValidateResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPError(r *http.Response) error {
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Error == "" {
		return errors.New(r.Status)
	}
	return str2err(w.Error)
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Body = io.NopCloser(&buf)
	return nil
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// encodeHTTPTokensResponse also hands the refresh token to browsers as a
// secure cookie.
func encodeHTTPTokensResponse(sc *securecookie.SecureCookie) httptransport.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		if resp, ok := response.(authendpoint.TokensResponse); ok && resp.Err == nil {
			if refresh := resp.Tokens["refresh"]; refresh != "" {
				if err := setRefreshCookie(w, sc, refresh); err != nil {
					return err
				}
			}
		}
		return encodeHTTPGenericResponse(ctx, w, response)
	}
}

func encodeHTTPLogoutResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if resp, ok := response.(authendpoint.LogoutResponse); ok && resp.Err == nil {
		clearRefreshCookie(w)
	}
	return encodeHTTPGenericResponse(ctx, w, response)
}

var _ authservice.Service = authendpoint.Set{}
