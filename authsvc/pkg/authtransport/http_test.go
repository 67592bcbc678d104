package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/authsvc"
	"github.com/ichigozero/tasknotes/authsvc/inmem"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authendpoint"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authservice"
	"github.com/ichigozero/tasknotes/usersvc"
	usergorm "github.com/ichigozero/tasknotes/usersvc/db/gorm"
	"github.com/ichigozero/tasknotes/usersvc/pkg/userservice"
	goredis "github.com/redis/go-redis/v9"
	"github.com/twinj/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewV4().String()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := usergorm.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	l := log.NewNopLogger()
	sessions := inmem.NewRedisClient(rdb)
	users := userservice.NewBasicService(usergorm.NewUserRepository(db), bcrypt.MinCost)
	svc := authservice.New(authservice.NewTokenizer(), sessions, users, l)

	srv := httptest.NewServer(NewHTTPHandler(authendpoint.New(svc, l), sessions, l))
	t.Cleanup(srv.Close)
	return srv
}

type reply struct {
	Tokens  map[string]string `json:"tokens"`
	Success bool              `json:"success"`
	V       bool              `json:"v"`
	Error   string            `json:"error"`
}

func post(t *testing.T, srv *httptest.Server, path string, body interface{}, prepare func(*http.Request)) (*http.Response, reply) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest("POST", srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if prepare != nil {
		prepare(req)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var r reply
	json.NewDecoder(resp.Body).Decode(&r)
	return resp, r
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in reply", refreshCookieName)
	return nil
}

func accessUUID(t *testing.T, token string) string {
	t.Helper()
	parsed, err := stdjwt.Parse(token, func(*stdjwt.Token) (interface{}, error) {
		return []byte(authsvc.AccessSecret), nil
	})
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	return parsed.Claims.(stdjwt.MapClaims)["uuid"].(string)
}

func TestHTTPSessionLifecycle(t *testing.T) {
	srv := newServer(t)
	creds := map[string]string{"username": "alice", "password": "secret"}

	resp, signup := post(t, srv, "/signup", creds, nil)
	if resp.StatusCode != http.StatusOK || signup.Tokens["access"] == "" {
		t.Fatalf("signup: status %d, reply %+v", resp.StatusCode, signup)
	}
	cookie := refreshCookie(t, resp)
	if !cookie.HttpOnly {
		t.Fatalf("refresh cookie is not HttpOnly")
	}

	if resp, r := post(t, srv, "/signup", creds, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: status %d (%s), want 409", resp.StatusCode, r.Error)
	}
	if resp, _ := post(t, srv, "/signin", map[string]string{"username": "alice", "password": "nope"}, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad signin: status %d, want 401", resp.StatusCode)
	}
	if resp, r := post(t, srv, "/signin", creds, nil); resp.StatusCode != http.StatusOK || r.Tokens["refresh"] == "" {
		t.Fatalf("signin: status %d, reply %+v", resp.StatusCode, r)
	}

	first := accessUUID(t, signup.Tokens["access"])
	if _, r := post(t, srv, "/validate", map[string]string{"access_uuid": first}, nil); !r.V {
		t.Fatalf("validate after signup = false")
	}

	// no Authorization header, the cookie carries the refresh token
	resp, refreshed := post(t, srv, "/refresh", nil, func(r *http.Request) { r.AddCookie(cookie) })
	if resp.StatusCode != http.StatusOK || refreshed.Tokens["access"] == "" {
		t.Fatalf("refresh by cookie: status %d, reply %+v", resp.StatusCode, refreshed)
	}
	if _, r := post(t, srv, "/validate", map[string]string{"access_uuid": first}, nil); r.V {
		t.Fatalf("old access session still valid after refresh")
	}

	if resp, _ := post(t, srv, "/refresh", nil, func(r *http.Request) { r.AddCookie(cookie) }); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("reused refresh cookie: status %d, want 401", resp.StatusCode)
	}

	resp, out := post(t, srv, "/logout", nil, bearer(refreshed.Tokens["access"]))
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("logout: status %d, reply %+v", resp.StatusCode, out)
	}
	if c := refreshCookie(t, resp); c.MaxAge >= 0 {
		t.Fatalf("logout did not clear the refresh cookie: %+v", c)
	}

	if resp, _ := post(t, srv, "/logout", nil, bearer(refreshed.Tokens["access"])); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("second logout: status %d, want 401", resp.StatusCode)
	}
	if resp, _ := post(t, srv, "/logout", nil, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("logout without token: status %d, want 401", resp.StatusCode)
	}
}

func TestHTTPAnonymous(t *testing.T) {
	srv := newServer(t)

	resp, r := post(t, srv, "/anonymous", nil, nil)
	if resp.StatusCode != http.StatusOK || r.Tokens["access"] == "" || r.Tokens["refresh"] == "" {
		t.Fatalf("anonymous: status %d, reply %+v", resp.StatusCode, r)
	}
	refreshCookie(t, resp)
}

func TestHTTPClient(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	client, err := NewHTTPClient(srv.URL, log.NewNopLogger())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	tokens, err := client.SignUp(ctx, "bob", "pw")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := client.SignUp(ctx, "bob", "pw"); !errors.Is(err, usersvc.ErrUserExists) {
		t.Fatalf("duplicate SignUp err = %v, want ErrUserExists", err)
	}
	if _, err := client.SignIn(ctx, "bob", "wrong"); !errors.Is(err, usersvc.ErrInvalidCredentials) {
		t.Fatalf("SignIn err = %v, want ErrInvalidCredentials", err)
	}

	id := accessUUID(t, tokens["access"])
	if ok, err := client.Validate(ctx, id); err != nil || !ok {
		t.Fatalf("Validate = %v, %v", ok, err)
	}

	withToken := context.WithValue(ctx, kitjwt.JWTTokenContextKey, tokens["access"])
	if ok, err := client.Logout(withToken, ""); err != nil || !ok {
		t.Fatalf("Logout = %v, %v", ok, err)
	}
	if ok, err := client.Validate(ctx, id); err != nil || ok {
		t.Fatalf("Validate after Logout = %v, %v", ok, err)
	}

	withRefresh := context.WithValue(ctx, kitjwt.JWTTokenContextKey, tokens["refresh"])
	if _, err := client.Refresh(withRefresh, "", "", ""); !errors.Is(err, authsvc.ErrSessionExpired) {
		t.Fatalf("Refresh after Logout err = %v, want ErrSessionExpired", err)
	}
}

func TestErr2Code(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{usersvc.ErrUserExists, http.StatusConflict},
		{usersvc.ErrInvalidCredentials, http.StatusUnauthorized},
		{authsvc.ErrSessionExpired, http.StatusUnauthorized},
		{kitjwt.ErrTokenExpired, http.StatusUnauthorized},
		{inmem.ErrKeyNotFound, http.StatusUnauthorized},
		{authsvc.ErrInvalidArgument, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := err2code(tt.err); got != tt.want {
			t.Fatalf("err2code(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
