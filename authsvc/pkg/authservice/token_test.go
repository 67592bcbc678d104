package authservice

import (
	"testing"
	"time"

	stdjwt "github.com/dgrijalva/jwt-go"
)

func TestTokenizerGenerate(t *testing.T) {
	tk := NewTokenizerWithSecrets(accessSecret, refreshSecret)

	at, rt, err := tk.Generate("u1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if rt.AccessUUID != at.UUID || rt.RefreshUUID != RefreshUUID(at.UUID) {
		t.Fatalf("refresh token not paired: %+v, %+v", at, rt)
	}

	access := claimsOf(t, at.Hash, accessSecret)
	exp := int64(access["exp"].(float64))
	if d := time.Until(time.Unix(exp, 0)); d <= 0 || d > AccessTokenExpiry() {
		t.Fatalf("access expiry in %v", d)
	}

	if _, err := stdjwt.Parse(at.Hash, func(*stdjwt.Token) (interface{}, error) { return refreshSecret, nil }); err == nil {
		t.Fatalf("access token verified with the refresh secret")
	}

	at2, _, err := tk.Generate("u1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if at2.UUID == at.UUID {
		t.Fatalf("Generate reused access uuid %s", at.UUID)
	}
}

func TestRefreshUUIDDeterministic(t *testing.T) {
	if RefreshUUID("a") != RefreshUUID("a") {
		t.Fatalf("RefreshUUID not deterministic")
	}
	if RefreshUUID("a") == RefreshUUID("b") {
		t.Fatalf("RefreshUUID collides")
	}
}
