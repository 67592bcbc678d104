package authservice

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/ichigozero/tasknotes/authsvc"
	"github.com/twinj/uuid"
)

type AccessToken struct {
	UUID string
	Hash string
}

type RefreshToken struct {
	AccessUUID  string
	RefreshUUID string
	Hash        string
}

type Tokenizer interface {
	Generate(userID string) (*AccessToken, *RefreshToken, error)
}

type tokenizer struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewTokenizer signs tokens with the secrets configured in authsvc.
func NewTokenizer() Tokenizer {
	return NewTokenizerWithSecrets([]byte(authsvc.AccessSecret), []byte(authsvc.RefreshSecret))
}

func NewTokenizerWithSecrets(accessSecret, refreshSecret []byte) Tokenizer {
	return &tokenizer{accessSecret: accessSecret, refreshSecret: refreshSecret}
}

func (t *tokenizer) Generate(userID string) (*AccessToken, *RefreshToken, error) {
	access, err := t.generateAccessToken(userID)
	if err != nil {
		return nil, nil, err
	}

	refresh, err := t.generateRefreshToken(userID, access.UUID)
	if err != nil {
		return nil, nil, err
	}

	return access, refresh, nil
}

var (
	uuidV4 = uuid.NewV4
	uuidV5 = uuid.NewV5
)

// RefreshUUID derives the refresh session key of an access session.
func RefreshUUID(accessUUID string) string {
	return uuidV5(uuid.NameSpaceURL, accessUUID).String()
}

func (t *tokenizer) generateAccessToken(userID string) (*AccessToken, error) {
	id := uuidV4().String()
	expiry := time.Now().Add(AccessTokenExpiry()).Unix()

	claims := jwt.MapClaims{
		"uuid":    id,
		"user_id": userID,
		"exp":     expiry,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	hash, err := token.SignedString(t.accessSecret)
	if err != nil {
		return nil, err
	}

	return &AccessToken{id, hash}, nil
}

func (t *tokenizer) generateRefreshToken(userID string, accessUUID string) (*RefreshToken, error) {
	refreshUUID := RefreshUUID(accessUUID)
	expiry := time.Now().Add(RefreshTokenExpiry()).Unix()

	claims := jwt.MapClaims{
		"access_uuid":  accessUUID,
		"refresh_uuid": refreshUUID,
		"user_id":      userID,
		"exp":          expiry,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	hash, err := token.SignedString(t.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &RefreshToken{accessUUID, refreshUUID, hash}, nil
}

func AccessTokenExpiry() time.Duration {
	return time.Minute * 30
}

func RefreshTokenExpiry() time.Duration {
	return time.Hour * 24 * 7
}
