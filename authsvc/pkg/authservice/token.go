package authservice

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/ichigozero/focusflow/authsvc"
)

// Tokenizer mints and checks identity tokens.
type Tokenizer interface {
	Issue(userID string) (string, error)
	Verifier
}

// Verifier decodes a token into the user ID it was issued for. It fails with
// authsvc.ErrTokenMalformed, authsvc.ErrTokenSignatureInvalid or
// authsvc.ErrTokenExpired.
type Verifier interface {
	Verify(token string) (string, error)
}

// Claims is the payload of an identity token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.StandardClaims
}

type tokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenizer returns an HS256 Tokenizer. Tokens expire ttl after issue;
// a non-positive ttl falls back to TokenExpiry.
func NewTokenizer(secret string, ttl time.Duration) Tokenizer {
	if ttl <= 0 {
		ttl = TokenExpiry()
	}
	return &tokenizer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *tokenizer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", authsvc.ErrInvalidArgument
	}

	now := t.now()
	claims := Claims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *tokenizer) Verify(token string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, t.keyFunc)
	if err != nil {
		return "", verificationError(err)
	}

	if claims.UserID == "" {
		return "", authsvc.ErrTokenMalformed
	}
	return claims.UserID, nil
}

func (t *tokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return t.secret, nil
}

// verificationError maps a jwt-go parse failure onto the verifier's error set.
// A bad signature wins over expiry.
func verificationError(err error) error {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return authsvc.ErrTokenMalformed
	}

	switch {
	case ve.Errors&jwt.ValidationErrorMalformed != 0:
		return authsvc.ErrTokenMalformed
	case ve.Errors&(jwt.ValidationErrorSignatureInvalid|jwt.ValidationErrorUnverifiable) != 0:
		return authsvc.ErrTokenSignatureInvalid
	case ve.Errors&jwt.ValidationErrorExpired != 0:
		return authsvc.ErrTokenExpired
	}
	return authsvc.ErrTokenMalformed
}

func TokenExpiry() time.Duration {
	return time.Hour * 24
}
