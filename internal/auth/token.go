package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. An mfa token only proves the password step of a two-factor
// login and is refused everywhere an access token is expected.
const (
	PurposeAccess = "access"
	PurposeMFA    = "mfa"
)

// Claims are the JWT claims issued by the platform
type Claims struct {
	Username string `json:"username"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the token
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenIssuer signs and verifies HS256 tokens with an injected secret
type TokenIssuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	mfaTTL    time.Duration
	now       func() time.Time
}

// NewTokenIssuer creates an issuer. Zero TTLs fall back to 24h and 5m.
func NewTokenIssuer(secret, issuer string, accessTTL, mfaTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	if mfaTTL <= 0 {
		mfaTTL = 5 * time.Minute
	}
	return &TokenIssuer{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
		mfaTTL:    mfaTTL,
		now:       time.Now,
	}, nil
}

// Issue signs a token for a user with the given purpose
func (t *TokenIssuer) Issue(userID int64, username, purpose string) (string, time.Time, error) {
	ttl := t.accessTTL
	if purpose == PurposeMFA {
		ttl = t.mfaTTL
	}
	now := t.now()
	expires := now.Add(ttl)

	claims := Claims{
		Username: username,
		Purpose:  purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a token and checks signature, expiry, issuer and purpose
func (t *TokenIssuer) Verify(token, purpose string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
