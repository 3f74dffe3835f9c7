package utils // package utils provides token and credential helpers for the admin API

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// RoleAdmin is the only role the queue issues.  Staff consoles and
// dashboards authenticate as it.
const RoleAdmin = "ADMIN"

// AccessToken is a signed JWT together with its expiry.  The Token field
// is sent back by clients in the Authorization header.
type AccessToken struct {
    Token string    `json:"token"`
    Exp   time.Time `json:"expires_at"`
}

// Claims are the claims carried by an admin token: the standard registered
// claims plus the role.
type Claims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// NewAccessToken builds and signs an HS256 JWT for subject with role.  The
// token is valid from now for ttlMin minutes.
func NewAccessToken(secret, subject, role string, ttlMin int, now time.Time) (AccessToken, error) {
    if secret == "" {
        return AccessToken{}, errors.New("empty signing secret")
    }
    now = now.UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := Claims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   subject,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns its claims.  Only
// HMAC-signed tokens are accepted; expiry is checked against now, or the
// wall clock when now is nil.
func ParseAccessToken(secret, raw string, now func() time.Time) (*Claims, error) {
    if now == nil {
        now = time.Now
    }
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        // Reject anything not signed with HMAC, e.g. "none" or RSA swaps.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, errors.New("unexpected signing method")
        }
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(now))
    if err != nil {
        return nil, err
    }
    if !tok.Valid {
        return nil, errors.New("invalid token")
    }
    return claims, nil
}
