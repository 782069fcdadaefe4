package access

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "library-catalog"

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Username     string   `json:"name"`
	Capabilities []string `json:"caps,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the viewer.
func IssueToken(secret []byte, v Viewer, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is empty")
	}
	if v.UserID == "" {
		return "", errors.New("token subject is empty")
	}
	caps := make([]string, len(v.Capabilities))
	for i, c := range v.Capabilities {
		caps[i] = string(c)
	}
	now := time.Now()
	claims := Claims{
		Username:     v.Username,
		Capabilities: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   v.UserID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature, expiry and issuer and returns the viewer.
func ParseToken(secret []byte, raw string) (Viewer, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Viewer{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Viewer{}, ErrInvalidToken
	}
	return Viewer{
		UserID:       claims.Subject,
		Username:     claims.Username,
		Capabilities: ParseCapabilities(claims.Capabilities),
	}, nil
}
