// Package auth issues and verifies the identity tokens that gate access to
// the realtime channel. Tokens carry the minimal identity context a room
// participant needs: user ID, display name and role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles recognised by the live-class service. A host is the room creator or
// any admin; the role string itself is carried opaquely everywhere else.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified identity context of a connected user.
type Identity struct {
	ID   string
	Name string
	Role string
}

// Claims is the JWT claim set for channel access tokens.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Sign mints an HS256 token for the given identity, valid for ttl.
func Sign(secret []byte, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: id.Name,
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns the identity it carries.
func Verify(secret []byte, raw string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		ID:   claims.Subject,
		Name: claims.Name,
		Role: claims.Role,
	}, nil
}
