package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"stagebook/pkg/model"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

type Claims struct {
	Sub    string `json:"sub"`
	Role   string `json:"role"`
	Status string `json:"status,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the acting identity. A missing status
// claim means the account is active.
func (c *Claims) Principal() (*model.Principal, error) {
	role := model.Role(c.Role)
	if c.Sub == "" || !role.IsValid() {
		return nil, ErrInvalidClaims
	}
	status := model.PrincipalStatus(c.Status)
	if status == "" {
		status = model.PrincipalActive
	}
	return &model.Principal{ID: c.Sub, Role: role, Status: status}, nil
}

func CreateAccessToken(secret string, p model.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:    p.ID,
		Role:   string(p.Role),
		Status: string(p.Status),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseValidate(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}
