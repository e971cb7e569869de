package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagebook/pkg/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestCreateAndParse(t *testing.T) {
	token, err := CreateAccessToken(testSecret, model.Principal{ID: "artist-1", Role: model.RoleArtist, Status: model.PrincipalActive}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseValidate(testSecret, token)
	require.NoError(t, err)

	p, err := claims.Principal()
	require.NoError(t, err)
	assert.Equal(t, "artist-1", p.ID)
	assert.Equal(t, model.RoleArtist, p.Role)
	assert.True(t, p.IsActive())
}

func TestParseValidate_Rejects(t *testing.T) {
	valid, err := CreateAccessToken(testSecret, model.Principal{ID: "host-1", Role: model.RoleHost}, time.Hour)
	require.NoError(t, err)
	expired, err := CreateAccessToken(testSecret, model.Principal{ID: "host-1", Role: model.RoleHost}, -time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Sub: "x", Role: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "another-secret-of-some-length", valid},
		{"expired", testSecret, expired},
		{"alg none", testSecret, none},
		{"garbage", testSecret, "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValidate(tt.secret, tt.token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestClaims_Principal(t *testing.T) {
	tests := []struct {
		name    string
		claims  Claims
		status  model.PrincipalStatus
		wantErr bool
	}{
		{"defaults to active", Claims{Sub: "a", Role: "artist"}, model.PrincipalActive, false},
		{"suspended kept", Claims{Sub: "a", Role: "host", Status: "suspended"}, model.PrincipalSuspended, false},
		{"unknown role", Claims{Sub: "a", Role: "root"}, "", true},
		{"missing subject", Claims{Role: "admin"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.claims.Principal()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClaims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, p.Status)
		})
	}
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), &model.Principal{ID: "admin-1", Role: model.RoleAdmin})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, p.IsAdmin())
}
