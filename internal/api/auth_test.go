package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   string
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), "user-42"),
			userId:   "user-42",
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %q", tc.userId)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("secret")
	assert.NoError(t, err, "expected hashing to succeed")
	assert.NotEqual(t, "secret", hash, "expected the hash to differ from the password")

	assert.True(t, verifyPassword(hash, "secret"), "expected the right password to verify")
	assert.False(t, verifyPassword(hash, "wrong"), "expected a wrong password to fail")
}

func TestJwtRoundTrip(t *testing.T) {
	app := &App{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession("user-1", defaultJwtExpiration)
	assert.NoError(t, err, "expected token creation to succeed")

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected token to parse")
	assert.Equal(t, "user-1", userId, "expected the user id claim to round trip")

	t.Run("wrong key is rejected", func(t *testing.T) {
		other := &App{signingKey: []byte("other-key")}
		_, err := other.extractUserIdFromToken(token)
		assert.Error(t, err, "expected a token signed with another key to be rejected")
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		expired, err := app.createJwtForSession("user-1", -1)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(expired)
		assert.Error(t, err, "expected an expired token to be rejected")
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := app.extractUserIdFromToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestCreateJwtCookie(t *testing.T) {
	cookie := createJwtCookie("token-value", defaultJwtExpiration)

	assert.Equal(t, tokenCookieKey, cookie.Name)
	assert.Equal(t, "token-value", cookie.Value)
	assert.True(t, cookie.HttpOnly, "expected the cookie to be http-only")
	assert.Equal(t, "/", cookie.Path)
}
