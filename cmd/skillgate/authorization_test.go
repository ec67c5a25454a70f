package main

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthorization(t *testing.T, auth *AuthorizationConfig) {
	t.Helper()
	config = Config{Authorization: auth}
	var errors []string
	validateAuthorizationConfig(collectErrors(&errors))
	require.Empty(t, errors)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	setupAuthorization(t, &AuthorizationConfig{TokenSecret: "secret", Scope: "skill, weather", LifeTime: "1h"})
	assert.Equal(t, []string{"skill", "weather"}, accessTokenScope)
	assert.Equal(t, time.Hour, accessTokenLifeTime)

	token, err := createAccessToken("alice")
	require.NoError(t, err)

	claims, err := parseAuthToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserName)
	assert.Equal(t, authTokenAccess, claims.Type)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), claims.ExpiresAt, 5)

	verifier := jwtAccessTokens{scope: []string{"weather"}}
	assert.NoError(t, verifier.VerifyAccessToken(token))
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	setupAuthorization(t, &AuthorizationConfig{TokenSecret: "secret"})
	verifier := jwtAccessTokens{scope: []string{"skill"}}

	assert.ErrorIs(t, verifier.VerifyAccessToken(""), errTokenMissing)

	token, err := createAccessToken("bob")
	require.NoError(t, err)
	assert.ErrorIs(t, verifier.VerifyAccessToken(token), errTokenScope)

	assert.Error(t, verifier.VerifyAccessToken(token+"x"))

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthTokenClaims{
		Type:      authTokenAccess,
		UserName:  "bob",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}).SignedString(authTokenSecret)
	require.NoError(t, err)
	assert.Error(t, jwtAccessTokens{}.VerifyAccessToken(expired))

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthTokenClaims{Type: authTokenAccess}).SignedString([]byte("other"))
	require.NoError(t, err)
	assert.Error(t, jwtAccessTokens{}.VerifyAccessToken(foreign))
}

func TestAuthorizationGeneratedSecret(t *testing.T) {
	setupAuthorization(t, &AuthorizationConfig{})
	assert.Len(t, authTokenSecret, generatedAuthTokenSecretSize)

	config = Config{}
	validateAuthorizationConfig(func(msg string) { t.Error(msg) })
	assert.Nil(t, authTokenSecret)
	_, err := createAccessToken("carol")
	assert.Error(t, err)
}
