package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dgrijalva/jwt-go"
)

var authTokenSecret []byte
var accessTokenLifeTime = time.Hour * 24 * 365
var accessTokenScope []string

const generatedAuthTokenSecretSize = 32

var generatedAuthTokenSecretAlphabet = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-")

var (
	errTokenMissing = errors.New("access token is missing")
	errTokenScope   = errors.New("access token scope is insufficient")
)

// AuthTokenClaims are carried by account linking access tokens.
type AuthTokenClaims struct {
	Type      byte     `json:"t,omitempty"`
	UserName  string   `json:"u,omitempty"`
	Scope     []string `json:"s,omitempty"`
	ExpiresAt int64    `json:"e,omitempty"`
}

const (
	authTokenAccess = byte(iota + 1)
)

func (c AuthTokenClaims) Valid() error {
	if c.Type != authTokenAccess {
		return fmt.Errorf("Unknown Type")
	}
	if c.ExpiresAt > 0 && c.ExpiresAt < time.Now().UTC().Unix() {
		return fmt.Errorf("Expired")
	}
	return nil
}

func validateAuthorizationConfig(cfgError configError) {
	authTokenSecret = nil
	accessTokenScope = nil
	if config.Authorization == nil {
		return
	}

	if config.Authorization.TokenSecret != "" {
		authTokenSecret = []byte(config.Authorization.TokenSecret)
	} else {
		authTokenSecret = []byte(randomString(generatedAuthTokenSecretSize, generatedAuthTokenSecretAlphabet))
		logger.Warn("authorization.tokenSecret is not set, issued tokens will not survive a restart")
	}

	accessTokenScope = parseScope(config.Authorization.Scope)

	if config.Authorization.LifeTime != "" {
		duration, err := parseTimeDuration(config.Authorization.LifeTime)
		if err == nil && duration < 0 {
			err = fmt.Errorf("negative value not allowed")
		}
		if err != nil {
			cfgError(fmt.Sprintf("authorization.lifeTime is not valid: %v", err))
		} else {
			accessTokenLifeTime = duration
		}
	}
}

func parseScope(scope string) []string {
	return strings.FieldsFunc(scope, func(r rune) bool { return r == ',' || r == ';' || unicode.IsSpace(r) })
}

// createAccessToken issues a token for the skill's account linking; zero lifetime means no expiry.
func createAccessToken(userName string) (string, error) {
	if authTokenSecret == nil {
		return "", fmt.Errorf("authorization is not configured")
	}
	claims := AuthTokenClaims{
		Type:     authTokenAccess,
		UserName: userName,
		Scope:    accessTokenScope,
	}
	if accessTokenLifeTime > 0 {
		claims.ExpiresAt = time.Now().UTC().Add(accessTokenLifeTime).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(authTokenSecret)
}

func parseAuthToken(tokenString string) (*AuthTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return authTokenSecret, nil
	})
	if err == nil {
		if claims, ok := token.Claims.(*AuthTokenClaims); ok && token.Valid {
			return claims, nil
		}
		err = fmt.Errorf("invalid token")
	}
	return nil, err
}

// jwtAccessTokens checks the user access token of linked accounts.
type jwtAccessTokens struct {
	scope []string
}

func (v jwtAccessTokens) VerifyAccessToken(token string) error {
	if token == "" {
		return errTokenMissing
	}
	claims, err := parseAuthToken(token)
	if err != nil {
		return err
	}
	for _, required := range v.scope {
		found := false
		for _, s := range claims.Scope {
			if s == required {
				found = true
				break
			}
		}
		if !found {
			return errTokenScope
		}
	}
	return nil
}
