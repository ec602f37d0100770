package echoapi

import (
	"sort"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/academia/core"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"

	tokenContextKey = "userToken"
)

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are minted by the identity provider; the API only verifies them.
type Claims struct {
	jwt.StandardClaims
	SchoolID string   `json:"school_id"`
	Name     string   `json:"name,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Actor is the identity the core records for the caller.
func (c Claims) Actor() core.Actor {
	return core.Actor{ID: c.Subject, Name: c.Name, Roles: c.Roles}
}

func (c Claims) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	owned := append([]string(nil), c.Roles...)
	sort.Strings(owned)
	for _, role := range roles {
		if i := sort.SearchStrings(owned, role); i < len(owned) && owned[i] == role {
			return true
		}
	}
	return false
}

// newJWTConfig is the JWT auth middleware config for tokens signed with secret.
func newJWTConfig(secret string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secret),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextActor(ctx echo.Context) (core.Actor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Actor{}, err
	}
	return claims.Actor(), nil
}
