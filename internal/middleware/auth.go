package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Actor is the authenticated caller as asserted by the identity service's
// token. Handlers read it from the echo context after the JWT middleware ran.
type Actor struct {
	ID       string
	Role     string // customer | handyman | admin
	FullName string
}

const actorKey = "actor"

// JWT builds the bearer-token middleware. Claims: id, role, full_name.
func JWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := parseActor(c.Request().Header.Get("Authorization"), key)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			c.Set(actorKey, actor)
			// kept for handlers that only need the id
			c.Set("user_id", actor.ID)
			c.Set("role", actor.Role)
			return next(c)
		}
	}
}

func parseActor(header string, key []byte) (Actor, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return Actor{}, errors.New("missing bearer token")
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, errors.New("invalid token claims")
	}

	id, _ := claims["id"].(string)
	if id == "" {
		return Actor{}, errors.New("token missing id claim")
	}
	role, _ := claims["role"].(string)
	fullName, _ := claims["full_name"].(string)
	return Actor{ID: id, Role: role, FullName: fullName}, nil
}

// ActorFrom returns the authenticated caller, or ok=false when the request
// skipped JWT (should not happen on protected routes).
func ActorFrom(c echo.Context) (Actor, bool) {
	a, ok := c.Get(actorKey).(Actor)
	return a, ok && a.ID != ""
}

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles("handyman"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "role missing"})
			}
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		}
	}
}
