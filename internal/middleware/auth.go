package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// AdminAuth guards maintenance endpoints with a static bearer token.
type AdminAuth struct {
	token string
}

// NewAdminAuth creates the admin middleware. An empty token disables the check.
func NewAdminAuth(token string) *AdminAuth {
	return &AdminAuth{token: token}
}

// RequireToken rejects requests whose Authorization header does not carry the admin token.
func (m *AdminAuth) RequireToken(c fiber.Ctx) error {
	if m.token == "" {
		return c.Next()
	}

	presented, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(m.token)) != 1 {
		c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="hitokoto"`)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": "error",
			"error":  "unauthorized",
		})
	}
	return c.Next()
}

// bearerToken extracts the credentials from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
