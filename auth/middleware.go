package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	tokenLocal  = "auth.token"
	TokenHeader = "X-Lumi-Token"
	TokenQuery  = "token"
)

// Extract stores the request's token for later handlers. It does not verify
// it; the note service does that on every operation.
func Extract() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(tokenLocal, tokenFromRequest(c))
		return c.Next()
	}
}

// Token returns the token stored by Extract, or "" if none was sent.
func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenLocal).(string)
	return token
}

func tokenFromRequest(c *fiber.Ctx) string {
	if token := c.Query(TokenQuery); token != "" {
		return token
	}
	if authz := c.Get(fiber.HeaderAuthorization); authz != "" {
		const prefix = "Bearer "
		if len(authz) > len(prefix) && strings.EqualFold(authz[:len(prefix)], prefix) {
			return strings.TrimSpace(authz[len(prefix):])
		}
	}
	return c.Get(TokenHeader)
}
