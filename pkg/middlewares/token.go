package middlewares

import (
	"strings"

	t_token "chat_relay_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
	//TokenCredentials raw token, set c.locals name
	TokenCredentials = "credentials"
)

// ExtractToken Authorization header first, then query, then cookie
func ExtractToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	// 如果 header 中沒有 token，則嘗試從查詢參數和 Cookie 中獲取
	if q := c.Query(QueryToken); q != "" {
		return q
	}
	return c.Cookies(CookieToken)
}

// Credentials raw token stored by JWTMiddleware, empty when the caller is anonymous
func Credentials(c *fiber.Ctx) string {
	s, _ := c.Locals(TokenCredentials).(string)
	return s
}

// MemberID member id stored by JWTMiddleware
func MemberID(c *fiber.Ctx) string {
	s, _ := c.Locals(TokenMemberID).(string)
	return s
}

// JWTMiddleware validates the JWT and passes its claims through c.Locals
//
// With required=false a missing token lets the request through anonymously,
// a present but invalid token is still rejected.
func JWTMiddleware(required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ExtractToken(c)

		if tokenStr == "" {
			if !required {
				return c.Next()
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenRole, claims.Role)
		c.Locals(TokenCredentials, tokenStr)
		return c.Next()
	}
}
