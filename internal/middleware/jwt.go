package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// Claims carries the identity fields the grading API reads from bearer tokens.
type Claims struct {
	UserID uint   `json:"user_id,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTProtected validates HS256 bearer tokens and stores user_id and user_role in the request locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, ok := claims.subject()
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "token has no subject")
		}

		c.Locals("user_id", userID)
		if role := strings.ToLower(strings.TrimSpace(claims.Role)); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("authorization header missing")
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("invalid authorization header")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("invalid token")
	}
	return token, nil
}

// subject prefers the numeric sub claim and falls back to user_id.
func (c *Claims) subject() (uint, bool) {
	if c.Subject != "" {
		parsed, err := strconv.ParseUint(c.Subject, 10, 64)
		if err == nil && parsed > 0 {
			return uint(parsed), true
		}
	}
	if c.UserID > 0 {
		return c.UserID, true
	}
	return 0, false
}
