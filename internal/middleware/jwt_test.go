package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newJWTApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(secret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		id, _ := c.Locals("user_id").(uint)
		role, _ := c.Locals("user_role").(string)
		return c.JSON(fiber.Map{"id": id, "role": role})
	})
	return app
}

func TestJWTProtectedStoresIdentity(t *testing.T) {
	app := newJWTApp("secret")
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), Claims{
		Role: "Teacher",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	require.NoError(t, decodeJSON(resp, &body))
	require.Equal(t, uint(42), body.ID)
	require.Equal(t, "teacher", body.Role)
}

func TestJWTProtectedFallsBackToUserIDClaim(t *testing.T) {
	app := newJWTApp("secret")
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), Claims{UserID: 7, Role: "student"})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejects(t *testing.T) {
	valid := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}
	expired := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"wrong secret":   "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), valid),
		"wrong method":   "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte("secret"), valid),
		"expired":        "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("secret"), expired),
		"no subject":     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("secret"), Claims{Role: "admin"}),
	}

	app := newJWTApp("secret")
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func decodeJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
