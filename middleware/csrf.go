package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	CSRFHeader     = "X-CSRF-Token"
	csrfSessionKey = "csrf_token"
)

func GenerateCSRFToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// CSRFTokenHandler issues the session's token, creating one on first use.
func CSRFTokenHandler(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
		}

		token := sess.Get(csrfSessionKey)
		if token == nil {
			newToken, err := GenerateCSRFToken()
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate CSRF token"})
			}
			sess.Set(csrfSessionKey, newToken)
			if err := sess.Save(); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
			}
			token = newToken
		}
		return c.JSON(fiber.Map{"csrf_token": token})
	}
}

func NewCustomCSRFMiddleware(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Safe methods do not change state.
		method := c.Method()
		if method == fiber.MethodGet || method == fiber.MethodHead || method == fiber.MethodOptions {
			return c.Next()
		}

		sess, err := store.Get(c)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
		}

		storedToken, _ := sess.Get(csrfSessionKey).(string)
		if storedToken == "" {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "CSRF token not found in session"})
		}

		clientToken := c.Get(CSRFHeader)
		if clientToken == "" {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "CSRF token missing from request header"})
		}

		if subtle.ConstantTimeCompare([]byte(clientToken), []byte(storedToken)) != 1 {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "CSRF token mismatch"})
		}

		return c.Next()
	}
}
