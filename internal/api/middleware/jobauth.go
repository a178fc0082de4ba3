/**
 * @description
 * Shared-secret middleware for the job mutation endpoints.
 * Enqueue and mapping-commit routes are called by trusted internal callers
 * (schedulers, the item service), not end users, so a static header secret
 * is enough.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 *
 * @notes
 * - Comparison is constant-time; the secret never appears in logs.
 * - In development/test the secret may be empty, which disables the check.
 */

package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// JobSecretHeader carries the shared secret on mutation requests.
const JobSecretHeader = "X-Job-Secret"

// JobAuth guards a route group with a shared header secret. An empty
// configured secret disables the guard (development/test only; Load rejects
// it elsewhere).
func JobAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		provided := c.Get(JobSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid job secret"})
		}
		return c.Next()
	}
}
