package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/repositories/idempotency"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// IdempotencyHeader carries the client's retry key.
const IdempotencyHeader = "Idempotency-Key"

// ResponseStore is the persistence behind Idempotency.
type ResponseStore interface {
	Get(key string) (*idempotency.Response, error)
	Save(r *idempotency.Response) (*idempotency.Response, bool, error)
}

// Idempotency replays the recorded response when a request repeats its
// Idempotency-Key. 5xx responses are not recorded so the client can retry
// them for real. It must run after authentication.
func Idempotency(store ResponseStore, log zerolog.Logger) fiber.Handler {
	log = log.With().Str("component", "idempotency").Logger()

	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyHeader)
		if key == "" {
			return c.Next()
		}

		accountID, _ := c.Locals("accountID").(string)
		scoped := accountID + ":" + c.Method() + ":" + c.Path() + ":" + key
		fingerprint := fingerprintOf(c)

		recorded, err := store.Get(scoped)
		switch {
		case err == nil:
			if recorded.Fingerprint != fingerprint {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error": apperrors.ErrIdempotencyKeyReused.Message,
					"code":  apperrors.ErrIdempotencyKeyReused.Code,
				})
			}
			c.Set("Idempotent-Replayed", "true")
			if recorded.ContentType != "" {
				c.Set(fiber.HeaderContentType, recorded.ContentType)
			}
			return c.Status(recorded.Status).Send(recorded.Body)
		case !errors.Is(err, idempotency.ErrNotFound):
			log.Warn().Err(err).Msg("idempotency lookup failed")
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			return nil
		}
		_, _, err = store.Save(&idempotency.Response{
			Key:         scoped,
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		})
		if err != nil {
			log.Warn().Err(err).Msg("idempotent response not recorded")
		}
		return nil
	}
}

func fingerprintOf(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte{0})
	h.Write([]byte(c.Path()))
	h.Write([]byte{0})
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}
