package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserContext reads the caller's identity from the X-User-ID header set by
// the gateway and stores it in Locals. Receiving records who scanned and who
// confirmed; session handling itself lives outside this service.
func UserContext(ctx *fiber.Ctx) error {
	var userID int64
	if raw := ctx.Get("X-User-ID"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			userID = v
		}
	}
	ctx.Locals("userID", userID)
	return ctx.Next()
}

// RequestLogger logs every request with latency and status.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		log.Info("request",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Int("status", ctx.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)))

		return err
	}
}
