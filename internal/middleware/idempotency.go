package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ridehail/internal/redis"
)

const idempotencyHeader = "Idempotency-Key"

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a client repeats an
// Idempotency-Key. Keys are scoped to the authenticated user, so it must run
// after Authenticate. Requests without the header pass through.
func Idempotency(store *redis.IdempotencyStore, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		scope := "anonymous"
		if user := CurrentUser(c); user != nil {
			scope = user.ID
		}
		scopedKey := scope + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key

		ctx := c.Request.Context()
		log := logger.WithFields(logrus.Fields{"idempotency_key": key, "request_id": GetRequestID(c)})

		stored, err := store.Get(ctx, scopedKey)
		if err != nil {
			// Redis error - proceed without idempotency.
			log.WithError(err).Warn("idempotency lookup failed")
			c.Next()
			return
		}
		if stored != nil {
			replay(c, stored)
			return
		}

		acquired, err := store.AcquireLock(ctx, scopedKey)
		if err != nil {
			log.WithError(err).Warn("idempotency lock failed")
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "A request with this Idempotency-Key is already in progress",
			})
			return
		}
		defer func() {
			if err := store.ReleaseLock(ctx, scopedKey); err != nil {
				log.WithError(err).Warn("idempotency unlock failed")
			}
		}()

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Failures are rendered later by the error handler and are not stored,
		// so the client can retry them.
		if len(c.Errors) > 0 || !c.Writer.Written() {
			return
		}
		if status := c.Writer.Status(); status < http.StatusInternalServerError {
			response := &redis.StoredResponse{
				StatusCode: status,
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			if err := store.Save(ctx, scopedKey, response); err != nil {
				log.WithError(err).Warn("failed to store idempotent response")
			}
		}
	}
}

func replay(c *gin.Context, stored *redis.StoredResponse) {
	for k, v := range stored.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Header("Idempotent-Replayed", "true")
	c.Data(stored.StatusCode, "application/json; charset=utf-8", stored.Body)
	c.Abort()
}

// extractResponseHeaders extracts headers to store.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
