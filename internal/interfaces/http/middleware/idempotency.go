package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Idempotency headers
const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotency-Replayed"
	maxIdempotencyKeyLength   = 255
)

// IdempotencyMiddlewareConfig configures Idempotency-Key handling
type IdempotencyMiddlewareConfig struct {
	Store  shared.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency records the first response for each (tenant, path, key) and
// replays it for retries with an identical body. A retry with a different
// body is rejected with 409. Requests without the header pass through.
//
// Responses with a 5xx status and handler panics are not recorded; the
// reservation is released so the client can retry.
func Idempotency(cfg IdempotencyMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" || cfg.Store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeValidation, "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				abortWithError(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
				return
			}
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Unable to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		storeKey := idempotencyStoreKey(c, key)
		hash := hashRequest(body)

		reserved, err := cfg.Store.Reserve(ctx, storeKey, hash, ttl)
		if err != nil {
			log.Error("idempotency store unavailable", zap.Error(err))
			abortWithError(c, http.StatusServiceUnavailable, dto.ErrCodeDependencyUnavailable, "Idempotency store is unavailable")
			return
		}
		if !reserved {
			replayOrReject(c, cfg.Store, storeKey, hash, log)
			return
		}

		// Settle the reservation even if the handler panics or the client
		// goes away; otherwise retries see "in progress" until the TTL.
		settleCtx := context.WithoutCancel(ctx)
		settled := false
		defer func() {
			if settled {
				return
			}
			if err := cfg.Store.Release(settleCtx, storeKey); err != nil {
				log.Warn("failed to release idempotency key", zap.Error(err))
			}
		}()

		recorder := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		record := &shared.IdempotencyRecord{
			RequestHash: hash,
			StatusCode:  status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
			CreatedAt:   time.Now().UTC(),
		}
		// The handler ran; releasing now would let a retry execute it twice.
		settled = true
		if err := cfg.Store.Complete(settleCtx, storeKey, record, ttl); err != nil {
			log.Warn("failed to store idempotent response", zap.Error(err))
		}
	}
}

func replayOrReject(c *gin.Context, store shared.IdempotencyStore, storeKey, hash string, log *zap.Logger) {
	record, err := store.Get(c.Request.Context(), storeKey)
	if err != nil {
		log.Error("idempotency lookup failed", zap.Error(err))
		abortWithError(c, http.StatusServiceUnavailable, dto.ErrCodeDependencyUnavailable, "Idempotency store is unavailable")
		return
	}
	switch {
	case record == nil:
		// Expired between Reserve and Get
		abortWithError(c, http.StatusConflict, dto.ErrCodeConflict, "Request with this Idempotency-Key is being retried, try again")
	case record.RequestHash != hash:
		abortWithError(c, http.StatusConflict, dto.ErrCodeIdempotencyKeyReused, "Idempotency-Key was already used with a different request body")
	case !record.Completed():
		abortWithError(c, http.StatusConflict, dto.ErrCodeConflict, "Request with this Idempotency-Key is still in progress")
	default:
		contentType := record.ContentType
		if contentType == "" {
			contentType = "application/json; charset=utf-8"
		}
		c.Header(IdempotencyReplayedHeader, "true")
		c.Data(record.StatusCode, contentType, record.Body)
		c.Abort()
	}
}

func idempotencyStoreKey(c *gin.Context, key string) string {
	tenant := "-"
	if id, ok := GetTenantID(c); ok {
		tenant = id.String()
	}
	return tenant + ":" + c.Request.Method + " " + c.Request.URL.Path + ":" + key
}

func hashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// responseRecorder tees the response body so it can be stored
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
