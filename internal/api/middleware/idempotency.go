package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "X-Idempotency-Replayed"

	processingMarker = "PROCESSING"
	lockTTL          = 30 * time.Second
	resultTTL        = 24 * time.Hour
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the stored response of a request that carried the same Idempotency-Key.
// A repeat that arrives while the first request is still running gets 409. Server errors are
// not stored, so the client may retry them.
func Idempotency(redisClient *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only apply to state-changing methods
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(HeaderIdempotencyKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			idemKey := fmt.Sprintf("idempotency:%s:%s", r.URL.Path, key)
			ctx := r.Context()

			acquired, err := redisClient.SetNX(ctx, idemKey, processingMarker, lockTTL).Result()
			if err != nil {
				// Redis unavailable: serve without the guarantee
				next.ServeHTTP(w, r)
				return
			}

			if !acquired {
				val, err := redisClient.Get(ctx, idemKey).Result()
				if err != nil || val == processingMarker {
					conflict(w, r)
					return
				}
				var stored storedResponse
				if err := json.Unmarshal([]byte(val), &stored); err != nil {
					conflict(w, r)
					return
				}
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set(HeaderReplayed, "true")
				w.WriteHeader(stored.Status)
				w.Write(stored.Body)
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				redisClient.Del(ctx, idemKey)
				return
			}

			payload, err := json.Marshal(storedResponse{
				Status:      rec.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				redisClient.Del(ctx, idemKey)
				return
			}
			redisClient.Set(ctx, idemKey, payload, resultTTL)
		})
	}
}

func conflict(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	json.NewEncoder(w).Encode(map[string]any{
		"timestamp": time.Now().UTC(),
		"message":   "request with this idempotency key is in progress",
		"path":      r.URL.Path,
	})
}

// recorder tees the response so it can be stored after the handler returns.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
