package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/carline-backend/api/responses"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/carline-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128
	idempotencyTTL    = 12 * time.Hour
	// a reservation outlives any sane handler; a crashed request frees the key after this
	idempotencyPendingTTL = time.Minute
)

// carline mutations that honour Idempotency-Key, keyed by "METHOD path"
var idempotentRoutes = map[string]struct{}{
	http.MethodPost + " /api/dismisser/queue":    {},
	http.MethodPost + " /api/dismisser/dismiss":  {},
	http.MethodPost + " /api/teacher/mark-ready": {},
}

// idempotencyRecord is stored under the key. A record without Status is a
// reservation held by a request still in flight.
type idempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (r idempotencyRecord) pending() bool { return r.Status == 0 }

// Idempotency replays the first completed response for a repeated
// Idempotency-Key on the carline mutations. Keys are scoped to the caller.
// Reusing a key with a different body, or while the first request is still
// running, is a 409. 5xx responses release the key so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" || !isIdempotentRoute(r) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key must be at most 128 characters"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(idempotencyScope(r), clientKey)
			hash := hashBody(body)

			reserved, err := reserve(ctx, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replay(ctx, store, logg, w, key, hash)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			complete(ctx, store, logg, key, idempotencyRecord{
				RequestHash: hash,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			})
		})
	}
}

func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string) (bool, error) {
	marker, err := json.Marshal(idempotencyRecord{RequestHash: hash})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(marker), idempotencyPendingTTL)
}

func complete(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key string, record idempotencyRecord) {
	payload, err := json.Marshal(record)
	if err == nil {
		err = store.Set(ctx, key, string(payload), idempotencyTTL)
	}
	if err != nil && logg != nil {
		logg.Error(ctx, "persist idempotency record", err)
	}
}

func replay(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, hash string) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// released between SetNX and Get; the original request failed
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "previous request with this Idempotency-Key failed, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.pending():
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is still in progress"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()).String(), r.Method, r.URL.Path}, "|")
}

// isIdempotentRoute matches the raw path; group middleware runs before chi
// has resolved the full route pattern.
func isIdempotentRoute(r *http.Request) bool {
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	_, ok := idempotentRoutes[r.Method+" "+path]
	return ok
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
