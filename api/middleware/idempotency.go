package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealerworks/dms-backend/api/responses"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

const (
	stockIdempotencyTTL  = 24 * time.Hour
	pointsIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request keeps its key claimed.
	inFlightTTL = 2 * time.Minute
)

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(operation, actor, key string) string
}

// idempotentWrite is a POST that moves stock, core deposits or points and
// must not be applied twice when a counter terminal retries.
type idempotentWrite struct {
	operation string
	prefix    string
	suffix    string
	ttl       time.Duration
}

// matches compares against the raw path. The middleware is mounted on /api,
// before chi has resolved the route pattern.
func (w idempotentWrite) matches(path string) bool {
	if w.suffix == "" {
		return path == w.prefix
	}
	return strings.HasPrefix(path, w.prefix) && strings.HasSuffix(path, w.suffix) && len(path) > len(w.prefix)+len(w.suffix)
}

var idempotentWrites = []idempotentWrite{
	{operation: "part_issue", prefix: "/api/transactions/issue", ttl: stockIdempotencyTTL},
	{operation: "part_return", prefix: "/api/transactions/return", ttl: stockIdempotencyTTL},
	{operation: "stock_adjust", prefix: "/api/transactions/adjust", ttl: stockIdempotencyTTL},
	{operation: "stock_transfer", prefix: "/api/transactions/transfer", ttl: stockIdempotencyTTL},
	{operation: "stock_receipt", prefix: "/api/inventory/receipts", ttl: stockIdempotencyTTL},
	{operation: "part_sale", prefix: "/api/inventory/sales", ttl: stockIdempotencyTTL},
	{operation: "po_receive", prefix: "/api/purchase-orders/", suffix: "/receive", ttl: stockIdempotencyTTL},
	{operation: "core_charge", prefix: "/api/cores", ttl: stockIdempotencyTTL},
	{operation: "core_return", prefix: "/api/cores/", suffix: "/return", ttl: stockIdempotencyTTL},
	{operation: "core_credit", prefix: "/api/cores/", suffix: "/credit", ttl: stockIdempotencyTTL},
	{operation: "points_award", prefix: "/api/loyalty/customers/", suffix: "/points", ttl: pointsIdempotencyTTL},
	{operation: "points_adjust", prefix: "/api/loyalty/customers/", suffix: "/adjustments", ttl: pointsIdempotencyTTL},
	{operation: "reward_redeem", prefix: "/api/loyalty/customers/", suffix: "/redemptions", ttl: pointsIdempotencyTTL},
	{operation: "redemption_cancel", prefix: "/api/redemptions/", suffix: "/cancel", ttl: pointsIdempotencyTTL},
}

func lookupIdempotentWrite(method, path string) (idempotentWrite, bool) {
	if method != http.MethodPost {
		return idempotentWrite{}, false
	}
	path = strings.TrimSuffix(path, "/")
	for _, w := range idempotentWrites {
		if w.matches(path) {
			return w, true
		}
	}
	return idempotentWrite{}, false
}

// storedResponse is the value kept under an idempotency key. A pending entry
// marks a request that is still running.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Idempotency requires an Idempotency-Key on the writes listed above. The
// first request claims the key, later ones replay its response. A replay with
// a different path or body is rejected, and so is a duplicate that arrives
// while the first is still running.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			write, ok := lookupIdempotentWrite(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(r.URL.Path, body)
			key := store.IdempotencyKey(write.operation, UserIDFromContext(ctx), clientKey)

			pending, _ := json.Marshal(storedResponse{Pending: true, RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(pending), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayStored(ctx, store, key, hash, w, logg)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.statusOrOK()
			if status >= http.StatusInternalServerError {
				// leave server failures retryable under the same key
				if err := store.Del(ctx, key); err != nil {
					logError(ctx, logg, "release idempotency key", err)
				}
				return
			}
			done, err := json.Marshal(storedResponse{
				RequestHash: hash,
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
			})
			if err != nil {
				logError(ctx, logg, "marshal idempotency record", err)
				return
			}
			if err := store.Set(ctx, key, string(done), write.ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func replayStored(ctx context.Context, store idempotencyStore, key, hash string, w http.ResponseWriter, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// the claim expired between SETNX and GET
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
	case stored.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(stored.Status)
		if decoded, err := base64.StdEncoding.DecodeString(stored.Body); err == nil {
			_, _ = w.Write(decoded)
		}
	}
}

// requestHash covers the path so a key reused against another order or
// customer is caught even when the bodies match.
func requestHash(path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
