package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/carline-backend/api/responses"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

// login bodies are tiny; anything past this is not worth parsing for an email
const maxRateLimitBody = 16 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one auth surface by client IP and by the
// hashed email in the request body. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// rateCheck is one counter the request has to stay under.
type rateCheck struct {
	dimension string
	value     string
	limit     int
}

func (p AuthRateLimitPolicy) scope(c rateCheck) string {
	return p.name + ":" + c.dimension + ":" + c.value
}

// checks lists the counters that apply to r. The body is buffered and put
// back when the email dimension needs it.
func (p AuthRateLimitPolicy) checks(r *http.Request) ([]rateCheck, error) {
	var out []rateCheck
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			out = append(out, rateCheck{dimension: "ip", value: ip, limit: p.ipLimit})
		}
	}
	if p.emailLimit > 0 && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitBody))
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if email := normalizeEmail(extractEmail(body)); email != "" {
			out = append(out, rateCheck{dimension: "email", value: hashValue(email), limit: p.emailLimit})
		}
	}
	return out, nil
}

// AuthRateLimit rejects requests over any of the policy's counters with 429.
// A store failure fails closed with a dependency error.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checks, err := policy.checks(r)
			if err != nil {
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			for _, c := range checks {
				allowed, count, err := store.FixedWindowAllow(ctx, policy.scope(c), int64(c.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					policy.reject(ctx, logg, w, c, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, c rateCheck, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         p.name,
			"scope":          c.dimension,
			c.dimension:      c.value,
			"attempts":       count,
			"limit":          c.limit,
			"window_seconds": int(p.window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many login attempts, try again later"))
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return body.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
