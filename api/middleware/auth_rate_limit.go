package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/groupcart-backend/api/responses"
	"github.com/angelmondragon/groupcart-backend/internal/users"
	"github.com/angelmondragon/groupcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy throttles one auth endpoint per client IP and per
// (hashed) email over a fixed window.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
	proxies    []netip.Prefix
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

// BehindProxies returns a copy of p that reads the client address from
// X-Forwarded-For when the direct peer falls in one of the prefixes.
func (p AuthRateLimitPolicy) BehindProxies(prefixes []netip.Prefix) AuthRateLimitPolicy {
	p.proxies = prefixes
	return p
}

func AuthRateLimitPolicies(cfg config.AuthRateLimitConfig) (login, register AuthRateLimitPolicy) {
	login = NewAuthRateLimitPolicy("login", cfg.LoginWindow, cfg.LoginIPLimit, cfg.LoginEmailLimit).BehindProxies(cfg.TrustedProxies)
	register = NewAuthRateLimitPolicy("register", cfg.RegisterWindow, cfg.RegisterIPLimit, cfg.RegisterEmailLimit).BehindProxies(cfg.TrustedProxies)
	return login, register
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// AuthRateLimit answers 429 RATE_LIMITED with Retry-After once either
// counter passes its limit. Emails are normalised and hashed before they
// become part of a Redis key.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				ip := clientIP(r, policy.proxies)
				if !policy.admit(ctx, store, logg, w, "ip", ip, policy.ipLimit) {
					return
				}
			}

			if policy.emailLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := users.NormalizeEmail(emailField(body)); email != "" {
					if !policy.admit(ctx, store, logg, w, "email", sha256Hex(email), policy.emailLimit) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// admit counts one attempt for subject and writes the 429 itself when the
// attempt is over the limit.
func (p AuthRateLimitPolicy) admit(ctx context.Context, store rateLimiterStore, logg *logger.Logger, w http.ResponseWriter, dimension, subject string, limit int) bool {
	if subject == "" {
		return true
	}
	key := store.RateLimitKey(dimension + ":" + p.name + ":" + subject)
	count, err := store.IncrWithTTL(ctx, key, p.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if count <= int64(limit) {
		return true
	}

	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"scope":          dimension,
			"policy":         p.name,
			"subject":        subject,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(p.window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return false
}

// clientIP returns the direct peer unless it is a trusted proxy, in which
// case it walks X-Forwarded-For from the right and returns the first hop
// that is not itself trusted. Entries a client prepends are never reached
// while a trusted hop sits to their right.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer, ok := parseHost(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !inAny(peer, trusted) {
		return peer.String()
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(header, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := parseHost(strings.TrimSpace(hops[i]))
		if !ok {
			break
		}
		if !inAny(hop, trusted) {
			return hop.String()
		}
		peer = hop
	}
	return peer.String()
}

func parseHost(value string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(value); err == nil {
		return ap.Addr().Unmap(), true
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func inAny(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func emailField(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Email
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
