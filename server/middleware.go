// Package server middleware: chat-platform request signing and rate limiting.
package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/factorydtw/roomboard/config"
)

// signingConfig holds request-signature verification settings.
type signingConfig struct {
	secret    string
	enabled   bool
	tolerance time.Duration
}

func loadSigningConfig(cfg *config.Config) *signingConfig {
	enabled := cfg.SigningSecret != ""
	if !enabled {
		slog.Warn("CHAT_SIGNING_SECRET not set - chat endpoints accept unsigned requests. Configure it for production")
	}
	return &signingConfig{
		secret:    cfg.SigningSecret,
		enabled:   enabled,
		tolerance: 5 * time.Minute,
	}
}

// verifySignature checks the chat platform's HMAC-SHA256 request signature:
// hex(hmac(secret, "v0:" + timestamp + ":" + body)) in X-Signature, with the
// unix timestamp in X-Request-Timestamp bounded by the tolerance window.
func verifySignature(next http.Handler, cfg *signingConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.enabled {
			next.ServeHTTP(w, r)
			return
		}

		ts := r.Header.Get("X-Request-Timestamp")
		sig := r.Header.Get("X-Signature")
		if ts == "" || sig == "" {
			http.Error(w, "missing signature", http.StatusUnauthorized)
			return
		}
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			http.Error(w, "bad timestamp", http.StatusUnauthorized)
			return
		}
		if d := time.Since(time.Unix(unix, 0)); d > cfg.tolerance || d < -cfg.tolerance {
			http.Error(w, "stale signature", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(cfg.secret))
		mac.Write([]byte("v0:" + ts + ":"))
		mac.Write(body)
		expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(sig)) {
			slog.Warn("request signature mismatch", slog.String("path", r.URL.Path), slog.String("remote_addr", r.RemoteAddr))
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiterConfig holds rate limiting configuration
type rateLimiterConfig struct {
	enabled     bool
	requestsPer int           // Max requests per caller per window
	window      time.Duration // Time window for rate limiting
}

// loadRateLimiterConfig reads rate limiter configuration from environment
func loadRateLimiterConfig() *rateLimiterConfig {
	enabled := os.Getenv("RATE_LIMIT_ENABLED") != "0" // Enabled by default
	requestsPer := getEnvInt("RATE_LIMIT_REQUESTS", 10)
	window := time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second

	return &rateLimiterConfig{
		enabled:     enabled,
		requestsPer: requestsPer,
		window:      window,
	}
}

// rateLimiter implements a simple sliding window rate limiter per caller.
// Callers are keyed by user email when the form carries one, else by IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      *rateLimiterConfig
}

type visitor struct {
	requests  []time.Time
	lastClean time.Time
}

func newRateLimiter(ctx context.Context, cfg *rateLimiterConfig) *rateLimiter {
	limiter := &rateLimiter{
		visitors: make(map[string]*visitor),
		cfg:      cfg,
	}
	go limiter.cleanupLoop(ctx)
	return limiter
}

// cleanupLoop periodically removes stale visitor entries
func (rl *rateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, v := range rl.visitors {
		// Remove if no requests in the last 2 windows
		if now.Sub(v.lastClean) > rl.cfg.window*2 {
			delete(rl.visitors, key)
		}
	}
}

// allow checks if a request from the given caller should be allowed
func (rl *rateLimiter) allow(key string) bool {
	if !rl.cfg.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[key]
	if !exists {
		rl.visitors[key] = &visitor{requests: []time.Time{now}, lastClean: now}
		return true
	}

	cutoff := now.Add(-rl.cfg.window)
	filtered := make([]time.Time, 0, len(v.requests))
	for _, t := range v.requests {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	v.requests = filtered
	v.lastClean = now

	if len(v.requests) >= rl.cfg.requestsPer {
		return false
	}
	v.requests = append(v.requests, now)
	return true
}

// rateLimitMiddleware applies rate limiting to the mutating chat endpoints
func rateLimitMiddleware(next http.Handler, limiter *rateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.FormValue("user_email")
		if key == "" {
			key = r.RemoteAddr
			if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
				if idx := strings.Index(forwarded, ","); idx >= 0 {
					key = strings.TrimSpace(forwarded[:idx])
				} else {
					key = strings.TrimSpace(forwarded)
				}
			}
		}
		if !limiter.allow(key) {
			slog.Warn("rate limit exceeded", slog.String("key", key), slog.String("path", r.URL.Path))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getEnvInt returns an integer environment variable value or default if not set or invalid.
func getEnvInt(key string, defaultVal int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return defaultVal
}
