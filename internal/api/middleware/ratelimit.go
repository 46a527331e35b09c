package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/yeargame/internal/apierr"
	"github.com/mcoot/yeargame/internal/services/ratelimit"
)

// KeyFunc derives the rate limit key for a request
type KeyFunc func(r *http.Request) string

// RateLimit rejects requests once the policy's allowance for their key is spent
func RateLimit(limiter ratelimit.Checker, policy ratelimit.Policy, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := policy.Check(r.Context(), limiter, key(r)); err != nil {
				if apierr.IsInternal(err) {
					logger.Error("rate limit check failed",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()))
				}
				apierr.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminKey limits admin actions per remote address within a tenant
func AdminKey(r *http.Request) string {
	return ratelimit.AdminKey(mux.Vars(r)["tenant"], RemoteHost(r))
}

// CreateKey limits session creation per remote address within a tenant
func CreateKey(r *http.Request) string {
	return ratelimit.CreateKey(mux.Vars(r)["tenant"], RemoteHost(r))
}

// JoinKey limits joins per remote address within a tenant
func JoinKey(r *http.Request) string {
	return ratelimit.JoinKey(mux.Vars(r)["tenant"], RemoteHost(r))
}

// PlayerKey limits guesses and bets per player token. Must run after RequireToken.
func PlayerKey(r *http.Request) string {
	return ratelimit.GuessKey(mux.Vars(r)["tenant"], GetToken(r.Context()))
}

// RemoteHost returns the client address without its port
func RemoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
