// Package launchctx provides utilities to inject the cached launch message of
// the browser session into the request context and to retrieve it.
package launchctx

import (
	"context"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/claims"
	"github.com/openkcm/lti-tool/internal/serviceerr"
)

// Using an unexported type prevents key collisions from other packages.
type launchKey string

// LaunchKey is the context key for the launch lookup result.
const LaunchKey launchKey = "launch"

// Loader reads a cached launch message by its launch id.
type Loader interface {
	LoadLaunch(ctx context.Context, launchID string) (claims.Message, error)
}

type lookup struct {
	msg claims.Message
	err error
}

// Middleware is an http.Handler middleware that resolves the launch cookie
// named cookieName and injects the outcome into the context. Requests without
// the cookie pass through with serviceerr.ErrNotFound recorded.
func Middleware(loader Loader, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			result := lookup{err: serviceerr.ErrNotFound}
			if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
				ctx = slogctx.With(ctx, "launch_id", cookie.Value)
				result.msg, result.err = loader.LoadLaunch(ctx, cookie.Value)
				if result.err != nil {
					slogctx.Debug(ctx, "Launch message not loaded", "error", result.err)
				}
			}

			ctx = context.WithValue(ctx, LaunchKey, result)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the launch message injected by Middleware. The error is
// serviceerr.ErrNotFound when the session has no cached launch.
func FromContext(ctx context.Context) (claims.Message, error) {
	result, ok := ctx.Value(LaunchKey).(lookup)
	if !ok {
		return claims.Message{}, serviceerr.ErrNotFound
	}

	return result.msg, result.err
}
