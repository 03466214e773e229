package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/middleware/launchctx"
)

const (
	wellKnownJWKSPath = "/.well-known/jwks.json"
	jwksPath          = "/jwks"
	loginPath         = "/login"
	launchPath        = "/launch"
	messagePath       = "/message"
)

// NewHandler builds the router serving the login, launch, message and key set
// endpoints.
func NewHandler(ctx context.Context, cfg *config.Config, svc Services) (http.Handler, error) {
	if err := initMeters(ctx, cfg); err != nil {
		return nil, err
	}

	s := newLTIServer(cfg, svc)
	traced := newTraceMiddleware(cfg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, wellKnownJWKSPath, traced("JWKS", s.handleJWKS))
	r.Route(s.basePath, func(r chi.Router) {
		r.Method(http.MethodGet, jwksPath, traced("JWKS", s.handleJWKS))
		r.Method(http.MethodGet, loginPath, traced("Login", s.handleLogin))
		r.Method(http.MethodPost, loginPath, traced("Login", s.handleLogin))
		r.Method(http.MethodPost, launchPath, traced("Launch", s.handleLaunch))
		r.With(launchctx.Middleware(svc.Sessions, s.launchCookie.Name)).
			Method(http.MethodGet, messagePath, traced("Message", s.handleMessage))
	})

	return r, nil
}

// StartHTTPServer starts the HTTP server using the given config.
func StartHTTPServer(ctx context.Context, cfg *config.Config, svc Services) error {
	handler, err := NewHandler(ctx, cfg, svc)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: handler,
	}

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address if provided in the format of network://address.
	// Otherwise use tcp network by default.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
