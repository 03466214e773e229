package server

import (
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/keyring"
	"github.com/openkcm/lti-tool/internal/lti"
	"github.com/openkcm/lti-tool/internal/middleware/launchctx"
	"github.com/openkcm/lti-tool/internal/random"
	"github.com/openkcm/lti-tool/internal/serviceerr"
	"github.com/openkcm/lti-tool/internal/session"
)

// Services are the collaborators the HTTP handlers delegate to.
type Services struct {
	Login    *lti.LoginInitiator
	Launch   *lti.LaunchValidator
	Sessions *session.Manager
	KeyRing  *keyring.KeyRing
	Random   random.Generator
}

type ltiServer struct {
	Services

	basePath     string
	stateCookie  config.CookieTemplate
	launchCookie config.CookieTemplate
}

func newLTIServer(cfg *config.Config, svc Services) *ltiServer {
	if svc.Random == nil {
		svc.Random = random.Source{}
	}

	return &ltiServer{
		Services:     svc,
		basePath:     cfg.LTI.BasePath,
		stateCookie:  cfg.Cookies.State,
		launchCookie: cfg.Cookies.Launch,
	}
}

func (s *ltiServer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	jwks, err := s.KeyRing.JWKS(r.Context(), s.KeyRing.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, jwks)
}

func (s *ltiServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeError(w, r, serviceerr.New(serviceerr.CodeInvalidRequest, "malformed login request"))
		return
	}

	var messageHint *string
	if values, ok := r.Form["lti_message_hint"]; ok && len(values) > 0 {
		messageHint = &values[0]
	}

	state, nonce := s.Random.State(), s.Random.Nonce()
	redirect, err := s.Login.Validate(
		state,
		nonce,
		r.Form.Get("iss"),
		r.Form.Get("client_id"),
		r.Form.Get("lti_deployment_id"),
		r.Form.Get("login_hint"),
		messageHint,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.Sessions.StoreCorrelation(ctx, state, nonce); err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, s.stateCookie.ToNamedCookie(s.stateCookie.Name+state, state))

	slogctx.Debug(ctx, "Redirecting to platform login")
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *ltiServer) handleLaunch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeError(w, r, serviceerr.New(serviceerr.CodeInvalidRequest, "malformed launch request"))
		return
	}

	idToken := r.PostForm.Get("id_token")
	if idToken == "" {
		writeError(w, r, serviceerr.New(serviceerr.CodeInvalidRequest, "id_token is missing"))
		return
	}
	returnedState := r.PostForm.Get("state")
	if returnedState == "" {
		writeError(w, r, serviceerr.New(serviceerr.CodeInvalidRequest, "state is missing"))
		return
	}

	stateCookieName := s.stateCookie.Name + returnedState
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, r, serviceerr.New(serviceerr.CodeInvalidRequest, "state cookie is missing"))
		return
	}
	expectedState := cookie.Value

	nonce, err := s.Sessions.ConsumeCorrelation(ctx, expectedState)
	if err != nil {
		writeError(w, r, err)
		return
	}

	launchID := s.Random.LaunchID()
	ctx = slogctx.With(ctx, "launch_id", launchID)

	msg, err := s.Launch.Launch(ctx, launchID, expectedState, nonce, idToken, lti.WithReturnedState(returnedState))
	if err != nil {
		writeError(w, r.WithContext(ctx), err)
		return
	}

	if err := s.Sessions.SaveLaunch(ctx, msg); err != nil {
		writeError(w, r.WithContext(ctx), err)
		return
	}

	expired := s.stateCookie.ToNamedCookie(stateCookieName, "")
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	http.SetCookie(w, s.launchCookie.ToCookie(launchID))

	target := msg.TargetLinkURI
	if target == "" {
		target = s.basePath + messagePath
	}

	slogctx.Info(ctx, "Launch accepted", "message_type", msg.MessageType, "deployment_id", msg.DeploymentID)
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *ltiServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := launchctx.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, msg)
}
