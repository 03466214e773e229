// Package lti implements the two legs of an LTI 1.3 launch on the tool side:
// the third-party initiated login and the validation of the id_token the
// platform posts back.
package lti

import (
	"fmt"
	"net/url"

	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/serviceerr"
)

// Fixed parameters of the authentication request sent to the platform.
const (
	scopeOpenID       = "openid"
	responseTypeToken = "id_token"
	responseModeForm  = "form_post"
	promptNone        = "none"
)

// LoginInitiator checks a login initiation request against the tool's
// registration and builds the authentication redirect. It mints nothing
// itself; state and nonce come from the caller.
type LoginInitiator struct {
	issuer       string
	clientID     string
	deploymentID string
	loginURL     *url.URL
	redirectURI  string
}

func NewLoginInitiator(cfg config.LTI) (*LoginInitiator, error) {
	loginURL, err := url.Parse(cfg.PlatformLoginURL)
	if err != nil {
		return nil, serviceerr.New(serviceerr.CodeInvalidConfig, fmt.Sprintf("parsing platform login url: %v", err))
	}

	return &LoginInitiator{
		issuer:       cfg.Issuer,
		clientID:     cfg.ClientID,
		deploymentID: cfg.DeploymentID,
		loginURL:     loginURL,
		redirectURI:  cfg.ToolLaunchURL,
	}, nil
}

// Validate returns the URL the browser is redirected to. A nil messageHint
// means the platform sent none; an empty one is rejected.
func (l *LoginInitiator) Validate(state, nonce, issuer, clientID, deploymentID, loginHint string, messageHint *string) (string, error) {
	switch {
	case state == "":
		return "", badRequest("state is missing")
	case nonce == "":
		return "", badRequest("nonce is missing")
	case loginHint == "":
		return "", badRequest("login_hint is missing")
	case messageHint != nil && *messageHint == "":
		return "", badRequest("lti_message_hint is empty")
	case issuer != l.issuer:
		return "", badRequest(fmt.Sprintf("unknown issuer %q", issuer))
	case clientID != l.clientID:
		return "", badRequest(fmt.Sprintf("unknown client_id %q", clientID))
	case deploymentID != l.deploymentID:
		return "", badRequest(fmt.Sprintf("unknown lti_deployment_id %q", deploymentID))
	}

	redirect := *l.loginURL
	q := redirect.Query()
	q.Set("scope", scopeOpenID)
	q.Set("response_type", responseTypeToken)
	q.Set("response_mode", responseModeForm)
	q.Set("prompt", promptNone)
	q.Set("client_id", l.clientID)
	q.Set("redirect_uri", l.redirectURI)
	q.Set("login_hint", loginHint)
	q.Set("state", state)
	q.Set("nonce", nonce)
	if messageHint != nil {
		q.Set("lti_message_hint", *messageHint)
	}
	redirect.RawQuery = q.Encode()

	return redirect.String(), nil
}

func badRequest(description string) error {
	return serviceerr.New(serviceerr.CodeInvalidRequest, description)
}
