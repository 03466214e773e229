package lti

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/claims"
	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/serviceerr"
)

// Decoder verifies a compact token and returns its JSON payload.
type Decoder interface {
	Decode(ctx context.Context, raw string) (json.RawMessage, error)
}

// LaunchContext is what every accepted token must agree with.
type LaunchContext struct {
	Issuer       string
	ClientID     string
	DeploymentID string
}

func LaunchContextFromConfig(cfg config.LTI) LaunchContext {
	return LaunchContext{
		Issuer:       cfg.Issuer,
		ClientID:     cfg.ClientID,
		DeploymentID: cfg.DeploymentID,
	}
}

type LaunchOption func(*launchParams)

type launchParams struct {
	returnedState string
}

// WithReturnedState passes the state form parameter posted back by the
// platform. It is used as the message state when the token carries none.
func WithReturnedState(state string) LaunchOption {
	return func(p *launchParams) { p.returnedState = state }
}

type LaunchValidator struct {
	decoder Decoder
	launch  LaunchContext
}

func NewLaunchValidator(decoder Decoder, launch LaunchContext) *LaunchValidator {
	return &LaunchValidator{decoder: decoder, launch: launch}
}

// Launch verifies token and checks it against the launch context and the
// state and nonce issued at login. The returned message is tagged with
// launchID.
func (v *LaunchValidator) Launch(ctx context.Context, launchID, expectedState, expectedNonce, token string, opts ...LaunchOption) (claims.Message, error) {
	params := launchParams{}
	for _, opt := range opts {
		opt(&params)
	}

	payload, err := v.decoder.Decode(ctx, token)
	if err != nil {
		return claims.Message{}, errors.Join(serviceerr.ErrInvalidIDToken, fmt.Errorf("decoding id_token: %w", err))
	}

	msg, err := claims.Parse(payload)
	if err != nil {
		return claims.Message{}, errors.Join(serviceerr.ErrInvalidIDToken, fmt.Errorf("mapping id_token claims: %w", err))
	}
	if msg.State == "" {
		msg.State = params.returnedState
	}

	if err := v.check(msg, expectedState, expectedNonce); err != nil {
		slogctx.Warn(ctx, "Rejected launch", "issuer", msg.Issuer, "deployment_id", msg.DeploymentID, "error", err)
		return claims.Message{}, err
	}

	msg.LaunchID = launchID

	return msg, nil
}

func (v *LaunchValidator) check(msg claims.Message, expectedState, expectedNonce string) error {
	switch {
	case msg.Issuer != v.launch.Issuer:
		return mismatch("iss")
	case msg.ClientID() != v.launch.ClientID:
		return mismatch("aud")
	case msg.DeploymentID != v.launch.DeploymentID:
		return mismatch("deployment_id")
	case msg.State != expectedState:
		return mismatch("state")
	case msg.Nonce != expectedNonce:
		return mismatch("nonce")
	default:
		return nil
	}
}

func mismatch(claim string) error {
	return serviceerr.New(serviceerr.CodeMessageValidation, claim+" does not match the launch context")
}
