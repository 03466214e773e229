// Package claims maps a verified id_token payload onto a typed launch
// message. Claims the message does not model are kept verbatim in Extra.
package claims

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	ErrMalformedPayload   = errors.New("malformed claims payload")
	ErrInvalidMessageType = errors.New("invalid message type")
)

// Message is the verified content of a launch.
type Message struct {
	LaunchID     string
	Issuer       string
	Audience     jwt.Audience
	State        string
	Nonce        string
	DeploymentID string
	MessageType  MessageType
	Version      string

	TargetLinkURI   string
	Roles           []string
	RoleScopeMentor []string

	ResourceLink       *ResourceLink
	User               UserIdentity
	Context            *Context
	ToolPlatform       *ToolPlatform
	LaunchPresentation *LaunchPresentation
	LIS                *LIS
	Brightspace        *Brightspace
	AGS                *AGS
	NRPS               *NRPS

	// Extra holds every claim not listed above, keyed by claim name.
	Extra map[string]json.RawMessage
}

// ClientID is the first audience entry, the OAuth client id of the tool.
func (m Message) ClientID() string {
	if len(m.Audience) == 0 {
		return ""
	}

	return m.Audience[0]
}

type field struct {
	key string
	ptr any
}

func (m *Message) fields() []field {
	return []field{
		{KeyLaunchID, &m.LaunchID},
		{KeyIssuer, &m.Issuer},
		{KeyAudience, &m.Audience},
		{KeyState, &m.State},
		{KeyNonce, &m.Nonce},
		{KeyDeploymentID, &m.DeploymentID},
		{KeyMessageType, &m.MessageType},
		{KeyVersion, &m.Version},
		{KeyTargetLinkURI, &m.TargetLinkURI},
		{KeyRoles, &m.Roles},
		{KeyRoleScopeMentor, &m.RoleScopeMentor},
		{KeySubject, &m.User.Subject},
		{KeyGivenName, &m.User.GivenName},
		{KeyFamilyName, &m.User.FamilyName},
		{KeyName, &m.User.Name},
		{KeyEmail, &m.User.Email},
		{KeyResourceLink, &m.ResourceLink},
		{KeyContext, &m.Context},
		{KeyToolPlatform, &m.ToolPlatform},
		{KeyLaunchPresentation, &m.LaunchPresentation},
		{KeyLIS, &m.LIS},
		{KeyBrightspace, &m.Brightspace},
		{KeyAGS, &m.AGS},
		{KeyNRPS, &m.NRPS},
	}
}

// Parse maps a JSON claims object onto a Message.
func Parse(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, err
	}

	return m, nil
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Join(ErrMalformedPayload, err)
	}
	if raw == nil {
		return errors.Join(ErrMalformedPayload, errors.New("claims must be a JSON object"))
	}

	var out Message
	for _, f := range out.fields() {
		value, ok := raw[f.key]
		if !ok {
			continue
		}
		delete(raw, f.key)

		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(value, f.ptr); err != nil {
			return errors.Join(ErrMalformedPayload, fmt.Errorf("claim %s: %w", f.key, err))
		}
	}

	if !out.MessageType.Valid() {
		return errors.Join(ErrInvalidMessageType, fmt.Errorf("got %q", out.MessageType))
	}

	if len(raw) > 0 {
		out.Extra = make(map[string]json.RawMessage, len(raw))
		for key, value := range raw {
			var compact bytes.Buffer
			if err := json.Compact(&compact, value); err != nil {
				return errors.Join(ErrMalformedPayload, fmt.Errorf("claim %s: %w", key, err))
			}
			out.Extra[key] = compact.Bytes()
		}
	}
	*m = out

	return nil
}

// MarshalJSON writes the message back in claim form, so that the output
// parses into an equal Message.
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+24)
	for key, value := range m.Extra {
		out[key] = value
	}

	for _, f := range m.fields() {
		if isEmpty(f.ptr) {
			continue
		}
		out[f.key] = f.ptr
	}

	return json.Marshal(out)
}

func isEmpty(ptr any) bool {
	switch v := ptr.(type) {
	case *string:
		return *v == ""
	case *MessageType:
		return *v == ""
	case *[]string:
		return len(*v) == 0
	case *jwt.Audience:
		return len(*v) == 0
	case **ResourceLink:
		return *v == nil
	case **Context:
		return *v == nil
	case **ToolPlatform:
		return *v == nil
	case **LaunchPresentation:
		return *v == nil
	case **LIS:
		return *v == nil
	case **Brightspace:
		return *v == nil
	case **AGS:
		return *v == nil
	case **NRPS:
		return *v == nil
	default:
		return false
	}
}
