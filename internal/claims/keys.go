package claims

// Claim names as they appear in an LTI 1.3 id_token.
const (
	KeyLaunchID = "launch_id"
	KeyIssuer   = "iss"
	KeyAudience = "aud"
	KeySubject  = "sub"
	KeyState    = "state"
	KeyNonce    = "nonce"

	KeyGivenName  = "given_name"
	KeyFamilyName = "family_name"
	KeyName       = "name"
	KeyEmail      = "email"

	KeyDeploymentID       = "https://purl.imsglobal.org/spec/lti/claim/deployment_id"
	KeyMessageType        = "https://purl.imsglobal.org/spec/lti/claim/message_type"
	KeyVersion            = "https://purl.imsglobal.org/spec/lti/claim/version"
	KeyTargetLinkURI      = "https://purl.imsglobal.org/spec/lti/claim/target_link_uri"
	KeyRoles              = "https://purl.imsglobal.org/spec/lti/claim/roles"
	KeyRoleScopeMentor    = "https://purl.imsglobal.org/spec/lti/claim/role_scope_mentor"
	KeyResourceLink       = "https://purl.imsglobal.org/spec/lti/claim/resource_link"
	KeyContext            = "https://purl.imsglobal.org/spec/lti/claim/context"
	KeyLIS                = "https://purl.imsglobal.org/spec/lti/claim/lis"
	KeyLaunchPresentation = "https://purl.imsglobal.org/spec/lti/claim/launch_presentation"
	KeyToolPlatform       = "https://purl.imsglobal.org/spec/lti/claim/tool_platform"
	KeyBrightspace        = "http://www.brightspace.com"
	KeyAGS                = "https://purl.imsglobal.org/spec/lti-ags/claim/endpoint"
	KeyNRPS               = "https://purl.imsglobal.org/spec/lti-nrps/claim/namesroleservice"
)

type MessageType string

const (
	MessageTypeDeepLinkingRequest      MessageType = "LtiDeepLinkingRequest"
	MessageTypeResourceLinkRequest     MessageType = "LtiResourceLinkRequest"
	MessageTypeSubmissionReviewRequest MessageType = "LtiSubmissionReviewRequest"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeDeepLinkingRequest, MessageTypeResourceLinkRequest, MessageTypeSubmissionReviewRequest:
		return true
	default:
		return false
	}
}
