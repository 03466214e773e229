package claims

type ResourceLink struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Title       string `json:"title,omitempty"`
}

type UserIdentity struct {
	Subject    string
	GivenName  string
	FamilyName string
	Name       string
	Email      string
}

type Context struct {
	ID    string   `json:"id"`
	Type  []string `json:"type,omitempty"`
	Label string   `json:"label,omitempty"`
	Title string   `json:"title,omitempty"`
}

type ToolPlatform struct {
	GUID              string `json:"guid"`
	ContactEmail      string `json:"contact_email,omitempty"`
	Description       string `json:"description,omitempty"`
	Name              string `json:"name,omitempty"`
	URL               string `json:"url,omitempty"`
	ProductFamilyCode string `json:"product_family_code,omitempty"`
	Version           string `json:"version,omitempty"`
}

type LaunchPresentation struct {
	DocumentTarget string `json:"document_target,omitempty"`
	Height         *int   `json:"height,omitempty"`
	Width          *int   `json:"width,omitempty"`
	ReturnURL      string `json:"return_url,omitempty"`
	Locale         string `json:"locale,omitempty"`
}

type LIS struct {
	OutcomeServiceURL       string `json:"outcome_service_url,omitempty"`
	PersonSourcedID         string `json:"person_sourcedid,omitempty"`
	ResultSourcedID         string `json:"result_sourcedid,omitempty"`
	CourseOfferingSourcedID string `json:"course_offering_sourcedid,omitempty"`
	CourseSectionSourcedID  string `json:"course_section_sourcedid,omitempty"`
}

// Brightspace is the D2L vendor extension.
type Brightspace struct {
	UserID                int64  `json:"user_id"`
	TenantID              string `json:"tenant_id,omitempty"`
	OrgDefinedID          string `json:"org_defined_id,omitempty"`
	Username              string `json:"username,omitempty"`
	ContextIDHistory      string `json:"context_id_history,omitempty"`
	ResourceLinkIDHistory string `json:"resource_link_id_history,omitempty"`
	ContentTopicID        *int64 `json:"content_topic_id,omitempty"`
}

// AGS is the assignment and grade services endpoint claim.
type AGS struct {
	Scope     []string `json:"scope"`
	LineItem  string   `json:"lineitem,omitempty"`
	LineItems string   `json:"lineitems,omitempty"`
}

// NRPS is the names and role provisioning services claim.
type NRPS struct {
	ContextMembershipsURL string   `json:"context_memberships_url"`
	ServiceVersions       []string `json:"service_versions"`
}
