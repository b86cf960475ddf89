package domain

import "slices"

// Viewer is the authenticated caller, resolved from a bearer token.
type Viewer struct {
	ID            string   `json:"id"`
	Email         string   `json:"email,omitempty"`
	Organizations []string `json:"organizations"`
	Admin         bool     `json:"admin"`
}

// MemberOf reports whether the viewer belongs to the organization.
func (v *Viewer) MemberOf(orgID string) bool {
	return v != nil && slices.Contains(v.Organizations, orgID)
}

// ViewerResolver verifies a bearer token and returns the viewer it identifies.
type ViewerResolver interface {
	Resolve(token string) (*Viewer, error)
}
