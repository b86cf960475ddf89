package domain

import (
	"context"
	"slices"
	"strings"
	"time"
)

// ApprovalState is the moderation state of an opportunity.
type ApprovalState string

const (
	StatePending  ApprovalState = "pending"
	StateApproved ApprovalState = "approved"
)

// Participant is one entry of an opportunity's participant summary.
// swagger:model Participant
type Participant struct {
	ID         string `json:"id"`
	Registered bool   `json:"registered"`
	Attended   bool   `json:"attended"`
	Host       bool   `json:"host,omitempty"`
}

// Opportunity represents a single volunteer event with fixed capacity and schedule.
// Exactly one of HostUserID and HostOrgID is set.
// swagger:model Opportunity
type Opportunity struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	ImageURL         string        `json:"image_url,omitempty"`
	HostUserID       string        `json:"host_user_id,omitempty"`
	HostOrgID        string        `json:"host_org_id,omitempty"`
	CreatedBy        string        `json:"created_by"`
	TotalSlots       int           `json:"total_slots"`
	Date             string        `json:"date"`
	Time             string        `json:"time"`
	DurationMinutes  int           `json:"duration_minutes"`
	Timezone         string        `json:"timezone"`
	Causes           []string      `json:"causes"`
	Address          string        `json:"address"`
	Visibility       []string      `json:"visibility"`
	Approved         bool          `json:"approved"`
	RedirectURL      string        `json:"redirect_url,omitempty"`
	Comments         []string      `json:"comments"`
	AttendanceMarked bool          `json:"attendance_marked"`
	HostAttended     bool          `json:"host_attended"`
	Registrations    []Participant `json:"participants"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// State returns the approval state derived from the Approved flag.
func (o *Opportunity) State() ApprovalState {
	if o.Approved {
		return StateApproved
	}
	return StatePending
}

// HostID returns the id of the hosting user or organization.
func (o *Opportunity) HostID() string {
	if o.HostUserID != "" {
		return o.HostUserID
	}
	return o.HostOrgID
}

// IsHost reports whether the viewer acts as host: the host user itself, or the creator of an
// organization-hosted opportunity.
func (o *Opportunity) IsHost(v *Viewer) bool {
	if v == nil || v.ID == "" {
		return false
	}
	if o.HostUserID != "" {
		return o.HostUserID == v.ID
	}
	return o.CreatedBy == v.ID
}

// CanManage reports whether the viewer may moderate, edit or record attendance for o.
func (o *Opportunity) CanManage(v *Viewer) bool {
	return v != nil && (v.Admin || o.IsHost(v))
}

// ParticipantCount returns the number of slot-holding participants (active registrations).
// The host is a participant but does not hold a volunteer slot.
func (o *Opportunity) ParticipantCount() int {
	n := 0
	for _, p := range o.Registrations {
		if p.Registered && !p.Host {
			n++
		}
	}
	return n
}

// SlotsLeft returns the number of free slots, never negative.
func (o *Opportunity) SlotsLeft() int {
	return max(o.TotalSlots-o.ParticipantCount(), 0)
}

// Participants returns the participant set: the host first, then every active registrant.
func (o *Opportunity) Participants() []Participant {
	out := make([]Participant, 0, len(o.Registrations)+1)
	out = append(out, Participant{ID: o.HostID(), Registered: true, Attended: o.HostAttended, Host: true})
	for _, p := range o.Registrations {
		if p.Registered && !p.Host && p.ID != o.HostID() {
			out = append(out, p)
		}
	}
	return out
}

// Registration returns the registration summary for userID, active or not.
func (o *Opportunity) Registration(userID string) (Participant, bool) {
	for _, p := range o.Registrations {
		if p.ID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// IsRegistered reports whether userID holds an active registration.
func (o *Opportunity) IsRegistered(userID string) bool {
	p, ok := o.Registration(userID)
	return ok && p.Registered
}

// Clone returns a deep copy of o.
func (o *Opportunity) Clone() *Opportunity {
	if o == nil {
		return nil
	}
	c := *o
	c.Causes = slices.Clone(o.Causes)
	c.Visibility = slices.Clone(o.Visibility)
	c.Comments = slices.Clone(o.Comments)
	c.Registrations = slices.Clone(o.Registrations)
	return &c
}

// NormalizeTags lowercases, trims and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeIDs trims and deduplicates ids, keeping first-seen order.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// NewOpportunityInput holds the fields a caller supplies when creating an opportunity.
type NewOpportunityInput struct {
	Name            string
	Description     string
	ImageURL        string
	HostOrgID       string
	TotalSlots      int
	Date            string
	Time            string
	DurationMinutes int
	Timezone        string
	Causes          []string
	Address         string
	Visibility      []string
	RedirectURL     string
}

// OpportunityPatch is a partial update. Nil fields are left unchanged.
type OpportunityPatch struct {
	Name            *string
	Description     *string
	ImageURL        *string
	TotalSlots      *int
	Date            *string
	Time            *string
	DurationMinutes *int
	Timezone        *string
	Causes          *[]string
	Address         *string
	Visibility      *[]string
	RedirectURL     *string
}

// IsEmpty reports whether the patch changes nothing.
func (p OpportunityPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.ImageURL == nil && p.TotalSlots == nil &&
		p.Date == nil && p.Time == nil && p.DurationMinutes == nil && p.Timezone == nil &&
		p.Causes == nil && p.Address == nil && p.Visibility == nil && p.RedirectURL == nil
}

// Apply writes the patch onto o. Used for the local projection; the store applies its own copy.
func (p OpportunityPatch) Apply(o *Opportunity) {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	if p.ImageURL != nil {
		o.ImageURL = *p.ImageURL
	}
	if p.TotalSlots != nil {
		o.TotalSlots = *p.TotalSlots
	}
	if p.Date != nil {
		o.Date = *p.Date
	}
	if p.Time != nil {
		o.Time = *p.Time
	}
	if p.DurationMinutes != nil {
		o.DurationMinutes = *p.DurationMinutes
	}
	if p.Timezone != nil {
		o.Timezone = *p.Timezone
	}
	if p.Causes != nil {
		o.Causes = slices.Clone(*p.Causes)
	}
	if p.Address != nil {
		o.Address = *p.Address
	}
	if p.Visibility != nil {
		o.Visibility = slices.Clone(*p.Visibility)
	}
	if p.RedirectURL != nil {
		o.RedirectURL = *p.RedirectURL
	}
}

// Contact is one row of an opportunity's contact-list export.
// swagger:model Contact
type Contact struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Host     bool   `json:"host"`
	Attended bool   `json:"attended"`
}

// ListFilter narrows the public listing.
type ListFilter struct {
	Cause      string
	Pagination PaginationParams
}

// OpportunityRepository defines the persistent-store operations on opportunities.
// Every returned opportunity carries its participant summary.
type OpportunityRepository interface {
	Create(ctx context.Context, o *Opportunity) error
	GetByID(ctx context.Context, id string) (*Opportunity, error)
	List(ctx context.Context) ([]*Opportunity, error)
	ListUnapproved(ctx context.Context) ([]*Opportunity, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Opportunity, error)
	// Update applies patch. A TotalSlots below the current participant count yields ErrInvalidInput.
	Update(ctx context.Context, id string, patch OpportunityPatch) (*Opportunity, error)
	SetApproved(ctx context.Context, id string, approved bool) (*Opportunity, error)
	AppendComment(ctx context.Context, id, comment string) (*Opportunity, error)
	// Delete removes the opportunity and its registrations. With pendingOnly set, an approved
	// opportunity is left in place and ErrForbidden is returned.
	Delete(ctx context.Context, id string, pendingOnly bool) error
	MarkHostAttended(ctx context.Context, id string) (*Opportunity, error)
	// MarkAttendanceTaken sets attendance_marked without touching any participant.
	MarkAttendanceTaken(ctx context.Context, id string) (*Opportunity, error)
}

// OpportunityService owns the approval lifecycle and host/admin management of opportunities.
type OpportunityService interface {
	Create(ctx context.Context, viewer *Viewer, in NewOpportunityInput) (*Opportunity, error)
	Update(ctx context.Context, viewer *Viewer, id string, patch OpportunityPatch) (*Opportunity, error)
	Approve(ctx context.Context, viewer *Viewer, id string) (*Opportunity, error)
	Unapprove(ctx context.Context, viewer *Viewer, id string) (*Opportunity, error)
	Delete(ctx context.Context, viewer *Viewer, id string) error
	AddComment(ctx context.Context, viewer *Viewer, id, comment string) (*Opportunity, error)
	ExportContacts(ctx context.Context, viewer *Viewer, id string) ([]*Contact, error)
}

// ListingService serves filtered, sorted opportunity listings.
type ListingService interface {
	ListOpportunities(ctx context.Context, viewer *Viewer, filter ListFilter) ([]*Opportunity, int, error)
	GetOpportunity(ctx context.Context, viewer *Viewer, id string) (*Opportunity, error)
	ListPending(ctx context.Context, viewer *Viewer) ([]*Opportunity, error)
}
