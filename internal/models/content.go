package models

import (
	"time"
)

// Kind identifies the concrete content type behind a ContentRecord
type Kind string

const (
	KindCampaign        Kind = "campaign"
	KindBlogPost        Kind = "blog_post"
	KindSocialMediaPost Kind = "social_media_post"
)

// ValidKinds defines the content kinds the workflow accepts
var ValidKinds = map[Kind]bool{
	KindCampaign:        true,
	KindBlogPost:        true,
	KindSocialMediaPost: true,
}

// Status is the canonical lifecycle state shared by every kind
type Status string

const (
	StatusDraft         Status = "Draft"
	StatusPendingReview Status = "PendingReview"
	StatusApproved      Status = "Approved"
	StatusRejected      Status = "Rejected"
	StatusPublished     Status = "Published"
)

// Role is the role an actor plays in a workflow request
type Role string

const (
	RoleAgency Role = "agency"
	RoleClient Role = "client"
	RoleSystem Role = "system"
)

// ValidRoles defines the roles accepted at the API boundary. The system role
// is reserved for the scheduled publisher and never accepted from a request.
var ValidRoles = map[Role]bool{
	RoleAgency: true,
	RoleClient: true,
}

// Transition names an edge of the review graph
type Transition string

const (
	TransitionSubmit  Transition = "submit"
	TransitionApprove Transition = "approve"
	TransitionReject  Transition = "reject"
	TransitionRevert  Transition = "revert"
	TransitionPublish Transition = "publish"

	// TransitionSchedule is not a status edge; it labels schedule changes in
	// the event stream.
	TransitionSchedule Transition = "schedule"
)

// Actor carries the caller identity explicitly into every workflow call
type Actor struct {
	Role     Role   `json:"role"`
	ID       string `json:"id,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// SystemActor is the identity the scheduled publisher acts as
func SystemActor() Actor {
	return Actor{Role: RoleSystem, ID: "scheduler"}
}

// ContentRecord is one reviewable item, independent of its concrete kind
type ContentRecord struct {
	ID       string `json:"id" db:"id"`
	Kind     Kind   `json:"kind" db:"kind"`
	ClientID string `json:"client_id" db:"client_id"`
	Title    string `json:"title" db:"title"`

	// Campaign fields
	EmailSubject string `json:"email_subject,omitempty" db:"email_subject"`
	EmailBody    string `json:"email_body,omitempty" db:"email_body"`

	// BlogPost / SocialMediaPost fields
	Content string   `json:"content,omitempty" db:"content"`
	Images  []string `json:"images,omitempty" db:"images"`

	Status          Status     `json:"status" db:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	Timezone        string     `json:"timezone,omitempty" db:"timezone"`
	PublishedAt     *time.Time `json:"published_at,omitempty" db:"published_at"`
	Version         int64      `json:"version" db:"version"`

	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy string    `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy so callers can derive a new record without
// aliasing the pointer and slice fields of the original
func (r *ContentRecord) Clone() *ContentRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Images != nil {
		out.Images = append([]string(nil), r.Images...)
	}
	if r.ScheduledAt != nil {
		t := *r.ScheduledAt
		out.ScheduledAt = &t
	}
	if r.PublishedAt != nil {
		t := *r.PublishedAt
		out.PublishedAt = &t
	}
	return &out
}

// NewContent is the input for creating a draft
type NewContent struct {
	Kind         Kind     `json:"kind"`
	ClientID     string   `json:"client_id"`
	Title        string   `json:"title"`
	EmailSubject string   `json:"email_subject,omitempty"`
	EmailBody    string   `json:"email_body,omitempty"`
	Content      string   `json:"content,omitempty"`
	Images       []string `json:"images,omitempty"`
}

// ContentFilter narrows List queries; zero values match everything
type ContentFilter struct {
	ClientID string
	Kind     Kind
	Status   Status
	Limit    int
	Offset   int
}

// StatusCount is one row of the per-kind status breakdown
type StatusCount struct {
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
	Count  int    `json:"count"`
}
