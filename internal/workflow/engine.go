// Package workflow holds the review state machine. Everything here is pure:
// no storage, no clocks, no logging.
package workflow

import (
	"strings"
	"time"

	"github.com/content-review-api/internal/models"
)

type edge struct {
	to    models.Status
	roles []models.Role
}

type graph map[models.Status]map[models.Transition]edge

var (
	agencyOnly      = []models.Role{models.RoleAgency}
	clientOnly      = []models.Role{models.RoleClient}
	agencyOrSystem  = []models.Role{models.RoleSystem, models.RoleAgency}
	transitionOrder = []models.Transition{
		models.TransitionSubmit,
		models.TransitionApprove,
		models.TransitionReject,
		models.TransitionRevert,
		models.TransitionPublish,
	}
)

// Blog and social posts keep Approved as a holding state until publish.
var postGraph = graph{
	models.StatusDraft: {
		models.TransitionSubmit: {to: models.StatusPendingReview, roles: agencyOnly},
	},
	models.StatusPendingReview: {
		models.TransitionApprove: {to: models.StatusApproved, roles: clientOnly},
		models.TransitionReject:  {to: models.StatusRejected, roles: clientOnly},
	},
	models.StatusRejected: {
		models.TransitionRevert: {to: models.StatusDraft, roles: agencyOnly},
	},
	models.StatusApproved: {
		models.TransitionPublish: {to: models.StatusPublished, roles: agencyOrSystem},
	},
	models.StatusPublished: {},
}

// Campaign approval is terminal in one step (ACTIVE).
var campaignGraph = graph{
	models.StatusDraft: {
		models.TransitionSubmit: {to: models.StatusPendingReview, roles: agencyOnly},
	},
	models.StatusPendingReview: {
		models.TransitionApprove: {to: models.StatusPublished, roles: clientOnly},
		models.TransitionReject:  {to: models.StatusRejected, roles: clientOnly},
	},
	models.StatusRejected: {
		models.TransitionRevert: {to: models.StatusDraft, roles: agencyOnly},
	},
	models.StatusPublished: {},
}

var graphs = map[models.Kind]graph{
	models.KindCampaign:        campaignGraph,
	models.KindBlogPost:        postGraph,
	models.KindSocialMediaPost: postGraph,
}

// CanTransition decides whether role may move record along transition. It
// returns nil when allowed and a *TransitionError otherwise. Edge presence is
// checked before the role so that callers can tell "not eligible" apart from
// "not permitted".
func CanTransition(record *models.ContentRecord, transition models.Transition, role models.Role) error {
	if record == nil {
		return NewValidationError("record", "record is required")
	}
	refuse := func(reason string, illegalEdge bool) error {
		return &TransitionError{
			Kind:        record.Kind,
			From:        record.Status,
			Transition:  transition,
			Role:        role,
			Reason:      reason,
			illegalEdge: illegalEdge,
		}
	}

	g, ok := graphs[record.Kind]
	if !ok {
		return refuse("unknown content kind", true)
	}
	out, ok := g[record.Status]
	if !ok {
		return refuse("status is not part of this kind's workflow", true)
	}
	e, ok := out[transition]
	if !ok {
		return refuse("no such edge from current status", true)
	}
	for _, r := range e.roles {
		if r == role {
			return nil
		}
	}
	return refuse("role may not perform this transition", false)
}

// Target returns the status transition leads to from status, if the edge exists
func Target(kind models.Kind, status models.Status, transition models.Transition) (models.Status, bool) {
	e, ok := graphs[kind][status][transition]
	if !ok {
		return "", false
	}
	return e.to, true
}

// Outgoing lists the transitions leaving status for kind, in lifecycle order
func Outgoing(kind models.Kind, status models.Status) []models.Transition {
	out := graphs[kind][status]
	result := make([]models.Transition, 0, len(out))
	for _, t := range transitionOrder {
		if _, ok := out[t]; ok {
			result = append(result, t)
		}
	}
	return result
}

// AllowedFor filters Outgoing down to the transitions role may perform
func AllowedFor(kind models.Kind, status models.Status, role models.Role) []models.Transition {
	var result []models.Transition
	for _, t := range Outgoing(kind, status) {
		for _, r := range graphs[kind][status][t].roles {
			if r == role {
				result = append(result, t)
				break
			}
		}
	}
	return result
}

// ValidateReason checks the rejection reason required by the reject edge
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("reason", "a non-empty rejection reason is required")
	}
	return nil
}

// Change carries the inputs Apply needs besides the record itself
type Change struct {
	Transition models.Transition
	Actor      models.Actor
	Reason     string
	Now        time.Time
}

// Apply computes the record that results from a permitted transition. The
// input record is not modified. Apply re-validates the edge and reason so it
// can never produce a state outside the graph.
func Apply(record *models.ContentRecord, change Change) (*models.ContentRecord, error) {
	if err := CanTransition(record, change.Transition, change.Actor.Role); err != nil {
		return nil, err
	}
	if change.Transition == models.TransitionReject {
		if err := ValidateReason(change.Reason); err != nil {
			return nil, err
		}
	}
	to, _ := Target(record.Kind, record.Status, change.Transition)

	next := record.Clone()
	next.Status = to
	next.Version = record.Version + 1
	next.UpdatedAt = change.Now
	next.UpdatedBy = change.Actor.ID

	if to == models.StatusRejected {
		next.RejectionReason = strings.TrimSpace(change.Reason)
		// A rejected item must not go live from a stale schedule.
		next.ScheduledAt = nil
	} else {
		next.RejectionReason = ""
	}

	if to == models.StatusPublished && next.PublishedAt == nil {
		at := change.Now
		next.PublishedAt = &at
	}
	return next, nil
}
