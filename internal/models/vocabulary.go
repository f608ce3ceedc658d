package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownKind is returned for a kind outside ValidKinds
	ErrUnknownKind = errors.New("unknown content kind")
	// ErrUnknownStatus is returned for a spelling the kind does not use
	ErrUnknownStatus = errors.New("unknown status")
	// ErrStatusOutsideWorkflow is returned for persisted campaign states the
	// review workflow does not govern (SCHEDULED, PAUSED, COMPLETED)
	ErrStatusOutsideWorkflow = errors.New("status is outside the review workflow")
)

// vocabulary is the boundary translation table for one kind
type vocabulary struct {
	toCanonical map[string]Status
	toSpelling  map[Status]string
	external    map[string]bool
}

func newVocabulary(pairs map[Status]string, external ...string) vocabulary {
	v := vocabulary{
		toCanonical: make(map[string]Status, len(pairs)),
		toSpelling:  make(map[Status]string, len(pairs)),
		external:    make(map[string]bool, len(external)),
	}
	for status, spelling := range pairs {
		v.toCanonical[spelling] = status
		v.toSpelling[status] = spelling
	}
	for _, spelling := range external {
		v.external[spelling] = true
	}
	return v
}

var postVocabulary = newVocabulary(map[Status]string{
	StatusDraft:         "draft",
	StatusPendingReview: "pending_review",
	StatusApproved:      "approved",
	StatusRejected:      "rejected",
	StatusPublished:     "published",
})

// Campaign has no Approved spelling: approval lands directly on ACTIVE.
var campaignVocabulary = newVocabulary(map[Status]string{
	StatusDraft:         "DRAFT",
	StatusPendingReview: "REVIEW",
	StatusRejected:      "REJECTED",
	StatusPublished:     "ACTIVE",
}, "SCHEDULED", "PAUSED", "COMPLETED")

var vocabularies = map[Kind]vocabulary{
	KindCampaign:        campaignVocabulary,
	KindBlogPost:        postVocabulary,
	KindSocialMediaPost: postVocabulary,
}

// ParseKind validates a kind string from the boundary
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	if !ValidKinds[k] {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// ParseStatus maps a kind-specific spelling onto the canonical status.
// Canonical names are accepted as well so internal callers need not care.
func ParseStatus(kind Kind, spelling string) (Status, error) {
	v, ok := vocabularies[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	spelling = strings.TrimSpace(spelling)
	if status, ok := v.toCanonical[spelling]; ok {
		return status, nil
	}
	if _, ok := v.toSpelling[Status(spelling)]; ok {
		return Status(spelling), nil
	}
	if v.external[spelling] {
		return "", fmt.Errorf("%w: %s %s", ErrStatusOutsideWorkflow, kind, spelling)
	}
	return "", fmt.Errorf("%w: %s %q", ErrUnknownStatus, kind, spelling)
}

// Spelling renders a canonical status in the kind's persisted vocabulary
func Spelling(kind Kind, status Status) (string, error) {
	v, ok := vocabularies[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	spelling, ok := v.toSpelling[status]
	if !ok {
		return "", fmt.Errorf("%w: %s has no %s state", ErrUnknownStatus, kind, status)
	}
	return spelling, nil
}

// Representable reports whether status is a state the kind can hold
func Representable(kind Kind, status Status) bool {
	_, err := Spelling(kind, status)
	return err == nil
}

// VocabularyRow pairs a canonical status with its spelling for one kind
type VocabularyRow struct {
	Kind     Kind
	Status   Status
	Spelling string
}

// Vocabulary lists every representable status for every kind, in lifecycle order
func Vocabulary() []VocabularyRow {
	order := []Status{StatusDraft, StatusPendingReview, StatusApproved, StatusRejected, StatusPublished}
	kinds := []Kind{KindCampaign, KindBlogPost, KindSocialMediaPost}
	rows := make([]VocabularyRow, 0, len(order)*len(kinds))
	for _, k := range kinds {
		for _, s := range order {
			if spelling, err := Spelling(k, s); err == nil {
				rows = append(rows, VocabularyRow{Kind: k, Status: s, Spelling: spelling})
			}
		}
	}
	return rows
}
