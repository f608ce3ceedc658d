package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/workflow"
)

const (
	MaxTitleLength        = 200
	MaxEmailSubjectLength = 200
	MaxSocialPostLength   = 2200
	MaxImages             = 10
)

var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Errors is a list of field errors that reads as one validation failure
type Errors []workflow.ValidationError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) Unwrap() error { return workflow.ErrValidation }

// Validator provides validation methods
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateNewContent checks the shape of a draft for its kind. Campaigns
// carry an email; posts carry a body and optional images.
func (v *Validator) ValidateNewContent(in *models.NewContent) Errors {
	var errors Errors

	// Validate kind
	if in.Kind == "" {
		errors = append(errors, workflow.ValidationError{Field: "kind", Message: "kind is required"})
	} else if !models.ValidKinds[in.Kind] {
		errors = append(errors, workflow.ValidationError{
			Field:   "kind",
			Message: "invalid kind, must be one of: campaign, blog_post, social_media_post",
			Value:   string(in.Kind),
		})
	}

	// Validate client_id
	if strings.TrimSpace(in.ClientID) == "" {
		errors = append(errors, workflow.ValidationError{Field: "client_id", Message: "client_id is required"})
	} else if !IsValidID(in.ClientID) {
		errors = append(errors, workflow.ValidationError{Field: "client_id", Message: "invalid client_id format", Value: in.ClientID})
	}

	// Validate title
	if strings.TrimSpace(in.Title) == "" {
		errors = append(errors, workflow.ValidationError{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		errors = append(errors, workflow.ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title exceeds maximum of %d characters", MaxTitleLength),
		})
	}

	switch in.Kind {
	case models.KindCampaign:
		errors = append(errors, v.validateCampaign(in)...)
	case models.KindBlogPost, models.KindSocialMediaPost:
		errors = append(errors, v.validatePost(in)...)
	}

	return errors
}

func (v *Validator) validateCampaign(in *models.NewContent) Errors {
	var errors Errors

	if strings.TrimSpace(in.EmailSubject) == "" {
		errors = append(errors, workflow.ValidationError{Field: "email_subject", Message: "email_subject is required for campaigns"})
	} else if utf8.RuneCountInString(in.EmailSubject) > MaxEmailSubjectLength {
		errors = append(errors, workflow.ValidationError{
			Field:   "email_subject",
			Message: fmt.Sprintf("email_subject exceeds maximum of %d characters", MaxEmailSubjectLength),
		})
	}
	if strings.TrimSpace(in.EmailBody) == "" {
		errors = append(errors, workflow.ValidationError{Field: "email_body", Message: "email_body is required for campaigns"})
	}
	if in.Content != "" {
		errors = append(errors, workflow.ValidationError{Field: "content", Message: "campaigns do not take content"})
	}
	if len(in.Images) > 0 {
		errors = append(errors, workflow.ValidationError{Field: "images", Message: "campaigns do not take images"})
	}
	return errors
}

func (v *Validator) validatePost(in *models.NewContent) Errors {
	var errors Errors

	if strings.TrimSpace(in.Content) == "" {
		errors = append(errors, workflow.ValidationError{Field: "content", Message: "content is required"})
	} else if in.Kind == models.KindSocialMediaPost && utf8.RuneCountInString(in.Content) > MaxSocialPostLength {
		errors = append(errors, workflow.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("social posts are limited to %d characters", MaxSocialPostLength),
		})
	}
	if in.EmailSubject != "" || in.EmailBody != "" {
		errors = append(errors, workflow.ValidationError{Field: "email_subject", Message: "only campaigns take an email"})
	}

	if len(in.Images) > MaxImages {
		errors = append(errors, workflow.ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("at most %d images are allowed", MaxImages),
		})
	}
	for _, img := range in.Images {
		if !isValidImageURL(img) {
			errors = append(errors, workflow.ValidationError{Field: "images", Message: "image must be an http(s) URL", Value: img})
		}
	}
	return errors
}

// ValidateBulkIDs checks the id list of a bulk request against maxItems
// after duplicates are removed, and returns the de-duplicated list. The
// format of individual ids is not checked here; a malformed id fails on
// its own without aborting the batch.
func (v *Validator) ValidateBulkIDs(ids []string, maxItems int) ([]string, Errors) {
	var errors Errors

	unique := DedupeIDs(ids)
	if len(unique) == 0 {
		errors = append(errors, workflow.ValidationError{Field: "ids", Message: "at least one id is required"})
		return nil, errors
	}
	if maxItems > 0 && len(unique) > maxItems {
		errors = append(errors, workflow.ValidationError{
			Field:   "ids",
			Message: fmt.Sprintf("at most %d ids per bulk request (got %d)", maxItems, len(unique)),
		})
	}
	if len(errors) > 0 {
		return nil, errors
	}
	return unique, nil
}

// DedupeIDs trims ids, drops blanks and keeps the first occurrence of each
func DedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// IsValidID accepts uuids and short opaque ids
func IsValidID(s string) bool {
	return idRegex.MatchString(s)
}

func isValidImageURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
