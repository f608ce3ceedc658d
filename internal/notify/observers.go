package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/repository"
	"github.com/rs/zerolog"
)

// LogObserver writes every event to the structured log
type LogObserver struct {
	log zerolog.Logger
}

func NewLogObserver(log zerolog.Logger) *LogObserver {
	return &LogObserver{log: log.With().Str("observer", "log").Logger()}
}

func (o *LogObserver) Name() string { return "log" }

func (o *LogObserver) Update(_ context.Context, event models.Event) error {
	entry := o.log.Info().
		Str("event_id", event.ID).
		Str("record_id", event.RecordID).
		Str("kind", string(event.Kind)).
		Str("client_id", event.ClientID).
		Str("transition", string(event.Transition)).
		Str("from", event.FromSpelling()).
		Str("to", event.ToSpelling()).
		Str("actor_role", string(event.Actor.Role)).
		Str("actor_id", event.Actor.ID).
		Int64("version", event.Version)
	if event.RejectionReason != "" {
		entry = entry.Str("rejection_reason", event.RejectionReason)
	}
	entry.Msg("Workflow event")
	return nil
}

// StoreObserver appends events to the audit trail
type StoreObserver struct {
	repo    repository.EventRepository
	timeout time.Duration
}

func NewStoreObserver(repo repository.EventRepository) *StoreObserver {
	return &StoreObserver{repo: repo, timeout: 5 * time.Second}
}

func (o *StoreObserver) Name() string { return "store" }

func (o *StoreObserver) Update(ctx context.Context, event models.Event) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := o.repo.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}
	return nil
}

const userAgent = "content-review-api/1.0"

// WebhookObserver posts events to an ntfy-style endpoint: a plain text body
// with Title, Tags and Priority headers
type WebhookObserver struct {
	endpoint string
	client   *http.Client
}

func NewWebhookObserver(endpoint string, timeout time.Duration) *WebhookObserver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookObserver{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
	}
}

func (o *WebhookObserver) Name() string { return "webhook" }

func (o *WebhookObserver) Update(ctx context.Context, event models.Event) error {
	msg := formatMessage(event)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewBufferString(msg.body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Title", msg.title)
	req.Header.Set("Tags", strings.Join(msg.tags, ","))
	req.Header.Set("Priority", msg.priority)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("User-Agent", userAgent)

	meta, _ := json.Marshal(map[string]interface{}{
		"event_id":  event.ID,
		"record_id": event.RecordID,
		"version":   event.Version,
	})
	req.Header.Set("X-Workflow-Event", string(meta))

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

var kindLabels = map[models.Kind]string{
	models.KindCampaign:        "Campaign",
	models.KindBlogPost:        "Blog post",
	models.KindSocialMediaPost: "Social post",
}

func formatMessage(event models.Event) message {
	label := kindLabels[event.Kind]
	if label == "" {
		label = "Content"
	}

	m := message{priority: "default"}
	switch event.Transition {
	case models.TransitionSubmit:
		m.title = label + " ready for review"
		m.tags = []string{"eyes"}
	case models.TransitionApprove:
		m.title = label + " approved"
		m.tags = []string{"white_check_mark"}
	case models.TransitionReject:
		m.title = label + " rejected"
		m.tags = []string{"x"}
		m.priority = "high"
	case models.TransitionRevert:
		m.title = label + " back in draft"
		m.tags = []string{"pencil"}
		m.priority = "low"
	case models.TransitionPublish:
		m.title = label + " published"
		m.tags = []string{"rocket"}
	case models.TransitionSchedule:
		m.title = label + " scheduled"
		m.tags = []string{"calendar"}
		m.priority = "low"
	default:
		m.title = label + " updated"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s -> %s", label, event.RecordID, event.FromSpelling(), event.ToSpelling())
	if event.Actor.Role != "" {
		fmt.Fprintf(&b, " by %s", event.Actor.Role)
		if event.Actor.ID != "" {
			fmt.Fprintf(&b, " %s", event.Actor.ID)
		}
	}
	if event.RejectionReason != "" {
		fmt.Fprintf(&b, "\nReason: %s", event.RejectionReason)
	}
	m.body = b.String()
	return m
}
