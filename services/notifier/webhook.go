package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"autoalert/listingworker/helpers"
	"autoalert/listingworker/internal/listing"
	apperr "autoalert/listingworker/pkg/errors"
)

// Embed colors
const (
	colorListing = 0xF16400
	colorStatus  = 0x3498DB
)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedThumbnail struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string          `json:"title"`
	URL         string          `json:"url,omitempty"`
	Description string          `json:"description,omitempty"`
	Color       int             `json:"color"`
	Fields      []embedField    `json:"fields,omitempty"`
	Thumbnail   *embedThumbnail `json:"thumbnail,omitempty"`
	Footer      *embedFooter    `json:"footer,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// WebhookNotifier posts embed-formatted JSON to a configured webhook URL.
// The URL is a secret supplied out of band and is never persisted.
type WebhookNotifier struct {
	url    string
	client *http.Client
	retry  helpers.RetryPolicy
}

// NewWebhookNotifier creates a webhook notifier with the given retry policy
func NewWebhookNotifier(url string, retry helpers.RetryPolicy) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: retry,
	}
}

// NotifyListing sends one listing alert
func (n *WebhookNotifier) NotifyListing(ctx context.Context, l listing.Listing) error {
	var fields []embedField
	if l.Price != "" {
		fields = append(fields, embedField{Name: "Price", Value: l.Price, Inline: true})
	}
	if l.Location != "" {
		fields = append(fields, embedField{Name: "Location", Value: l.Location, Inline: true})
	}
	if l.DatePosted != "" {
		fields = append(fields, embedField{Name: "Posted", Value: l.DatePosted, Inline: true})
	}

	e := embed{
		Title:       l.Title,
		URL:         l.URL,
		Description: l.Description,
		Color:       colorListing,
		Fields:      fields,
		Footer:      &embedFooter{Text: "New Listing Alert"},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if l.ImageURL != "" {
		e.Thumbnail = &embedThumbnail{URL: l.ImageURL}
	}

	return n.send(ctx, l.Source, webhookPayload{Embeds: []embed{e}})
}

// NotifyStatus sends a plain operational alert
func (n *WebhookNotifier) NotifyStatus(ctx context.Context, title, message string) error {
	e := embed{
		Title:       title,
		Description: message,
		Color:       colorStatus,
	}
	return n.send(ctx, "", webhookPayload{Embeds: []embed{e}})
}

func (n *WebhookNotifier) send(ctx context.Context, source string, payload webhookPayload) error {
	if n.url == "" {
		return apperr.NewNotify(source, "webhook URL not configured", nil, false)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.NewNotify(source, "failed to marshal payload", err, false)
	}

	return n.retry.Do(ctx, func() error {
		return n.post(ctx, source, body)
	})
}

func (n *WebhookNotifier) post(ctx context.Context, source string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return apperr.NewNotify(source, "failed to create request", err, false)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return apperr.NewNotify(source, "failed to post webhook", err, true)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperr.NewNotify(source, fmt.Sprintf("webhook status %d", resp.StatusCode), nil, true)
	default:
		return apperr.NewNotify(source, fmt.Sprintf("webhook status %d", resp.StatusCode), nil, false)
	}
}
