package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Notification is one state-change message delivered to a collaborator.
type Notification struct {
	EntityID     string         `json:"entity_id"`
	WorkflowType string         `json:"workflow_type"`
	NewState     string         `json:"new_state"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// Collaborator is an external party interested in state changes. Each
// collaborator exposes a single notify operation with its own delivery
// guarantees.
type Collaborator interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// HTTPCollaborator delivers notifications as JSON POSTs to a
// collaborator's endpoint.
type HTTPCollaborator struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPCollaborator creates a collaborator client for the given
// endpoint. A nil client uses http.DefaultClient.
func NewHTTPCollaborator(name, url string, client *http.Client) *HTTPCollaborator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPCollaborator{name: name, url: url, client: client}
}

// Name returns the configured collaborator name.
func (c *HTTPCollaborator) Name() string { return c.name }

// Notify posts the notification to the collaborator endpoint. Any
// non-2xx response is a delivery failure.
func (c *HTTPCollaborator) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/notify", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collaborator %s rejected notification: status %d", c.name, resp.StatusCode)
	}
	return nil
}
