package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// PubSubConfig locates the change-event topic.
type PubSubConfig struct {
	ProjectID string
	Topic     string
}

// changeEvent is the JSON payload published per detected change.
type changeEvent struct {
	RunID   string    `json:"run_id"`
	URL     string    `json:"url"`
	Verdict string    `json:"verdict"`
	Added   []string  `json:"keywords_added,omitempty"`
	Removed []string  `json:"keywords_removed,omitempty"`
	Subject string    `json:"subject"`
	SentAt  time.Time `json:"sent_at"`
}

// PubSub publishes change events to a Google Cloud Pub/Sub topic so
// downstream consumers can react without polling the page themselves.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSub builds the Pub/Sub channel.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("pubsub channel: project id and topic are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub channel: create client: %w", err)
	}
	return &PubSub{client: client, topic: client.Topic(cfg.Topic)}, nil
}

// Close flushes pending publishes and releases the client.
func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// Name identifies the channel in results and logs.
func (p *PubSub) Name() string { return "pubsub" }

// Send publishes one change event and waits for the server ack.
func (p *PubSub) Send(ctx context.Context, msg watcher.Message) error {
	event := changeEvent{
		RunID:   msg.RunID,
		URL:     msg.URL,
		Verdict: string(msg.Verdict.Kind),
		Added:   msg.Verdict.Added,
		Removed: msg.Verdict.Removed,
		Subject: msg.Subject,
		SentAt:  msg.SentAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}
