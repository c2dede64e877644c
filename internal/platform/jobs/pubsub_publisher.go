package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"finitefield.org/fansite/internal/fanmail"
)

// PubSubFanMessagePublisher announces stored fan messages on a Pub/Sub topic.
type PubSubFanMessagePublisher struct {
	topic   *pubsub.Topic
	client  *pubsub.Client
	marshal func(any) ([]byte, error)
}

// NewPubSubFanMessagePublisher wraps an existing topic.
func NewPubSubFanMessagePublisher(topic *pubsub.Topic) (*PubSubFanMessagePublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub fan message publisher: topic is required")
	}
	return &PubSubFanMessagePublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// DialPubSubFanMessagePublisher opens a client for projectID and binds topicID.
// Close releases the client.
func DialPubSubFanMessagePublisher(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*PubSubFanMessagePublisher, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(topicID) == "" {
		return nil, errors.New("pubsub fan message publisher: project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	p, err := NewPubSubFanMessagePublisher(client.Topic(topicID))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	p.client = client
	return p, nil
}

// NotifyFanMessage publishes n and waits for the server id.
func (p *PubSubFanMessagePublisher) NotifyFanMessage(ctx context.Context, n fanmail.Notification) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub fan message publisher: not initialised")
	}

	data, err := p.marshal(n)
	if err != nil {
		return fmt.Errorf("marshal fan message notification: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "messageId", n.MessageID)
	setAttr(attrs, "userId", n.UserID)
	setAttr(attrs, "type", "fan_message.created")

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish fan message notification: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes a client opened by Dial.
func (p *PubSubFanMessagePublisher) Close() error {
	if p == nil || p.topic == nil {
		return nil
	}
	p.topic.Stop()
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
