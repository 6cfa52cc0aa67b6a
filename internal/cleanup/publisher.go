package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/promptmart/promptmart-backend/pkg/logger"
)

const publishTimeout = 15 * time.Second

// DeletionMessage is the payload carried on the image deletion topic.
type DeletionMessage struct {
	Keys []string `json:"keys"`
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Publisher enqueues storage keys for asynchronous deletion.
type Publisher struct {
	pub  publisher
	logg *logger.Logger
}

// NewPublisher wraps the image deletion topic publisher.
func NewPublisher(pub *gcppubsub.Publisher, logg *logger.Logger) (*Publisher, error) {
	if pub == nil {
		return nil, errors.New("image deletion publisher is required")
	}
	return &Publisher{pub: &gcpPublisher{Publisher: pub}, logg: logg}, nil
}

func newPublisherWith(pub publisher, logg *logger.Logger) *Publisher {
	return &Publisher{pub: pub, logg: logg}
}

// EnqueueImageDeletions publishes one message carrying every non-empty key.
// A nil or empty key set is a no-op.
func (p *Publisher) EnqueueImageDeletions(ctx context.Context, keys []string) error {
	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			filtered = append(filtered, key)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	data, err := json.Marshal(DeletionMessage{Keys: filtered})
	if err != nil {
		return fmt.Errorf("encoding deletion message: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := p.pub.Publish(publishCtx, &gcppubsub.Message{Data: data})
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	id, err := result.Get(publishCtx)
	if err != nil {
		return fmt.Errorf("publishing deletion message: %w", err)
	}

	if p.logg != nil {
		fields := map[string]any{"message_id": id, "key_count": len(filtered)}
		p.logg.Info(p.logg.WithFields(ctx, fields), "enqueued image deletions")
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
