package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/sethvargo/go-retry"

	"github.com/promptmart/promptmart-backend/pkg/logger"
)

const (
	defaultDeleteAttempts = 5
	defaultDeleteBackoff  = 500 * time.Millisecond
)

type objectDeleter interface {
	Delete(ctx context.Context, key string) error
}

type processResult struct {
	ack  bool
	nack bool
}

// Consumer drains the image deletion subscription and removes the named
// objects from storage.
type Consumer struct {
	deleter        objectDeleter
	subscription   *gcppubsub.Subscriber
	logg           *logger.Logger
	deleteAttempts uint64
	deleteBackoff  time.Duration
}

// NewConsumer wires the dependencies for background image cleanup.
func NewConsumer(deleter objectDeleter, subscription *gcppubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if deleter == nil {
		return nil, errors.New("object deleter is required")
	}
	if subscription == nil {
		return nil, errors.New("image deletion subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		deleter:        deleter,
		subscription:   subscription,
		logg:           logg,
		deleteAttempts: defaultDeleteAttempts,
		deleteBackoff:  defaultDeleteBackoff,
	}, nil
}

// Run processes deletion messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	var payload DeletionMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode deletion message", err)
		return processResult{ack: true}
	}
	if len(payload.Keys) == 0 {
		c.logg.Warn(logCtx, "deletion message carries no keys")
		return processResult{ack: true}
	}

	deleted := 0
	for _, key := range payload.Keys {
		if key == "" {
			continue
		}
		keyCtx := c.logg.WithField(logCtx, "gcs_key", key)
		if err := c.deleteWithRetry(keyCtx, key); err != nil {
			// The key stays orphaned in the bucket; redelivering the whole
			// batch would re-delete the ones that already succeeded.
			c.logg.Error(keyCtx, "giving up on image deletion", err)
			continue
		}
		deleted++
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{"keys_total": len(payload.Keys), "keys_deleted": deleted})
	c.logg.Info(logCtx, "processed image deletion message")
	return processResult{ack: true}
}

func (c *Consumer) deleteWithRetry(ctx context.Context, key string) error {
	backoff := retry.WithMaxRetries(c.deleteAttempts, retry.NewFibonacci(c.deleteBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.deleter.Delete(ctx, key); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
