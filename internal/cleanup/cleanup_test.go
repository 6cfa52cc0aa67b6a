package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/require"

	"github.com/promptmart/promptmart-backend/pkg/logger"
)

type fakePublisher struct {
	messages []*gcppubsub.Message
	results  []fakePublishResult
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	idx := len(f.messages) - 1
	if idx < len(f.results) {
		return f.results[idx]
	}
	return fakePublishResult{}
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

type fakeDeleter struct {
	deleted  []string
	failures map[string]int
}

func (f *fakeDeleter) Delete(_ context.Context, key string) error {
	if f.failures == nil {
		f.failures = map[string]int{}
	}
	if remaining := f.failures[key]; remaining > 0 {
		f.failures[key] = remaining - 1
		return errors.New("storage unavailable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestEnqueueImageDeletionsPublishesFilteredKeys(t *testing.T) {
	pub := &fakePublisher{}
	p := newPublisherWith(pub, testLogger())

	err := p.EnqueueImageDeletions(context.Background(), []string{"prompts/a/1.png", "", "prompts/a/2.png"})
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	var payload DeletionMessage
	require.NoError(t, json.Unmarshal(pub.messages[0].Data, &payload))
	require.Equal(t, []string{"prompts/a/1.png", "prompts/a/2.png"}, payload.Keys)
}

func TestEnqueueImageDeletionsSkipsEmptySet(t *testing.T) {
	pub := &fakePublisher{}
	p := newPublisherWith(pub, testLogger())

	require.NoError(t, p.EnqueueImageDeletions(context.Background(), nil))
	require.NoError(t, p.EnqueueImageDeletions(context.Background(), []string{""}))
	require.Empty(t, pub.messages)
}

func TestEnqueueImageDeletionsPropagatesPublishError(t *testing.T) {
	pub := &fakePublisher{results: []fakePublishResult{{err: errors.New("topic gone")}}}
	p := newPublisherWith(pub, testLogger())

	err := p.EnqueueImageDeletions(context.Background(), []string{"k"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "topic gone")
}

func newTestConsumer(deleter objectDeleter) *Consumer {
	return &Consumer{
		deleter:        deleter,
		logg:           testLogger(),
		deleteAttempts: 2,
		deleteBackoff:  time.Millisecond,
	}
}

func deletionMessage(t *testing.T, keys []string) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(DeletionMessage{Keys: keys})
	require.NoError(t, err)
	return &gcppubsub.Message{ID: "m1", Data: data}
}

func TestConsumerDeletesEveryKey(t *testing.T) {
	deleter := &fakeDeleter{}
	c := newTestConsumer(deleter)

	result := c.process(context.Background(), deletionMessage(t, []string{"a", "b"}))
	require.True(t, result.ack)
	require.Equal(t, []string{"a", "b"}, deleter.deleted)
}

func TestConsumerRetriesTransientFailures(t *testing.T) {
	deleter := &fakeDeleter{failures: map[string]int{"a": 1}}
	c := newTestConsumer(deleter)

	result := c.process(context.Background(), deletionMessage(t, []string{"a"}))
	require.True(t, result.ack)
	require.Equal(t, []string{"a"}, deleter.deleted)
}

func TestConsumerAcksAfterExhaustedRetries(t *testing.T) {
	deleter := &fakeDeleter{failures: map[string]int{"a": 10}}
	c := newTestConsumer(deleter)

	result := c.process(context.Background(), deletionMessage(t, []string{"a", "b"}))
	require.True(t, result.ack)
	require.False(t, result.nack)
	require.Equal(t, []string{"b"}, deleter.deleted)
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	deleter := &fakeDeleter{}
	c := newTestConsumer(deleter)

	result := c.process(context.Background(), &gcppubsub.Message{ID: "m2", Data: []byte("{not json")})
	require.True(t, result.ack)
	require.Empty(t, deleter.deleted)
}
