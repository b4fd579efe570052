package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsaga/internal/domain/deadletter"
	"eventsaga/internal/domain/event"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
	"eventsaga/internal/publisher"
)

func deadLetterRecord() deadletter.Record {
	return deadletter.Record{
		OriginalTopic:     productTopic,
		OriginalPartition: 0,
		OriginalOffset:    12,
		Key:               "p1",
		Headers:           map[string]string{event.HeaderMessageID: "m1", event.HeaderEventType: "ProductCreated"},
		Body:              []byte(`{"productId":"p1"}`),
		Reason:            "transport_failure: remote call: timeout",
		FailureKind:       "transport_failure",
		Classification:    "retryable",
		AttemptCount:      3,
		FailedAt:          time.Now(),
	}
}

func TestListDeadLetters(t *testing.T) {
	rec := deadLetterRecord()
	source := func(_ context.Context, topic string, limit int) ([]kafka.Message, error) {
		assert.Equal(t, productTopic+"-dlt", topic)
		return []kafka.Message{
			{Key: []byte(rec.Key), Value: rec.Body, Headers: kafkaInfra.Headers(rec.WireHeaders())},
			{Key: []byte("junk"), Value: []byte("x")},
		}, nil
	}

	records, err := NewListDeadLetters(source).Execute(context.Background(), productTopic+"-dlt", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].AttemptCount)
	assert.Equal(t, int64(12), records[0].OriginalOffset)
}

func TestReplayDeadLetter_KeepsOriginalMessageID(t *testing.T) {
	w := &memWriter{}
	pub := publisher.New(w, publisher.Config{MaxInFlight: 1}, nil)
	defer pub.Close()

	rec := deadLetterRecord()
	rec.Headers = rec.WireHeaders()

	receipt, err := NewReplayDeadLetter(pub, nil).Execute(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "m1", receipt.MessageID)

	msgs := w.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, productTopic, msgs[0].Topic)
	headers := kafkaInfra.HeaderMap(msgs[0].Headers)
	assert.Equal(t, "m1", headers[event.HeaderMessageID])
	assert.NotContains(t, headers, deadletter.HeaderAttemptCount)
}

func TestReplayDeadLetter_RequiresOriginalTopic(t *testing.T) {
	pub := publisher.New(&memWriter{}, publisher.Config{MaxInFlight: 1}, nil)
	defer pub.Close()

	_, err := NewReplayDeadLetter(pub, nil).Execute(context.Background(), deadletter.Record{})
	assert.Error(t, err)
}
