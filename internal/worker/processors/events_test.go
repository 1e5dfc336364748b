package processors

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbanalytics/internal/logger"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, logger.New("error"))

	err := p.Publish(context.Background(), Event{
		Type:     EventDaySaved,
		RunID:    "run-1",
		ShopName: "acme",
		Date:     "2025-07-10",
		Data:     map[string]interface{}{"stock_rows": 2},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "acme", string(msg.Key))
	assert.False(t, msg.Time.IsZero())

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, EventDaySaved, decoded.Type)
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "2025-07-10", decoded.Date)
	assert.Equal(t, float64(2), decoded.Data["stock_rows"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_KeepsTimestamp(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, logger.New("error"))
	ts := time.Date(2025, 7, 11, 3, 0, 0, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), Event{Type: EventRunCompleted, Timestamp: ts}))
	assert.Equal(t, ts, w.messages[0].Time)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, logger.New("error"))

	err := p.Publish(context.Background(), Event{Type: EventShopFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop.failed")
	assert.Contains(t, err.Error(), "broker down")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
