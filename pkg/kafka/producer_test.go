package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "vocab.index-built")

	err := p.Publish(context.Background(), Event{
		Key:   "index",
		Value: map[string]any{"name": "index", "size": 2},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "index", string(w.msgs[0].Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "index", got["name"])
	assert.Equal(t, 2.0, got["size"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishErrors(t *testing.T) {
	broken := errors.New("leader not available")
	p := NewProducerWithWriter(&fakeWriter{err: broken}, "t")
	assert.ErrorIs(t, p.Publish(context.Background(), Event{Key: "k", Value: 1}), broken)

	p = NewProducerWithWriter(&fakeWriter{}, "t")
	err := p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)})
	assert.ErrorContains(t, err, "marshaling event value")
}
