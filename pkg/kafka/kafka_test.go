package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	committed []kafka.Message
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed++
	return nil
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "aisearch.product.upserted", Topic("product", "upserted"))
}

func TestNewEvent_RoundTrip(t *testing.T) {
	type payload struct {
		NewIndex string `json:"newIndex"`
	}
	event, err := NewEvent("index.rolled_out", "food-products-read", "aisearch-indexer", payload{NewIndex: "food-products-v20250101000000"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	raw, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "corr-1", decoded.CorrelationID)

	var got payload
	require.NoError(t, decoded.UnmarshalData(&got))
	assert.Equal(t, "food-products-v20250101000000", got.NewIndex)
}

func TestUnmarshalEvent_RequiresType(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"event_id":"x","data":{}}`))
	assert.Error(t, err)

	_, err = UnmarshalEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: discardLogger()}

	event, err := NewEvent("product.upserted", "42", "test", map[string]int{"id": 42})
	require.NoError(t, err)
	event.WithCorrelationID("c-9")

	require.NoError(t, p.Publish(context.Background(), Topic("product", "upserted"), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "aisearch.product.upserted", w.msgs[0].Topic)
	assert.Equal(t, []byte("42"), w.msgs[0].Key)
	assert.Len(t, w.msgs[0].Headers, 2)
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}, logger: discardLogger()}
	event, err := NewEvent("product.deleted", "1", "test", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "t", event)
	assert.ErrorContains(t, err, "broker down")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

func TestConsumer_ProcessRetriesThenCommits(t *testing.T) {
	r := &fakeReader{}
	calls := 0
	c := &Consumer{
		reader: r,
		handler: func(context.Context, *Event) error {
			calls++
			return errors.New("es unavailable")
		},
		logger: discardLogger(),
	}

	event, err := NewEvent("product.upserted", "7", "test", map[string]int{"id": 7})
	require.NoError(t, err)
	raw, err := event.Marshal()
	require.NoError(t, err)

	c.process(context.Background(), kafka.Message{Topic: "aisearch.product.upserted", Value: raw})
	assert.Equal(t, maxHandlerAttempts, calls)
	assert.Len(t, r.committed, 1)
}

func TestConsumer_ProcessSkipsPoisonPill(t *testing.T) {
	r := &fakeReader{}
	called := false
	c := &Consumer{
		reader:  r,
		handler: func(context.Context, *Event) error { called = true; return nil },
		logger:  discardLogger(),
	}

	c.process(context.Background(), kafka.Message{Value: []byte("{")})
	assert.False(t, called)
	assert.Len(t, r.committed, 1)
}

func TestConsumer_StartStopsOnCancel(t *testing.T) {
	r := &fakeReader{}
	c := &Consumer{reader: r, handler: func(context.Context, *Event) error { return nil }, logger: discardLogger()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}

type fakeDeadLetter struct {
	msgs   []kafka.Message
	causes []error
}

func (d *fakeDeadLetter) Publish(_ context.Context, msg kafka.Message, cause error) error {
	d.msgs = append(d.msgs, msg)
	d.causes = append(d.causes, cause)
	return nil
}

func TestConsumer_ExhaustedRetriesGoToDeadLetter(t *testing.T) {
	r := &fakeReader{}
	dlq := &fakeDeadLetter{}
	c := (&Consumer{
		reader:  r,
		handler: func(context.Context, *Event) error { return errors.New("embedding quota") },
		logger:  discardLogger(),
	}).WithDeadLetter(dlq)

	event, err := NewEvent("product.upserted", "7", "test", nil)
	require.NoError(t, err)
	raw, err := event.Marshal()
	require.NoError(t, err)

	c.process(context.Background(), kafka.Message{Topic: "aisearch.product.upserted", Value: raw})
	require.Len(t, dlq.msgs, 1)
	assert.ErrorContains(t, dlq.causes[0], "embedding quota")
	assert.Len(t, r.committed, 1)

	c.process(context.Background(), kafka.Message{Topic: "aisearch.product.upserted", Value: []byte("{")})
	assert.Len(t, dlq.msgs, 2)
	assert.Len(t, r.committed, 2)
}

func TestDLQProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	d := &DLQProducer{writer: w, group: "aisearch-indexer", logger: discardLogger()}

	msg := kafka.Message{Topic: "aisearch.product.deleted", Partition: 2, Offset: 41, Key: []byte("9"), Value: []byte("{}")}
	require.NoError(t, d.Publish(context.Background(), msg, errors.New("bad id")))

	require.Len(t, w.msgs, 1)
	got := w.msgs[0]
	assert.Equal(t, "aisearch.dlq.aisearch.product.deleted", got.Topic)
	assert.Equal(t, []byte("9"), got.Key)

	headers := map[string]string{}
	for _, h := range got.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "2", headers["dlq.original_partition"])
	assert.Equal(t, "41", headers["dlq.original_offset"])
	assert.Equal(t, "aisearch-indexer", headers["dlq.consumer_group"])
	assert.Equal(t, "bad id", headers["dlq.error"])

	failing := &DLQProducer{writer: &fakeWriter{err: errors.New("broker down")}, logger: discardLogger()}
	assert.ErrorContains(t, failing.Publish(context.Background(), msg, nil), "broker down")
}
