package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMessageID struct {
	pulsar.MessageID
	id string
}

func (m testMessageID) String() string { return m.id }

type testMessage struct {
	pulsar.Message
	id      string
	payload []byte
}

func (m *testMessage) Payload() []byte      { return m.payload }
func (m *testMessage) ID() pulsar.MessageID { return testMessageID{id: m.id} }

type receiveResult struct {
	msg pulsar.Message
	err error
}

// scriptedSource hands out results in order, then cancels the run.
type scriptedSource struct {
	mu      sync.Mutex
	results []receiveResult
	cancel  context.CancelFunc
	acked   []string
	nacked  []string
	closed  bool
}

func (s *scriptedSource) Receive(ctx context.Context) (pulsar.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.msg, r.err
}

func (s *scriptedSource) Ack(msg pulsar.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, msg.ID().String())
	return nil
}

func (s *scriptedSource) Nack(msg pulsar.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nacked = append(s.nacked, msg.ID().String())
}

func (s *scriptedSource) Close() { s.closed = true }

func eventMessage(t *testing.T, id string, e DirectoryEvent) pulsar.Message {
	t.Helper()
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	return &testMessage{id: id, payload: payload}
}

func TestConsume_AcksHandledAndMalformed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{cancel: cancel, results: []receiveResult{
		{msg: eventMessage(t, "1", NewEvent(UserCreated, "jsmith", []string{"admins"}))},
		{msg: &testMessage{id: "2", payload: []byte("not json")}},
		{msg: eventMessage(t, "3", NewEvent(GroupDeleted, "admins", nil))},
	}}
	c := &EventConsumer{source: src, retry: backoff.NewConstantBackOff(time.Millisecond)}

	var seen []string
	err := c.Consume(ctx, func(ctx context.Context, e DirectoryEvent) error {
		seen = append(seen, e.Type+":"+e.Subject)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{UserCreated + ":jsmith", GroupDeleted + ":admins"}, seen)
	assert.Equal(t, []string{"1", "2", "3"}, src.acked)
	assert.Empty(t, src.nacked)
}

func TestConsume_NacksHandlerFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{cancel: cancel, results: []receiveResult{
		{msg: eventMessage(t, "1", NewEvent(UserDeleted, "jsmith", nil))},
	}}
	c := &EventConsumer{source: src, retry: backoff.NewConstantBackOff(time.Millisecond)}

	err := c.Consume(ctx, func(ctx context.Context, e DirectoryEvent) error {
		return errors.New("audit sink unavailable")
	})
	require.NoError(t, err)

	assert.Empty(t, src.acked)
	assert.Equal(t, []string{"1"}, src.nacked)
}

func TestConsume_RetriesReceiveErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{cancel: cancel, results: []receiveResult{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
		{msg: eventMessage(t, "1", NewEvent(GroupCreated, "admins", nil))},
	}}
	c := &EventConsumer{source: src, retry: backoff.NewConstantBackOff(time.Millisecond)}

	handled := 0
	err := c.Consume(ctx, func(ctx context.Context, e DirectoryEvent) error {
		handled++
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, handled)
	assert.Equal(t, []string{"1"}, src.acked)
}

func TestConsume_GivesUpWhenBackOffStops(t *testing.T) {
	src := &scriptedSource{cancel: func() {}, results: []receiveResult{
		{err: errors.New("connection reset")},
	}}
	c := &EventConsumer{source: src, retry: &backoff.StopBackOff{}}

	err := c.Consume(context.Background(), func(ctx context.Context, e DirectoryEvent) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestEventConsumer_Close(t *testing.T) {
	src := &scriptedSource{}
	c := &EventConsumer{source: src}
	c.Close()
	assert.True(t, src.closed)
}
