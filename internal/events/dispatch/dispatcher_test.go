package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagebook/internal/events/hub"
	"stagebook/pkg/logger"
	"stagebook/pkg/model"
)

type recordingSink struct {
	mu     sync.Mutex
	sent   []model.NotificationEvent
	err    error
	block  chan struct{}
	closed bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(ctx context.Context, evt model.NotificationEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, evt)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) snapshot() []model.NotificationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.NotificationEvent(nil), s.sent...)
}

func TestDispatcher_PublishReachesHubAndSink(t *testing.T) {
	h := hub.New(hub.Options{}, logger.Discard(), nil)
	sub := h.Subscribe()
	defer sub.Close()
	<-sub.Events()

	s := &recordingSink{}
	d := New(h, s, 8, logger.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Publish(model.NewSubscriptionCanceledEvent(time.Now()))

	live := <-sub.Events()
	assert.Equal(t, model.EventSubscriptionCanceled, live.Type)
	assert.EqualValues(t, 1, live.Seq)

	assert.Eventually(t, func() bool { return len(s.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, s.snapshot()[0].Seq)

	cancel()
	<-done
	assert.True(t, s.closed)
}

func TestDispatcher_HeartbeatsStayLocal(t *testing.T) {
	h := hub.New(hub.Options{}, logger.Discard(), nil)
	s := &recordingSink{}
	d := New(h, s, 8, logger.Discard(), nil)

	d.Publish(model.NewEvent(model.EventHeartbeat, nil, time.Now()))
	assert.Empty(t, d.queue)
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	h := hub.New(hub.Options{}, logger.Discard(), nil)
	s := &recordingSink{}
	d := New(h, s, 2, logger.Discard(), nil)

	for i := 0; i < 5; i++ {
		d.Publish(model.NewPaymentEvent(true, int64(i), "fee", time.Now()))
	}

	assert.Len(t, d.queue, 2)
	assert.EqualValues(t, 5, h.LastSeq())
}

func TestDispatcher_SinkFailureIsLogged(t *testing.T) {
	h := hub.New(hub.Options{}, logger.Discard(), nil)
	s := &recordingSink{err: errors.New("broker down")}
	d := New(h, s, 4, logger.Discard(), nil)

	d.Publish(model.NewPaymentEvent(false, 10, "fee", time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	assert.Empty(t, s.snapshot())
	assert.Empty(t, d.queue)
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	h := hub.New(hub.Options{}, logger.Discard(), nil)
	s := &recordingSink{}
	d := New(h, s, 8, logger.Discard(), nil)

	for i := 0; i < 3; i++ {
		d.Publish(model.NewSubscriptionUpdatedEvent("renewed", time.Now()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	sent := s.snapshot()
	require.Len(t, sent, 3)
	for i, evt := range sent {
		assert.EqualValues(t, i+1, evt.Seq)
	}
}

func TestDispatcher_NopSinkSkipsQueue(t *testing.T) {
	h := hub.New(hub.Options{}, logger.Discard(), nil)
	d := New(h, nil, 1, logger.Discard(), nil)

	d.Publish(model.NewSubscriptionCanceledEvent(time.Now()))
	d.Publish(model.NewSubscriptionCanceledEvent(time.Now()))

	assert.Empty(t, d.queue)
	assert.EqualValues(t, 2, h.LastSeq())
}
