package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagebook/pkg/logger"
	"stagebook/pkg/metrics"
	"stagebook/pkg/model"
)

func newHub(opts Options) *Hub {
	return New(opts, logger.Discard(), metrics.New())
}

func paymentEvent() model.NotificationEvent {
	return model.NewPaymentEvent(true, 5000, "gig fee", time.Now())
}

func next(t *testing.T, sub *Subscription) model.NotificationEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	evt, err := sub.Next(ctx)
	require.NoError(t, err)
	return evt
}

func TestSubscribe_ConnectedFirst(t *testing.T) {
	h := newHub(Options{})
	h.Publish(paymentEvent())

	sub := h.Subscribe()
	defer sub.Close()

	evt := next(t, sub)
	assert.Equal(t, model.EventConnected, evt.Type)
	assert.Zero(t, evt.Seq)

	h.Publish(paymentEvent())
	live := next(t, sub)
	assert.Equal(t, model.EventPaymentSuccess, live.Type)
	assert.EqualValues(t, 2, live.Seq, "plain Subscribe does not replay")
}

func TestPublish_MonotonicSeqToEverySubscriber(t *testing.T) {
	h := newHub(Options{})
	a, b := h.Subscribe(), h.Subscribe()
	next(t, a)
	next(t, b)

	for i := 0; i < 3; i++ {
		stamped := h.Publish(paymentEvent())
		assert.EqualValues(t, i+1, stamped.Seq)
	}

	for _, sub := range []*Subscription{a, b} {
		for i := 1; i <= 3; i++ {
			assert.EqualValues(t, i, next(t, sub).Seq)
		}
	}
	assert.EqualValues(t, 3, h.LastSeq())
}

func TestSubscribeSince_ReplaysNewerEventsThenLive(t *testing.T) {
	h := newHub(Options{})
	for i := 0; i < 5; i++ {
		h.Publish(paymentEvent())
	}

	sub := h.SubscribeSince(3)
	defer sub.Close()

	assert.Equal(t, model.EventConnected, next(t, sub).Type)
	assert.EqualValues(t, 4, next(t, sub).Seq)
	assert.EqualValues(t, 5, next(t, sub).Seq)

	h.Publish(paymentEvent())
	assert.EqualValues(t, 6, next(t, sub).Seq)
}

func TestReplayWindowIsBounded(t *testing.T) {
	h := newHub(Options{ReplaySize: 3})
	for i := 0; i < 5; i++ {
		h.Publish(paymentEvent())
	}

	sub := h.SubscribeSince(0)
	defer sub.Close()

	next(t, sub)
	var seqs []uint64
	for i := 0; i < 3; i++ {
		seqs = append(seqs, next(t, sub).Seq)
	}
	assert.Equal(t, []uint64{3, 4, 5}, seqs)
	assert.Empty(t, sub.Events())
}

func TestReplayLargerThanBufferStillFits(t *testing.T) {
	h := newHub(Options{ReplaySize: 10, SubscriberBuffer: 2})
	for i := 0; i < 10; i++ {
		h.Publish(paymentEvent())
	}

	sub := h.SubscribeSince(0)
	defer sub.Close()
	assert.Len(t, sub.Events(), 11)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := newHub(Options{SubscriberBuffer: 2})
	slow := h.Subscribe()
	fast := h.Subscribe()
	next(t, fast)

	h.Publish(paymentEvent())
	next(t, fast)
	h.Publish(paymentEvent())
	next(t, fast)

	assert.Equal(t, 1, h.SubscriberCount())

	assert.Equal(t, model.EventConnected, next(t, slow).Type)
	assert.EqualValues(t, 1, next(t, slow).Seq)
	_, err := slow.Next(context.Background())
	assert.ErrorIs(t, err, ErrSlowSubscriber)

	slow.Close()
	assert.Equal(t, 1, h.SubscriberCount())
}

func TestHeartbeatIsNotRetained(t *testing.T) {
	h := newHub(Options{})
	sub := h.Subscribe()
	next(t, sub)

	h.Heartbeat()
	hb := next(t, sub)
	assert.Equal(t, model.EventHeartbeat, hb.Type)
	assert.Zero(t, hb.Seq)
	assert.Zero(t, h.LastSeq())

	replay := h.SubscribeSince(0)
	defer replay.Close()
	next(t, replay)
	assert.Empty(t, replay.Events())
}

func TestRunSendsHeartbeats(t *testing.T) {
	h := newHub(Options{HeartbeatInterval: 10 * time.Millisecond})
	sub := h.Subscribe()
	next(t, sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	assert.Equal(t, model.EventHeartbeat, next(t, sub).Type)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := newHub(Options{})
	sub := h.Subscribe()

	sub.Close()
	sub.Close()
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	assert.Zero(t, h.SubscriberCount())
	next(t, sub)
	_, err := sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	h.Publish(paymentEvent())
}

func TestNextHonorsContext(t *testing.T) {
	h := newHub(Options{})
	sub := h.Subscribe()
	defer sub.Close()
	next(t, sub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sub.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, sub.Err())
}

func TestShutdownClosesEverySubscription(t *testing.T) {
	h := newHub(Options{})
	subs := []*Subscription{h.Subscribe(), h.Subscribe()}

	h.Shutdown()

	assert.Zero(t, h.SubscriberCount())
	for _, sub := range subs {
		next(t, sub)
		_, err := sub.Next(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	const publishers, perPublisher = 8, 100
	h := newHub(Options{SubscriberBuffer: publishers*perPublisher + 1})

	subs := make([]*Subscription, 4)
	for i := range subs {
		subs[i] = h.Subscribe()
	}

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				h.Publish(paymentEvent())
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			h.Subscribe().Close()
		}
	}()
	wg.Wait()

	for _, sub := range subs {
		next(t, sub)
		var last uint64
		for i := 0; i < publishers*perPublisher; i++ {
			evt := next(t, sub)
			require.Greater(t, evt.Seq, last)
			last = evt.Seq
		}
		sub.Close()
	}
	assert.EqualValues(t, publishers*perPublisher, h.LastSeq())
}

func TestPublish_DetachesDataFromCaller(t *testing.T) {
	h := newHub(Options{})
	sub := h.Subscribe()
	defer sub.Close()
	next(t, sub)

	data := map[string]any{"description": "gig fee"}
	h.Publish(model.NewEvent(model.EventPaymentSuccess, data, time.Now()))
	data["description"] = "rewritten"

	live := next(t, sub)
	assert.Equal(t, "gig fee", live.Data["description"])

	replayed := h.SubscribeSince(0)
	defer replayed.Close()
	next(t, replayed)
	assert.Equal(t, "gig fee", next(t, replayed).Data["description"])
}
