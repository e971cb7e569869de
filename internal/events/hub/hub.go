// Package hub fans NotificationEvents out to live admin subscribers and keeps
// a bounded replay window for reconnects.
package hub

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"stagebook/pkg/logger"
	"stagebook/pkg/metrics"
	"stagebook/pkg/model"
)

const (
	DefaultReplaySize        = 200
	DefaultSubscriberBuffer  = 64
	DefaultHeartbeatInterval = 30 * time.Second
)

var (
	// ErrSlowSubscriber is reported by a subscription the hub dropped because
	// its buffer was full.
	ErrSlowSubscriber = errors.New("subscriber dropped: buffer full")
	ErrClosed         = errors.New("subscription closed")
)

type Options struct {
	ReplaySize        int
	SubscriberBuffer  int
	HeartbeatInterval time.Duration
}

type Hub struct {
	mu          sync.Mutex
	subscribers map[uint64]*Subscription
	nextID      uint64
	seq         uint64

	// ring holds the last replaySize business events, oldest at ringStart.
	ring      []model.NotificationEvent
	ringStart int

	replaySize int
	buffer     int
	heartbeat  time.Duration

	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(opts Options, log *logger.Logger, m *metrics.Metrics) *Hub {
	if opts.ReplaySize <= 0 {
		opts.ReplaySize = DefaultReplaySize
	}
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Hub{
		subscribers: make(map[uint64]*Subscription),
		ring:        make([]model.NotificationEvent, 0, opts.ReplaySize),
		replaySize:  opts.ReplaySize,
		buffer:      opts.SubscriberBuffer,
		heartbeat:   opts.HeartbeatInterval,
		log:         log,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers a live subscriber. Its first event is connected.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribeLocked(nil)
}

// SubscribeSince registers a subscriber and queues every retained event with
// seq > lastSeq after connected. Events older than the replay window are
// gone for good.
func (h *Hub) SubscribeSince(lastSeq uint64) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribeLocked(h.replayLocked(lastSeq))
}

func (h *Hub) subscribeLocked(replay []model.NotificationEvent) *Subscription {
	capacity := h.buffer
	if need := len(replay) + 1; need > capacity {
		capacity = need
	}

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		hub:    h,
		events: make(chan model.NotificationEvent, capacity),
	}

	sub.events <- model.NewEvent(model.EventConnected, map[string]any{"lastSeq": h.seq}, h.now())
	for _, evt := range replay {
		sub.events <- evt
	}

	h.subscribers[sub.id] = sub
	h.metrics.HubSubscribers(len(h.subscribers))
	return sub
}

func (h *Hub) replayLocked(lastSeq uint64) []model.NotificationEvent {
	out := make([]model.NotificationEvent, 0, len(h.ring))
	for i := 0; i < len(h.ring); i++ {
		evt := h.ring[(h.ringStart+i)%len(h.ring)]
		if evt.Seq > lastSeq {
			out = append(out, evt)
		}
	}
	return out
}

// Publish stamps the event with the next seq, retains it for replay and
// offers it to every subscriber without blocking. It returns the stamped
// event. Subscribers whose buffer is full are disconnected.
func (h *Hub) Publish(evt model.NotificationEvent) model.NotificationEvent {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = h.now()
	}
	// The ring, every subscriber and the sink share one copy; detach it from
	// the caller's map.
	evt.Data = maps.Clone(evt.Data)
	if evt.Data == nil {
		evt.Data = map[string]any{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if evt.IsReserved() {
		evt.Seq = 0
	} else {
		h.seq++
		evt.Seq = h.seq
		h.retainLocked(evt)
	}

	h.broadcastLocked(evt)
	h.metrics.HubPublished(evt.Type)
	return evt
}

// Heartbeat sends a heartbeat to every subscriber. Heartbeats are not
// retained and do not advance seq.
func (h *Hub) Heartbeat() {
	evt := model.NewEvent(model.EventHeartbeat, nil, h.now())

	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(evt)
}

// Run sends heartbeats until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Heartbeat()
		}
	}
}

func (h *Hub) retainLocked(evt model.NotificationEvent) {
	if len(h.ring) < h.replaySize {
		h.ring = append(h.ring, evt)
		return
	}
	h.ring[h.ringStart] = evt
	h.ringStart = (h.ringStart + 1) % h.replaySize
}

func (h *Hub) broadcastLocked(evt model.NotificationEvent) {
	for id, sub := range h.subscribers {
		select {
		case sub.events <- evt:
		default:
			h.removeLocked(id, ErrSlowSubscriber)
			h.metrics.HubEvicted()
			h.log.Warn("Dropped slow event subscriber", "subscriber_id", id, "event_type", evt.Type)
		}
	}
}

// Unsubscribe removes the subscription and closes its channel. Calling it
// more than once is harmless.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub.id, ErrClosed)
}

func (h *Hub) removeLocked(id uint64, reason error) {
	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	sub.err = reason
	close(sub.events)
	h.metrics.HubSubscribers(len(h.subscribers))
}

// Shutdown disconnects every subscriber.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.subscribers {
		h.removeLocked(id, ErrClosed)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// LastSeq returns the seq of the most recently published business event.
func (h *Hub) LastSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// Subscription is a single subscriber's view of the event sequence. It is
// consumed once; after the channel closes Err reports why.
type Subscription struct {
	id     uint64
	hub    *Hub
	events chan model.NotificationEvent
	err    error
}

func (s *Subscription) ID() uint64 {
	return s.id
}

// Events returns the delivery channel. It is closed when the subscription
// ends.
func (s *Subscription) Events() <-chan model.NotificationEvent {
	return s.events
}

// Next blocks for the next event. It returns ctx.Err() when ctx is done and
// Err() once the subscription has ended.
func (s *Subscription) Next(ctx context.Context) (model.NotificationEvent, error) {
	select {
	case <-ctx.Done():
		return model.NotificationEvent{}, ctx.Err()
	case evt, ok := <-s.events:
		if !ok {
			return model.NotificationEvent{}, s.Err()
		}
		return evt, nil
	}
}

// Err is nil while the subscription is live.
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.err
}

func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}
