// Package dispatch is the single publish entry point for notification
// events. Every event goes to the live hub synchronously and is then queued
// for the external sink, which never blocks the caller.
package dispatch

import (
	"context"
	"time"

	"stagebook/internal/events/sink"
	"stagebook/pkg/logger"
	"stagebook/pkg/metrics"
	"stagebook/pkg/model"
)

const (
	DefaultQueueSize   = 1024
	DefaultSendTimeout = 5 * time.Second
)

// Broadcaster stamps and fans out an event, returning it with its sequence.
type Broadcaster interface {
	Publish(evt model.NotificationEvent) model.NotificationEvent
}

type Dispatcher struct {
	hub         Broadcaster
	sink        sink.Sink
	queue       chan model.NotificationEvent
	sendTimeout time.Duration
	log         *logger.Logger
	metrics     *metrics.Metrics
}

func New(hub Broadcaster, s sink.Sink, queueSize int, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	if s == nil {
		s = sink.Nop{}
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		hub:         hub,
		sink:        s,
		queue:       make(chan model.NotificationEvent, queueSize),
		sendTimeout: DefaultSendTimeout,
		log:         log.Component("dispatcher"),
		metrics:     m,
	}
}

func (d *Dispatcher) Publish(evt model.NotificationEvent) {
	stamped := d.hub.Publish(evt)
	if stamped.IsReserved() {
		return
	}
	if _, ok := d.sink.(sink.Nop); ok {
		return
	}

	select {
	case d.queue <- stamped:
	default:
		d.metrics.SinkDelivery(d.sink.Name(), metrics.SinkDropped)
		d.log.Warn("event sink queue full, dropping event",
			"sink", d.sink.Name(),
			"type", stamped.Type,
			"seq", stamped.Seq,
		)
	}
}

// Run delivers queued events until ctx is done, then drains what is left
// with a fresh deadline per event and closes the sink.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case evt := <-d.queue:
			d.deliver(ctx, evt)
		case <-ctx.Done():
			d.drain()
			if err := d.sink.Close(); err != nil {
				d.log.Error("failed to close event sink", "sink", d.sink.Name(), "error", err)
			}
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case evt := <-d.queue:
			d.deliver(context.Background(), evt)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, evt model.NotificationEvent) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.sink.Send(sendCtx, evt); err != nil {
		d.metrics.SinkDelivery(d.sink.Name(), metrics.SinkFailed)
		d.log.Error("failed to deliver event",
			"sink", d.sink.Name(),
			"type", evt.Type,
			"seq", evt.Seq,
			"error", err,
		)
		return
	}
	d.metrics.SinkDelivery(d.sink.Name(), metrics.SinkDelivered)
}
