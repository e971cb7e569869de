package payments

import (
	"context"
	"encoding/json"

	"stagebook/pkg/kafka"
)

// MessageHandler adapts the payments topic to the adapter. Undecodable
// messages are permanent failures and go straight to the DLQ.
func (a *Adapter) MessageHandler() kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var pe ProcessorEvent
		if err := json.Unmarshal(msg.Value, &pe); err != nil {
			return kafka.NewPermanentError("decode payment event", err)
		}
		if pe.ID == "" {
			pe.ID = msg.Headers[kafka.HeaderEventID]
		}
		if _, err := a.Handle(ctx, pe); err != nil {
			return kafka.NewPermanentError("handle payment event", err)
		}
		return nil
	}
}
