package payments

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	httputil "stagebook/pkg/http"
	"stagebook/pkg/logger"
)

const WebhookPath = "/api/v1/webhooks/payments"

type WebhookHandler struct {
	adapter *Adapter
	log     *logger.Logger
}

func NewWebhookHandler(adapter *Adapter, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		adapter: adapter,
		log:     log,
	}
}

// Receive expects the signature middleware to have run already.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var pe ProcessorEvent
	if err := httputil.DecodeJSON(r, &pe); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Receive", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	outcome, err := h.adapter.Handle(r.Context(), pe)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Receive", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]string{"id": pe.ID, "outcome": string(outcome)}); err != nil {
		h.log.Error("failed to write success response", "handler", "Receive", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(WebhookPath, h.Receive)
}
