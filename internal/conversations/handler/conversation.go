package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"stagebook/internal/conversations/service"
	httputil "stagebook/pkg/http"
	"stagebook/pkg/logger"
	"stagebook/pkg/model"
)

type ConversationHandler struct {
	service service.ConversationService
	log     *logger.Logger
}

func NewConversationHandler(service service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log,
	}
}

func (h *ConversationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.Principal(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	view, err := h.service.Get(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ConversationHandler) GetByBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.Principal(r)
	if err != nil {
		h.writeError(w, "GetByBooking", err)
		return
	}

	view, err := h.service.GetByBooking(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByBooking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.Principal(r)
	if err != nil {
		h.writeError(w, "ListMessages", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMessages", err)
		return
	}

	messages, total, err := h.service.ListMessages(r.Context(), principal, ps.ByName("id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListMessages", err)
		return
	}

	if err := httputil.WritePaginated(w, messages, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMessages", "operation", "WritePaginated", "error", err)
	}
}

func (h *ConversationHandler) PostMessage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.Principal(r)
	if err != nil {
		h.writeError(w, "PostMessage", err)
		return
	}

	var req model.PostMessageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "PostMessage", err)
		return
	}

	message, err := h.service.PostMessage(r.Context(), principal, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "PostMessage", err)
		return
	}

	if err := httputil.WriteCreated(w, message); err != nil {
		h.log.Error("failed to write created response", "handler", "PostMessage", "operation", "WriteCreated", "error", err)
	}
}

func (h *ConversationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ConversationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings/id/:id/conversation", h.GetByBooking)
	router.GET("/api/v1/conversations/id/:id", h.GetByID)
	router.GET("/api/v1/conversations/id/:id/messages", h.ListMessages)
	router.POST("/api/v1/conversations/id/:id/messages", h.PostMessage)
}
