package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"stagebook/pkg/auth"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/logger"
	"stagebook/pkg/model"
)

type mockConversationService struct {
	getFunc          func(ctx context.Context, p *model.Principal, id string) (*model.ConversationView, error)
	getByBookingFunc func(ctx context.Context, p *model.Principal, bookingID string) (*model.ConversationView, error)
	postMessageFunc  func(ctx context.Context, p *model.Principal, id string, req *model.PostMessageRequest) (*model.Message, error)
	listMessagesFunc func(ctx context.Context, p *model.Principal, id string, limit int, offset int64) ([]*model.Message, int64, error)
}

func (m *mockConversationService) Get(ctx context.Context, p *model.Principal, id string) (*model.ConversationView, error) {
	return m.getFunc(ctx, p, id)
}

func (m *mockConversationService) GetByBooking(ctx context.Context, p *model.Principal, bookingID string) (*model.ConversationView, error) {
	return m.getByBookingFunc(ctx, p, bookingID)
}

func (m *mockConversationService) PostMessage(ctx context.Context, p *model.Principal, id string, req *model.PostMessageRequest) (*model.Message, error) {
	return m.postMessageFunc(ctx, p, id, req)
}

func (m *mockConversationService) ListMessages(ctx context.Context, p *model.Principal, id string, limit int, offset int64) ([]*model.Message, int64, error) {
	return m.listMessagesFunc(ctx, p, id, limit, offset)
}

func authed(r *http.Request, id string) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), &model.Principal{ID: id, Role: model.RoleHost, Status: model.PrincipalActive}))
}

func newHandler(svc *mockConversationService) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		log:     logger.Discard(),
	}
}

func TestConversationHandler_GetByID(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		withAuth   bool
		wantStatus int
	}{
		{"ok", nil, true, http.StatusOK},
		{"forbidden", apperrors.Forbidden("Not a participant of this conversation"), true, http.StatusForbidden},
		{"not found", apperrors.NotFoundWithID("Conversation", "c1"), true, http.StatusNotFound},
		{"unauthenticated", nil, false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID, gotPrincipal string
			h := newHandler(&mockConversationService{
				getFunc: func(_ context.Context, p *model.Principal, id string) (*model.ConversationView, error) {
					gotID, gotPrincipal = id, p.ID
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.ConversationView{Conversation: &model.Conversation{ID: id}}, nil
				},
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/id/c1", nil)
			if tt.withAuth {
				req = authed(req, "host-1")
			}
			rec := httptest.NewRecorder()
			h.GetByID(rec, req, httprouter.Params{{Key: "id", Value: "c1"}})

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.withAuth && (gotID != "c1" || gotPrincipal != "host-1") {
				t.Fatalf("service called with id=%q principal=%q", gotID, gotPrincipal)
			}
		})
	}
}

func TestConversationHandler_PostMessage(t *testing.T) {
	h := newHandler(&mockConversationService{
		postMessageFunc: func(_ context.Context, p *model.Principal, id string, req *model.PostMessageRequest) (*model.Message, error) {
			return &model.Message{ID: "m1", ConversationID: id, SenderID: p.ID, Body: req.Body}, nil
		},
	})

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/conversations/id/c1/messages", strings.NewReader(`{"body":"hello"}`)), "host-1")
	rec := httptest.NewRecorder()
	h.PostMessage(rec, req, httprouter.Params{{Key: "id", Value: "c1"}})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data model.Message `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Body != "hello" || resp.Data.SenderID != "host-1" {
		t.Fatalf("unexpected message: %+v", resp.Data)
	}
}

func TestConversationHandler_PostMessage_InvalidBody(t *testing.T) {
	h := newHandler(&mockConversationService{
		postMessageFunc: func(context.Context, *model.Principal, string, *model.PostMessageRequest) (*model.Message, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	})

	req := authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"unknown field"}`)), "host-1")
	rec := httptest.NewRecorder()
	h.PostMessage(rec, req, httprouter.Params{{Key: "id", Value: "c1"}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestConversationHandler_ListMessages(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	h := newHandler(&mockConversationService{
		listMessagesFunc: func(_ context.Context, _ *model.Principal, _ string, limit int, offset int64) ([]*model.Message, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Message{{ID: "m1"}}, 7, nil
		},
	})

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/conversations/id/c1/messages?limit=5&offset=2", nil), "host-1")
	rec := httptest.NewRecorder()
	h.ListMessages(rec, req, httprouter.Params{{Key: "id", Value: "c1"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 5 || gotOffset != 2 {
		t.Fatalf("expected limit=5 offset=2, got %d %d", gotLimit, gotOffset)
	}
	if !strings.Contains(rec.Body.String(), `"total_count":7`) {
		t.Fatalf("expected total_count in body: %s", rec.Body.String())
	}
}

func TestConversationHandler_RegisterRoutes(t *testing.T) {
	router := httprouter.New()
	h := newHandler(&mockConversationService{
		getByBookingFunc: func(_ context.Context, _ *model.Principal, bookingID string) (*model.ConversationView, error) {
			return &model.ConversationView{Conversation: &model.Conversation{BookingID: bookingID}}, nil
		},
	})
	h.RegisterRoutes(router)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/b1/conversation", nil), "host-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"booking_id":"b1"`) {
		t.Fatalf("expected booking id in body: %s", rec.Body.String())
	}
}
