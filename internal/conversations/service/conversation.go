package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	conversationserrors "stagebook/internal/conversations/errors"
	"stagebook/internal/conversations/repository"
	"stagebook/internal/conversations/validator"
	"stagebook/pkg/config"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/model"
	"stagebook/pkg/sanitizer"
)

// ProfileResolver resolves display data for participant ids. Implementations
// may return fewer profiles than ids requested.
type ProfileResolver interface {
	Profiles(ctx context.Context, ids []string) ([]model.Profile, error)
}

type ConversationService interface {
	Get(ctx context.Context, principal *model.Principal, conversationID string) (*model.ConversationView, error)
	GetByBooking(ctx context.Context, principal *model.Principal, bookingID string) (*model.ConversationView, error)
	PostMessage(ctx context.Context, principal *model.Principal, conversationID string, req *model.PostMessageRequest) (*model.Message, error)
	ListMessages(ctx context.Context, principal *model.Principal, conversationID string, limit int, offset int64) ([]*model.Message, int64, error)
}

type conversationService struct {
	guard         AccessGuard
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	profiles      ProfileResolver
	validator     *validator.MessageValidator
	cfg           *config.Config
}

func NewConversationService(
	guard AccessGuard,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	profiles ProfileResolver,
	validator *validator.MessageValidator,
	cfg *config.Config,
) ConversationService {
	return &conversationService{
		guard:         guard,
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		validator:     validator,
		cfg:           cfg,
	}
}

func (s *conversationService) Get(ctx context.Context, principal *model.Principal, conversationID string) (*model.ConversationView, error) {
	conversation, err := s.authorize(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, conversation), nil
}

func (s *conversationService) GetByBooking(ctx context.Context, principal *model.Principal, bookingID string) (*model.ConversationView, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if bookingID == "" {
		return nil, apperrors.InvalidRequest("Booking ID cannot be empty")
	}

	conversation, err := s.conversations.FindByBookingID(ctx, bookingID)
	if err != nil {
		if !errors.Is(err, conversationserrors.ErrNotFound) {
			return nil, apperrors.Internal("Failed to load conversation", err)
		}
		// Bookings from before eager creation get theirs on first access.
		conversation, err = s.guard.EnsureForActor(ctx, bookingID, principal.ID)
		if err != nil {
			return nil, err
		}
	}

	conversation, err = s.authorize(ctx, principal, conversation.ID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, conversation), nil
}

func (s *conversationService) PostMessage(ctx context.Context, principal *model.Principal, conversationID string, req *model.PostMessageRequest) (*model.Message, error) {
	if req == nil {
		return nil, apperrors.InvalidRequest("Message body is required")
	}
	req.Body = sanitizer.NormalizeMessageBody(req.Body)
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.InvalidRequest("Invalid message").WithDetails(map[string]any{"error": err.Error()})
	}

	if _, err := s.authorize(ctx, principal, conversationID); err != nil {
		return nil, err
	}

	message := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       principal.ID,
		Body:           req.Body,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		s.cfg.Log.Error("Failed to store message", "conversation_id", conversationID, "error", err)
		return nil, apperrors.Internal("Failed to post message", err)
	}

	s.cfg.Log.Info("Message posted",
		"conversation_id", conversationID,
		"message_id", message.ID,
		"sender_id", principal.ID,
	)
	return message, nil
}

func (s *conversationService) ListMessages(ctx context.Context, principal *model.Principal, conversationID string, limit int, offset int64) ([]*model.Message, int64, error) {
	if _, err := s.authorize(ctx, principal, conversationID); err != nil {
		return nil, 0, err
	}

	var count int64
	var messages []*model.Message
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.messages.CountByConversation(ctx, conversationID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count messages", "conversation_id", conversationID, "error", errCount)
			errCount = apperrors.Internal("Failed to count messages", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		messages, errFind = s.messages.FindByConversation(ctx, conversationID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list messages", "conversation_id", conversationID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve messages", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return messages, count, nil
}

func requirePrincipal(principal *model.Principal) error {
	if principal == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if !principal.IsActive() {
		return apperrors.Forbidden("Principal is not active")
	}
	return nil
}

func (s *conversationService) authorize(ctx context.Context, principal *model.Principal, conversationID string) (*model.Conversation, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if conversationID == "" {
		return nil, apperrors.InvalidRequest("Conversation ID cannot be empty")
	}
	return s.guard.Authorize(ctx, conversationID, principal.ID)
}

// view attaches participant profiles. Lookup failures degrade to id-only
// profiles so the conversation itself is still served.
func (s *conversationService) view(ctx context.Context, conversation *model.Conversation) *model.ConversationView {
	byID := make(map[string]model.Profile, len(conversation.ParticipantIDs))

	if s.profiles != nil {
		profiles, err := s.profiles.Profiles(ctx, conversation.ParticipantIDs)
		if err != nil {
			s.cfg.Log.Warn("Participant profile lookup failed",
				"conversation_id", conversation.ID,
				"error", err,
			)
		}
		for _, p := range profiles {
			byID[p.ID] = p
		}
	}

	participants := make([]model.Profile, 0, len(conversation.ParticipantIDs))
	for _, id := range conversation.ParticipantIDs {
		if p, ok := byID[id]; ok {
			participants = append(participants, p)
			continue
		}
		participants = append(participants, model.Profile{ID: id})
	}

	return &model.ConversationView{
		Conversation: conversation,
		Participants: participants,
	}
}
