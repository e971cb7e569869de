package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	conversationserrors "stagebook/internal/conversations/errors"
	"stagebook/pkg/model"
)

type memoryConversationRepository struct {
	mu        sync.RWMutex
	byID      map[string]*model.Conversation
	byBooking map[string]string
}

// NewMemoryConversationRepository backs STORAGE_DRIVER=memory and tests.
func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{
		byID:      make(map[string]*model.Conversation),
		byBooking: make(map[string]string),
	}
}

func (r *memoryConversationRepository) Create(_ context.Context, conversation *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byBooking[conversation.BookingID]; exists {
		return conversationserrors.ErrAlreadyExists
	}
	if _, exists := r.byID[conversation.ID]; exists {
		return conversationserrors.ErrAlreadyExists
	}

	stored := cloneConversation(conversation)
	r.byID[stored.ID] = stored
	r.byBooking[stored.BookingID] = stored.ID
	return nil
}

func (r *memoryConversationRepository) FindByID(_ context.Context, id string) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, conversationserrors.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (r *memoryConversationRepository) FindByBookingID(_ context.Context, bookingID string) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byBooking[bookingID]
	if !ok {
		return nil, conversationserrors.ErrNotFound
	}
	return cloneConversation(r.byID[id]), nil
}

func (r *memoryConversationRepository) UpdateParticipants(_ context.Context, id string, participantIDs []string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return conversationserrors.ErrNotFound
	}
	c.ParticipantIDs = append([]string(nil), participantIDs...)
	c.UpdatedAt = at
	return nil
}

func cloneConversation(c *model.Conversation) *model.Conversation {
	cp := *c
	cp.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	return &cp
}

type memoryMessageRepository struct {
	mu             sync.RWMutex
	byConversation map[string][]*model.Message
}

func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{
		byConversation: make(map[string][]*model.Message),
	}
}

func (r *memoryMessageRepository) Create(_ context.Context, message *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *message
	msgs := append(r.byConversation[message.ConversationID], &cp)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	r.byConversation[message.ConversationID] = msgs
	return nil
}

func (r *memoryMessageRepository) FindByConversation(_ context.Context, conversationID string, limit int, offset int64) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.byConversation[conversationID]
	result := []*model.Message{}
	if offset >= int64(len(msgs)) {
		return result, nil
	}
	end := len(msgs)
	if limit > 0 && int(offset)+limit < end {
		end = int(offset) + limit
	}
	for _, m := range msgs[offset:end] {
		cp := *m
		result = append(result, &cp)
	}
	return result, nil
}

func (r *memoryMessageRepository) CountByConversation(_ context.Context, conversationID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byConversation[conversationID])), nil
}
