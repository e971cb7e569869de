package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	bookingserrors "stagebook/internal/bookings/errors"
	conversationserrors "stagebook/internal/conversations/errors"
	"stagebook/internal/conversations/repository"
	"stagebook/pkg/config"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/model"
	"stagebook/pkg/sanitizer"
)

// conversationNamespace seeds the name-based conversation ids. Changing it
// orphans every stored conversation.
var conversationNamespace = uuid.MustParse("8d5e3c1a-4f2b-5a6c-9e7d-0b1f2a3c4d5e")

// ConversationID derives the conversation id of a booking. One booking maps
// to exactly one id.
func ConversationID(bookingID string) string {
	return uuid.NewSHA1(conversationNamespace, []byte(bookingID)).String()
}

// BookingReader is the read side of the booking store the guard derives
// participants from.
type BookingReader interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
}

type AccessGuard interface {
	EnsureConversation(ctx context.Context, bookingID string) (*model.Conversation, error)
	EnsureForActor(ctx context.Context, bookingID, actorID string) (*model.Conversation, error)
	CanAccess(ctx context.Context, conversationID, actorID string) (bool, error)
	Authorize(ctx context.Context, conversationID, actorID string) (*model.Conversation, error)
}

type accessGuard struct {
	bookings BookingReader
	repo     repository.ConversationRepository
	cfg      *config.Config
	now      func() time.Time
}

func NewAccessGuard(bookings BookingReader, repo repository.ConversationRepository, cfg *config.Config) AccessGuard {
	return &accessGuard{
		bookings: bookings,
		repo:     repo,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Participants returns the sorted, de-duplicated participant set of a booking.
func Participants(b *model.Booking, observerID string) []string {
	ids := []string{b.RequesterID, b.CounterpartyID}
	if observerID != "" {
		ids = append(ids, observerID)
	}
	return sanitizer.NormalizeIDSet(ids)
}

func (g *accessGuard) EnsureConversation(ctx context.Context, bookingID string) (*model.Conversation, error) {
	booking, err := g.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return g.ensure(ctx, bookingID, Participants(booking, g.cfg.ConversationObserverID))
}

// EnsureForActor is EnsureConversation for a read on behalf of actorID: a
// non-participant is refused before anything is written.
func (g *accessGuard) EnsureForActor(ctx context.Context, bookingID, actorID string) (*model.Conversation, error) {
	booking, err := g.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	participants := Participants(booking, g.cfg.ConversationObserverID)
	if !slices.Contains(participants, actorID) {
		g.cfg.Log.Warn("Conversation access denied",
			"booking_id", bookingID,
			"actor_id", actorID,
		)
		return nil, apperrors.Forbidden("Not a participant of this conversation")
	}
	return g.ensure(ctx, bookingID, participants)
}

func (g *accessGuard) loadBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	booking, err := g.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Booking", bookingID)
		}
		return nil, apperrors.Internal("Failed to load booking for conversation", err)
	}
	return booking, nil
}

func (g *accessGuard) ensure(ctx context.Context, bookingID string, participants []string) (*model.Conversation, error) {
	existing, err := g.repo.FindByBookingID(ctx, bookingID)
	switch {
	case errors.Is(err, conversationserrors.ErrNotFound):
		created, createErr := g.create(ctx, bookingID, participants)
		if createErr == nil {
			return created, nil
		}
		if !errors.Is(createErr, conversationserrors.ErrAlreadyExists) {
			return nil, apperrors.Internal("Failed to create conversation", createErr)
		}
		existing, err = g.repo.FindByBookingID(ctx, bookingID)
		if err != nil {
			return nil, apperrors.Internal("Failed to load conversation", err)
		}
	case err != nil:
		return nil, apperrors.Internal("Failed to load conversation", err)
	}

	if sanitizer.EqualIDSets(existing.ParticipantIDs, participants) {
		return existing, nil
	}

	at := g.now()
	if err := g.repo.UpdateParticipants(ctx, existing.ID, participants, at); err != nil {
		return nil, apperrors.Internal("Failed to update conversation participants", err)
	}
	existing.ParticipantIDs = participants
	existing.UpdatedAt = at

	g.cfg.Log.Info("Conversation participants updated",
		"conversation_id", existing.ID,
		"booking_id", bookingID,
		"participants", len(participants),
	)
	return existing, nil
}

func (g *accessGuard) create(ctx context.Context, bookingID string, participants []string) (*model.Conversation, error) {
	now := g.now()
	conversation := &model.Conversation{
		ID:             ConversationID(bookingID),
		BookingID:      bookingID,
		ParticipantIDs: participants,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := g.repo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	g.cfg.Log.Info("Conversation created",
		"conversation_id", conversation.ID,
		"booking_id", bookingID,
	)
	return conversation, nil
}

// CanAccess reports whether actorID is a participant. An unknown conversation
// is a NotFound error rather than false.
func (g *accessGuard) CanAccess(ctx context.Context, conversationID, actorID string) (bool, error) {
	conversation, err := g.load(ctx, conversationID)
	if err != nil {
		return false, err
	}
	return conversation.HasParticipant(actorID), nil
}

// Authorize returns the conversation when actorID may access it. Non-participants
// get Forbidden; existence is not hidden from them.
func (g *accessGuard) Authorize(ctx context.Context, conversationID, actorID string) (*model.Conversation, error) {
	conversation, err := g.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		g.cfg.Log.Warn("Conversation access denied",
			"conversation_id", conversationID,
			"actor_id", actorID,
		)
		return nil, apperrors.Forbidden("Not a participant of this conversation")
	}
	return conversation, nil
}

func (g *accessGuard) load(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conversation, err := g.repo.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, conversationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Conversation", conversationID)
		}
		return nil, apperrors.Internal("Failed to load conversation", err)
	}
	return conversation, nil
}
