package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	bookingserrors "stagebook/internal/bookings/errors"
	"stagebook/internal/bookings/repository"
	"stagebook/internal/bookings/validator"
	"stagebook/pkg/config"
	mongotx "stagebook/pkg/db/mongo"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/metrics"
	"stagebook/pkg/model"
	"stagebook/pkg/sanitizer"
)

const requestedDateLayout = "2006-01-02"

// ConversationEnsurer keeps the booking's conversation in line with its
// parties.
type ConversationEnsurer interface {
	EnsureConversation(ctx context.Context, bookingID string) (*model.Conversation, error)
}

// Publisher receives events after the write that produced them committed.
type Publisher interface {
	Publish(event model.NotificationEvent)
}

type BookingService interface {
	Create(ctx context.Context, principal *model.Principal, req *model.CreateBookingRequest) (*model.Booking, error)
	Get(ctx context.Context, principal *model.Principal, id string) (*model.Booking, error)
	List(ctx context.Context, principal *model.Principal, limit int, offset int64) ([]*model.Booking, int64, error)
	Transition(ctx context.Context, principal *model.Principal, id string, action model.BookingAction) (*model.Booking, error)
}

type bookingService struct {
	repo          repository.BookingRepository
	conversations ConversationEnsurer
	publisher     Publisher
	txManager     mongotx.TransactionManager
	validator     *validator.BookingValidator
	metrics       *metrics.Metrics
	cfg           *config.Config
	locks         *keyedMutex
	now           func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	conversations ConversationEnsurer,
	publisher Publisher,
	txManager mongotx.TransactionManager,
	validator *validator.BookingValidator,
	m *metrics.Metrics,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:          repo,
		conversations: conversations,
		publisher:     publisher,
		txManager:     txManager,
		validator:     validator,
		metrics:       m,
		cfg:           cfg,
		locks:         newKeyedMutex(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) Create(ctx context.Context, principal *model.Principal, req *model.CreateBookingRequest) (*model.Booking, error) {
	if err := requireActive(principal); err != nil {
		return nil, err
	}
	if principal.IsAdmin() {
		return nil, apperrors.Forbidden("Admins cannot request bookings")
	}
	if req == nil {
		return nil, apperrors.InvalidRequest("Booking request is required")
	}

	s.sanitize(req)
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "requester_id", principal.ID, "error", err)
		return nil, apperrors.InvalidRequest("Invalid booking request").WithDetails(map[string]any{"error": err.Error()})
	}
	if req.CounterpartyID == principal.ID {
		return nil, apperrors.InvalidRequest("Requester and counterparty must differ")
	}

	now := s.now()
	requested, err := time.Parse(requestedDateLayout, req.RequestedDate)
	if err != nil {
		return nil, apperrors.InvalidRequest("requested_date must be YYYY-MM-DD")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if requested.Before(today) {
		return nil, apperrors.InvalidRequest("requested_date cannot be in the past")
	}

	at := now.Truncate(time.Millisecond)
	booking := &model.Booking{
		ID:             uuid.NewString(),
		RequesterID:    principal.ID,
		CounterpartyID: req.CounterpartyID,
		Status:         model.StatusPending,
		RequestedDate:  req.RequestedDate,
		CreatedAt:      at,
		UpdatedAt:      at,
	}

	err = s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		if _, err := s.conversations.EnsureConversation(txCtx, booking.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "requester_id", principal.ID, "error", err)
		return nil, err
	}

	s.publisher.Publish(model.NewBookingEvent(model.EventBookingRequest, booking, principal.ID, at))

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"requester_id", booking.RequesterID,
		"counterparty_id", booking.CounterpartyID,
		"requested_date", booking.RequestedDate,
	)
	return booking, nil
}

func (s *bookingService) Get(ctx context.Context, principal *model.Principal, id string) (*model.Booking, error) {
	if err := requireActive(principal); err != nil {
		return nil, err
	}

	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.IsAdmin() && !booking.IsParticipant(principal.ID) {
		return nil, apperrors.Forbidden("Not a participant of this booking")
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, principal *model.Principal, limit int, offset int64) ([]*model.Booking, int64, error) {
	if err := requireActive(principal); err != nil {
		return nil, 0, err
	}

	participantID := principal.ID
	if principal.IsAdmin() {
		participantID = ""
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountForParticipant(ctx, participantID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "principal_id", principal.ID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindForParticipant(ctx, participantID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "principal_id", principal.ID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Transition(ctx context.Context, principal *model.Principal, id string, action model.BookingAction) (*model.Booking, error) {
	booking, err := s.transition(ctx, principal, id, action)
	if err != nil {
		s.metrics.Transition(string(action), resultLabel(err))
		return nil, err
	}
	s.metrics.Transition(string(action), "ok")
	return booking, nil
}

func (s *bookingService) transition(ctx context.Context, principal *model.Principal, id string, action model.BookingAction) (*model.Booking, error) {
	if err := requireActive(principal); err != nil {
		return nil, err
	}
	if !action.IsValid() {
		return nil, apperrors.InvalidRequest("Unknown booking action").WithDetails(map[string]any{"action": string(action)})
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !booking.IsParticipant(principal.ID) {
		// Admins may force a cancellation; nothing else.
		if !principal.IsAdmin() || action != model.ActionCancel {
			s.cfg.Log.Warn("Transition by non-participant rejected",
				"id", id,
				"actor_id", principal.ID,
				"action", action,
			)
			return nil, apperrors.Forbidden("Not a participant of this booking")
		}
	}

	next, ok := booking.Status.Next(action)
	if !ok {
		return nil, apperrors.InvalidTransition(string(action), string(booking.Status))
	}

	if action.RequiresCounterparty() && principal.ID != booking.CounterpartyID {
		return nil, apperrors.Forbidden("Only the counterparty can " + string(action) + " a booking request")
	}

	change := model.StatusChange{
		From:  booking.Status,
		To:    next,
		Actor: principal.ID,
		At:    s.now().Truncate(time.Millisecond),
	}

	var updated *model.Booking
	err = s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		result, err := s.repo.UpdateStatus(txCtx, id, change)
		if err != nil {
			return s.translateUpdateError(txCtx, id, action, err)
		}
		if _, err := s.conversations.EnsureConversation(txCtx, id); err != nil {
			return err
		}
		updated = result
		return nil
	})
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
			s.cfg.Log.Error("Failed to apply booking transition", "id", id, "action", action, "error", err)
		}
		return nil, err
	}

	s.publisher.Publish(model.NewBookingEvent(model.BookingEventType(action), updated, principal.ID, change.At))

	s.cfg.Log.Info("Booking transitioned",
		"id", id,
		"action", action,
		"from", change.From,
		"to", change.To,
		"actor_id", principal.ID,
	)
	return updated, nil
}

// translateUpdateError reports a lost compare-and-set as an invalid
// transition carrying the status that won.
func (s *bookingService) translateUpdateError(ctx context.Context, id string, action model.BookingAction, err error) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrStatusConflict):
		current, findErr := s.repo.FindByID(ctx, id)
		if findErr != nil {
			return apperrors.Internal("Failed to reload booking", findErr)
		}
		return apperrors.InvalidTransition(string(action), string(current.Status))
	default:
		return apperrors.Internal("Failed to update booking status", err)
	}
}

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidRequest("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) sanitize(req *model.CreateBookingRequest) {
	req.CounterpartyID = sanitizer.TrimAndNormalize(req.CounterpartyID)
	req.RequestedDate = sanitizer.TrimAndNormalize(req.RequestedDate)
}

func requireActive(principal *model.Principal) error {
	if principal == nil || principal.ID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if !principal.IsActive() {
		return apperrors.Forbidden("Account is not active")
	}
	return nil
}

func resultLabel(err error) string {
	return apperrors.AsAppError(err).Code
}
