package repository

import (
	"context"
	"sort"
	"sync"

	bookingserrors "stagebook/internal/bookings/errors"
	"stagebook/pkg/model"
)

type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
}

// NewMemoryBookingRepository backs STORAGE_DRIVER=memory and tests.
func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		bookings: make(map[string]*model.Booking),
	}
}

func (r *memoryBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, bookingserrors.ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *memoryBookingRepository) FindForParticipant(_ context.Context, participantID string, limit int, offset int64) ([]*model.Booking, error) {
	matched := r.matching(participantID)

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= int64(len(matched)) {
		return []*model.Booking{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryBookingRepository) CountForParticipant(_ context.Context, participantID string) (int64, error) {
	return int64(len(r.matching(participantID))), nil
}

func (r *memoryBookingRepository) UpdateStatus(_ context.Context, id string, change model.StatusChange) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if b.Status != change.From {
		return nil, bookingserrors.ErrStatusConflict
	}

	at := change.At
	b.Status = change.To
	b.UpdatedAt = at
	b.LastTransitionBy = change.Actor
	b.LastTransitionAt = &at
	return cloneBooking(b), nil
}

func (r *memoryBookingRepository) matching(participantID string) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if participantID == "" || b.IsParticipant(participantID) {
			result = append(result, cloneBooking(b))
		}
	}
	return result
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	if b.LastTransitionAt != nil {
		at := *b.LastTransitionAt
		c.LastTransitionAt = &at
	}
	return &c
}
