package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	bookingserrors "stagebook/internal/bookings/errors"
	"stagebook/pkg/model"
)

func seed(t *testing.T, repo BookingRepository, n int) {
	t.Helper()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		counterparty := "host-1"
		if i%2 == 1 {
			counterparty = "host-2"
		}
		err := repo.Create(context.Background(), &model.Booking{
			ID:             fmt.Sprintf("b-%02d", i),
			RequesterID:    "artist-1",
			CounterpartyID: counterparty,
			Status:         model.StatusPending,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestMemoryBookingRepository_FindForParticipant(t *testing.T) {
	repo := NewMemoryBookingRepository()
	seed(t, repo, 5)
	ctx := context.Background()

	tests := []struct {
		name        string
		participant string
		limit       int
		offset      int64
		wantIDs     []string
		wantTotal   int64
	}{
		{"all newest first", "", 10, 0, []string{"b-04", "b-03", "b-02", "b-01", "b-00"}, 5},
		{"requester sees all of theirs", "artist-1", 2, 0, []string{"b-04", "b-03"}, 5},
		{"counterparty sees only theirs", "host-2", 10, 0, []string{"b-03", "b-01"}, 2},
		{"offset", "host-1", 10, 1, []string{"b-02", "b-00"}, 3},
		{"offset past end", "host-1", 10, 9, []string{}, 3},
		{"stranger", "nobody", 10, 0, []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindForParticipant(ctx, tt.participant, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("expected %d bookings, got %d", len(tt.wantIDs), len(got))
			}
			for i, b := range got {
				if b.ID != tt.wantIDs[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.wantIDs[i], b.ID)
				}
			}

			total, err := repo.CountForParticipant(ctx, tt.participant)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("expected total %d, got %d", tt.wantTotal, total)
			}
		})
	}
}

func TestMemoryBookingRepository_UpdateStatus(t *testing.T) {
	repo := NewMemoryBookingRepository()
	seed(t, repo, 1)
	ctx := context.Background()
	at := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

	updated, err := repo.UpdateStatus(ctx, "b-00", model.StatusChange{From: model.StatusPending, To: model.StatusApproved, Actor: "host-1", At: at})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.StatusApproved || updated.LastTransitionBy != "host-1" || !updated.LastTransitionAt.Equal(at) {
		t.Fatalf("unexpected booking after update: %+v", updated)
	}

	_, err = repo.UpdateStatus(ctx, "b-00", model.StatusChange{From: model.StatusPending, To: model.StatusDeclined, Actor: "host-1", At: at})
	if !errors.Is(err, bookingserrors.ErrStatusConflict) {
		t.Fatalf("expected status conflict, got %v", err)
	}

	_, err = repo.UpdateStatus(ctx, "missing", model.StatusChange{From: model.StatusPending, To: model.StatusApproved})
	if !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryBookingRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryBookingRepository()
	seed(t, repo, 1)

	b, _ := repo.FindByID(context.Background(), "b-00")
	b.Status = model.StatusCompleted

	again, _ := repo.FindByID(context.Background(), "b-00")
	if again.Status != model.StatusPending {
		t.Fatalf("stored booking was mutated through a returned pointer")
	}

	if _, err := repo.FindByID(context.Background(), ""); !errors.Is(err, bookingserrors.ErrInvalidID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
}
