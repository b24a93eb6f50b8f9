package service

import (
	"tablebook/internal/domain"
	"tablebook/internal/models"
)

// allowedTransitions is the booking state machine. Terminal statuses have no
// entry.
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusSeated, models.StatusCancelled, models.StatusNoShow},
	models.StatusSeated:    {models.StatusCompleted},
}

func CanTransition(from, to models.BookingStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from s.
func NextStatuses(s models.BookingStatus) []models.BookingStatus {
	return append([]models.BookingStatus(nil), allowedTransitions[s]...)
}

func checkTransition(from, to models.BookingStatus) error {
	if !to.IsValid() {
		return domain.NewValidationError("status", "unknown status %q", to)
	}
	if !CanTransition(from, to) {
		return &domain.TransitionError{From: string(from), To: string(to)}
	}
	return nil
}
