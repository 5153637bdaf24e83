package service

import (
	"context"
	"errors"
	"testing"

	"barolo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func notifyBooking() *models.Booking {
	return &models.Booking{
		ID:          11,
		Name:        "Anna Rossi",
		Email:       "anna@example.com",
		Status:      models.StatusPending,
		CancelToken: "aabbccdd",
	}
}

func TestNotifyCreated(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(&mockStore{}, notifier)
	booking := notifyBooking()

	notifier.On("Configured").Return(true)
	notifier.On("SendStaffNewRequest", mock.Anything, booking).Return(nil)
	notifier.On("SendGuestReceived", mock.Anything, booking, "https://barolo.example/cancel.html?token=aabbccdd").Return(nil)

	advisory := svc.NotifyCreated(context.Background(), booking, "https://barolo.example")
	assert.Empty(t, advisory)
	notifier.AssertExpectations(t)
}

func TestNotifyCreatedStaffFailureIsAdvisory(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(&mockStore{}, notifier)
	booking := notifyBooking()

	notifier.On("Configured").Return(true)
	notifier.On("SendStaffNewRequest", mock.Anything, booking).Return(errors.New("provider down"))
	notifier.On("SendGuestReceived", mock.Anything, booking, mock.Anything).Return(nil)

	advisory := svc.NotifyCreated(context.Background(), booking, "https://barolo.example")
	assert.Equal(t, "Notification email failed to send.", advisory)
	// The guest email is still attempted after the staff one fails.
	notifier.AssertExpectations(t)
}

func TestNotifyCreatedNotConfigured(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(&mockStore{}, notifier)

	notifier.On("Configured").Return(false)

	advisory := svc.NotifyCreated(context.Background(), notifyBooking(), "https://barolo.example")
	assert.Equal(t, "Email service not configured.", advisory)
	notifier.AssertNotCalled(t, "SendStaffNewRequest", mock.Anything, mock.Anything)
}

func TestNotifyTransitionConfirmed(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(&mockStore{}, notifier)
	booking := notifyBooking()
	booking.Status = models.StatusConfirmed

	notifier.On("Configured").Return(true)
	notifier.On("SendGuestConfirmed", mock.Anything, booking, "https://barolo.example/cancel.html?token=aabbccdd").Return(nil)

	advisory := svc.NotifyTransition(context.Background(), booking, "https://barolo.example")
	assert.Empty(t, advisory)
	notifier.AssertExpectations(t)
}

func TestNotifyTransitionCancelled(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(&mockStore{}, notifier)
	booking := notifyBooking()
	booking.Status = models.StatusCancelled

	notifier.On("Configured").Return(true)
	notifier.On("SendGuestCancelled", mock.Anything, booking).Return(errors.New("provider down"))

	advisory := svc.NotifyTransition(context.Background(), booking, "https://barolo.example")
	assert.Equal(t, "Cancellation email failed to send.", advisory)
}

func TestNotifyTransitionSilentStatuses(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(&mockStore{}, notifier)

	for _, status := range []models.Status{models.StatusPending, models.StatusSeated, models.StatusNoShow} {
		booking := notifyBooking()
		booking.Status = status
		assert.Empty(t, svc.NotifyTransition(context.Background(), booking, "https://barolo.example"))
	}

	notifier.AssertNotCalled(t, "SendGuestConfirmed", mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "SendGuestCancelled", mock.Anything, mock.Anything)
}

func TestNotifyCancelledByGuest(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(&mockStore{}, notifier)
	booking := notifyBooking()
	booking.Status = models.StatusCancelled

	notifier.On("Configured").Return(true)
	notifier.On("SendGuestCancelled", mock.Anything, booking).Return(nil)
	notifier.On("SendStaffGuestCancelled", mock.Anything, booking).Return(nil)

	advisory := svc.NotifyCancelledByGuest(context.Background(), booking)
	assert.Empty(t, advisory)
	notifier.AssertExpectations(t)
}
