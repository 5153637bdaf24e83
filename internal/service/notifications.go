package service

import (
	"context"
	"net/url"

	"barolo/internal/metrics"
	"barolo/internal/models"
)

// Email is best-effort: every dispatch failure below is converted into an
// advisory string attached to the otherwise-successful response, and the
// committed booking mutation is never rolled back because of it.

const emailNotConfiguredAdvisory = "Email service not configured."

// NotifyCreated dispatches the staff new-request notice and the guest
// acknowledgment after a public creation. The guest email carries the
// cancellation link derived from the capability token and the request's
// origin. Returns an advisory string, empty on full success.
func (s *BookingService) NotifyCreated(ctx context.Context, booking *models.Booking, baseURL string) string {
	if s.notifier == nil || !s.notifier.Configured() {
		return emailNotConfiguredAdvisory
	}

	advisory := ""

	if err := s.notifier.SendStaffNewRequest(ctx, booking); err != nil {
		metrics.IncEmailFailure("staff_new_request")
		s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("staff new-request email failed")
		advisory = "Notification email failed to send."
	} else {
		metrics.IncEmailSent("staff_new_request")
	}

	if err := s.notifier.SendGuestReceived(ctx, booking, cancelURL(baseURL, booking.CancelToken)); err != nil {
		metrics.IncEmailFailure("guest_received")
		s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("guest acknowledgment email failed")
		advisory = "Notification email failed to send."
	} else {
		metrics.IncEmailSent("guest_received")
	}

	return advisory
}

// NotifyTransition dispatches the guest email that follows an admin-driven
// status change. Only transitions into confirmed and cancelled notify the
// guest; the confirmation includes a fresh cancellation link.
func (s *BookingService) NotifyTransition(ctx context.Context, booking *models.Booking, baseURL string) string {
	if booking.Status != models.StatusConfirmed && booking.Status != models.StatusCancelled {
		return ""
	}
	if booking.Email == "" {
		return ""
	}
	if s.notifier == nil || !s.notifier.Configured() {
		return emailNotConfiguredAdvisory
	}

	switch booking.Status {
	case models.StatusConfirmed:
		if err := s.notifier.SendGuestConfirmed(ctx, booking, cancelURL(baseURL, booking.CancelToken)); err != nil {
			metrics.IncEmailFailure("guest_confirmed")
			s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("confirmation email failed")
			return "Confirmation email failed to send."
		}
		metrics.IncEmailSent("guest_confirmed")
	case models.StatusCancelled:
		if err := s.notifier.SendGuestCancelled(ctx, booking); err != nil {
			metrics.IncEmailFailure("guest_cancelled")
			s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("cancellation email failed")
			return "Cancellation email failed to send."
		}
		metrics.IncEmailSent("guest_cancelled")
	}
	return ""
}

// NotifyCancelledByGuest dispatches both sides of a token cancellation:
// the guest notice and the staff "cancelled by guest" alert. Callers must
// invoke it only on the first transition into cancelled so that repeat
// token submissions stay email-free.
func (s *BookingService) NotifyCancelledByGuest(ctx context.Context, booking *models.Booking) string {
	if s.notifier == nil || !s.notifier.Configured() {
		return emailNotConfiguredAdvisory
	}

	advisory := ""

	if err := s.notifier.SendGuestCancelled(ctx, booking); err != nil {
		metrics.IncEmailFailure("guest_cancelled")
		s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("guest cancellation email failed")
		advisory = "Cancellation email failed to send."
	} else {
		metrics.IncEmailSent("guest_cancelled")
	}

	if err := s.notifier.SendStaffGuestCancelled(ctx, booking); err != nil {
		metrics.IncEmailFailure("staff_guest_cancelled")
		s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("staff cancellation email failed")
		advisory = "Cancellation email failed to send."
	} else {
		metrics.IncEmailSent("staff_guest_cancelled")
	}

	return advisory
}

func cancelURL(baseURL, token string) string {
	if baseURL == "" || token == "" {
		return ""
	}
	return baseURL + "/cancel.html?token=" + url.QueryEscape(token)
}
