package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"barolo/internal/database"
	"barolo/internal/domain"
	"barolo/internal/metrics"
	"barolo/internal/models"

	"github.com/rs/zerolog"
)

// BookingService is the single authority for creating and transitioning
// bookings, independent of how the caller authenticated. Notification
// dispatch lives in notifications.go and is invoked by the HTTP surface
// after a successful mutation.
type BookingService struct {
	store    domain.BookingStore
	notifier domain.Notifier
	logger   *zerolog.Logger
}

func NewBookingService(store domain.BookingStore, notifier domain.Notifier, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Create validates the input, assigns a fresh cancellation token and
// persists the booking. A filled honeypot field short-circuits to a
// success-shaped nil result: no store write, no email, and nothing in the
// response reveals the check to the caller.
func (s *BookingService) Create(ctx context.Context, in CreateInput) (*models.Booking, error) {
	if strings.TrimSpace(in.Honeypot) != "" {
		s.logger.Info().Msg("honeypot filled, silently absorbing submission")
		return nil, nil
	}

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	date := strings.TrimSpace(in.Date)
	timeOfDay := strings.TrimSpace(in.Time)

	if name == "" || email == "" || phone == "" || date == "" || timeOfDay == "" {
		return nil, newValidationError("Please fill in all required fields.")
	}

	guests, err := parseGuests(in.Guests)
	if err != nil {
		return nil, err
	}

	tableNumber, err := parseTableNumber(in.TableNumber)
	if err != nil {
		return nil, err
	}

	status, err := statusOrPending(in.Status)
	if err != nil {
		return nil, err
	}

	token, err := generateCancelToken()
	if err != nil {
		return nil, fmt.Errorf("generate cancel token: %w", err)
	}

	booking := &models.Booking{
		Name:        name,
		Email:       email,
		Phone:       phone,
		Date:        date,
		Time:        timeOfDay,
		Guests:      guests,
		TableNumber: tableNumber,
		Notes:       normalizeNotes(in.Notes),
		Status:      status,
		CancelToken: token,
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingCreated()
	s.logger.Info().Int64("booking_id", booking.ID).Str("date", date).Str("time", timeOfDay).Msg("booking created")
	return booking, nil
}

// UpdateStatus transitions a booking. Unrecognized status input is
// rejected, never coerced, and any transition out of the terminal
// cancelled state fails.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, rawStatus string) (*models.Booking, error) {
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, newValidationError("Invalid status.")
	}

	current, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, newValidationError(fmt.Sprintf("Cannot change status from %s to %s.", current.Status, status))
	}

	booking, err := s.store.UpdateBookingStatus(ctx, id, status)
	if errors.Is(err, database.ErrAlreadyCancelled) {
		return nil, newValidationError("Cannot change status from cancelled to " + status.String() + ".")
	}
	if err != nil {
		return nil, err
	}

	metrics.IncStatusTransition(status.String())
	s.logger.Info().Int64("booking_id", id).Str("status", status.String()).Msg("booking status updated")
	return booking, nil
}

// EditFields overwrites a sparse set of booking fields. Each present field
// is validated with the same rules as Create; absent fields stay
// untouched. updated_at advances even for an empty edit.
func (s *BookingService) EditFields(ctx context.Context, id int64, in UpdateInput) (*models.Booking, error) {
	var update models.BookingUpdate

	trimmedRequired := func(raw *string) (*string, error) {
		trimmed := strings.TrimSpace(*raw)
		if trimmed == "" {
			return nil, newValidationError("Missing booking details.")
		}
		return &trimmed, nil
	}

	var err error
	if in.Name != nil {
		if update.Name, err = trimmedRequired(in.Name); err != nil {
			return nil, err
		}
	}
	if in.Email != nil {
		if update.Email, err = trimmedRequired(in.Email); err != nil {
			return nil, err
		}
	}
	if in.Phone != nil {
		if update.Phone, err = trimmedRequired(in.Phone); err != nil {
			return nil, err
		}
	}
	if in.Date != nil {
		if update.Date, err = trimmedRequired(in.Date); err != nil {
			return nil, err
		}
	}
	if in.Time != nil {
		if update.Time, err = trimmedRequired(in.Time); err != nil {
			return nil, err
		}
	}
	if in.Guests != nil {
		guests, err := parseGuests(*in.Guests)
		if err != nil {
			return nil, err
		}
		update.Guests = &guests
	}
	if in.Notes != nil {
		notes, err := parseNotes(in.Notes)
		if err != nil {
			return nil, err
		}
		update.NotesSet = true
		update.Notes = notes
	}
	if in.TableNumber != nil {
		table, err := parseTableNumber(in.TableNumber)
		if err != nil {
			return nil, err
		}
		update.TableSet = true
		update.TableNumber = table
	}
	if in.Status != nil {
		status, err := models.ParseStatus(*in.Status)
		if err != nil {
			return nil, newValidationError("Invalid status.")
		}
		current, err := s.store.GetBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.Status.CanTransitionTo(status) {
			return nil, newValidationError(fmt.Sprintf("Cannot change status from %s to %s.", current.Status, status))
		}
		update.Status = &status
	}

	booking, err := s.store.UpdateBookingFields(ctx, id, update)
	if errors.Is(err, database.ErrAlreadyCancelled) {
		return nil, newValidationError("Booking is already cancelled.")
	}
	if err != nil {
		return nil, err
	}

	if update.Status != nil {
		metrics.IncStatusTransition(update.Status.String())
	}
	s.logger.Info().Int64("booking_id", id).Msg("booking updated")
	return booking, nil
}

// List returns bookings newest-first with the store-side limit cap.
func (s *BookingService) List(ctx context.Context, limit int) ([]*models.Booking, error) {
	return s.store.ListBookings(ctx, limit)
}

// Get returns a single booking by id.
func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// CancelByToken cancels the booking the capability token points at. The
// second return value reports an idempotent repeat: the booking was
// already cancelled, the store was not touched, and the caller must not
// dispatch another notification.
func (s *BookingService) CancelByToken(ctx context.Context, token string) (*models.Booking, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false, newValidationError("Missing cancellation token.")
	}

	booking, alreadyCancelled, err := s.store.CancelBookingByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}

	if !alreadyCancelled {
		metrics.IncStatusTransition(models.StatusCancelled.String())
		s.logger.Info().Int64("booking_id", booking.ID).Msg("booking cancelled by guest")
	}
	return booking, alreadyCancelled, nil
}

func generateCancelToken() (string, error) {
	buf := make([]byte, models.CancelTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
