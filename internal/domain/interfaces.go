package domain

import (
	"context"
	"time"

	"barolo/internal/models"
)

// BookingStore is the durable reservation record store.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByCancelToken(ctx context.Context, token string) (*models.Booking, error)
	ListBookings(ctx context.Context, limit int) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status models.Status) (*models.Booking, error)
	UpdateBookingFields(ctx context.Context, id int64, update models.BookingUpdate) (*models.Booking, error)
	CancelBookingByToken(ctx context.Context, token string) (*models.Booking, bool, error)
}

// Notifier delivers the templated guest and staff emails. Delivery is
// best-effort: callers convert failures into advisory strings and never
// roll back the booking mutation that triggered the send.
type Notifier interface {
	SendStaffNewRequest(ctx context.Context, booking *models.Booking) error
	SendGuestReceived(ctx context.Context, booking *models.Booking, cancelURL string) error
	SendGuestConfirmed(ctx context.Context, booking *models.Booking, cancelURL string) error
	SendGuestCancelled(ctx context.Context, booking *models.Booking) error
	SendStaffGuestCancelled(ctx context.Context, booking *models.Booking) error
	Configured() bool
}

// RateLimitRepository counts requests per key within a rolling window.
type RateLimitRepository interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
