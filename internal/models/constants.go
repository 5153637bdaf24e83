package models

const (
	// CancelTokenBytes is the entropy of a cancellation token before hex
	// encoding. 16 bytes gives a 128-bit capability.
	CancelTokenBytes = 16

	// DefaultListLimit and MaxListLimit bound the admin bookings listing.
	DefaultListLimit = 200
	MaxListLimit     = 500
)
