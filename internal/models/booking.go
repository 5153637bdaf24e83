package models

import "time"

// Booking is a single reservation record with a lifecycle status.
//
// Date and Time are kept as the strings the guest submitted ("2026-05-10",
// "20:00"); the service never does calendar arithmetic on them. CancelToken
// is an opaque bearer capability: whoever holds it may cancel exactly this
// booking. It is generated once at creation and never regenerated.
type Booking struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Guests      int64      `json:"guests"`
	TableNumber *int64     `json:"table_number"`
	Notes       *string    `json:"notes"`
	Status      Status     `json:"status"`
	CancelToken string     `json:"cancel_token"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

// BookingUpdate is a sparse, already-validated set of field overwrites.
// Nil pointers mean "leave untouched". Notes and TableNumber additionally
// distinguish "set to NULL" from "untouched" via their Set flags, because
// both columns are nullable and an explicit empty value clears them.
type BookingUpdate struct {
	Name   *string
	Email  *string
	Phone  *string
	Date   *string
	Time   *string
	Guests *int64
	Status *Status

	NotesSet bool
	Notes    *string

	TableSet    bool
	TableNumber *int64
}

// Empty reports whether the update carries no field overwrites at all.
// An empty update still advances updated_at when applied.
func (u BookingUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil &&
		u.Date == nil && u.Time == nil && u.Guests == nil &&
		u.Status == nil && !u.NotesSet && !u.TableSet
}
