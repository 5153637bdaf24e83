package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"barolo/internal/config"
	"barolo/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

func newTestClient(t *testing.T, status int) (*Client, *[]capturedEmail, func() string) {
	var captured []capturedEmail
	var lastAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		var email capturedEmail
		require.NoError(t, json.NewDecoder(r.Body).Decode(&email))
		captured = append(captured, email)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"test"}`))
	}))
	t.Cleanup(server.Close)

	logger := zerolog.New(io.Discard)
	client := New(config.EmailConfig{
		APIKey:        "re_test_key",
		FromAddress:   "Barolo <bookings@barolo.example>",
		NotifyAddress: "staff@barolo.example",
		Endpoint:      server.URL,
	}, config.AppConfig{Name: "Barolo"}, &logger)

	return client, &captured, func() string { return lastAuth }
}

func testBooking() *models.Booking {
	notes := "window seat"
	return &models.Booking{
		ID:          1,
		Name:        "Anna Rossi",
		Email:       "anna@example.com",
		Phone:       "+39 055 123456",
		Date:        "2026-09-12",
		Time:        "20:00",
		Guests:      4,
		Notes:       &notes,
		Status:      models.StatusPending,
		CancelToken: "aabbccdd",
	}
}

func TestConfigured(t *testing.T) {
	logger := zerolog.New(io.Discard)

	client := New(config.EmailConfig{APIKey: "k", FromAddress: "f@x"}, config.AppConfig{}, &logger)
	assert.True(t, client.Configured())

	client = New(config.EmailConfig{FromAddress: "f@x"}, config.AppConfig{}, &logger)
	assert.False(t, client.Configured())

	client = New(config.EmailConfig{APIKey: "k"}, config.AppConfig{}, &logger)
	assert.False(t, client.Configured())
}

func TestSendStaffNewRequest(t *testing.T) {
	client, captured, lastAuth := newTestClient(t, http.StatusOK)

	err := client.SendStaffNewRequest(context.Background(), testBooking())
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	email := (*captured)[0]
	assert.Equal(t, []string{"staff@barolo.example"}, email.To)
	assert.Equal(t, "New reservation request - 2026-09-12 at 20:00", email.Subject)
	assert.Contains(t, email.HTML, "Anna Rossi")
	assert.Contains(t, email.HTML, "anna@example.com")
	assert.Contains(t, email.Text, "window seat")
	assert.Equal(t, "Bearer re_test_key", lastAuth())
}

func TestSendStaffNewRequestNoNotifyAddress(t *testing.T) {
	logger := zerolog.New(io.Discard)
	client := New(config.EmailConfig{APIKey: "k", FromAddress: "f@x"}, config.AppConfig{}, &logger)

	err := client.SendStaffNewRequest(context.Background(), testBooking())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendGuestReceived(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusOK)

	err := client.SendGuestReceived(context.Background(), testBooking(), "https://barolo.example/cancel.html?token=aabbccdd")
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	email := (*captured)[0]
	assert.Equal(t, []string{"anna@example.com"}, email.To)
	assert.Equal(t, "We received your reservation request - 2026-09-12 at 20:00", email.Subject)
	assert.Contains(t, email.HTML, "https://barolo.example/cancel.html?token=aabbccdd")
	assert.Contains(t, email.Text, "https://barolo.example/cancel.html?token=aabbccdd")
}

func TestSendGuestConfirmed(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusOK)

	err := client.SendGuestConfirmed(context.Background(), testBooking(), "https://barolo.example/cancel.html?token=aabbccdd")
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	email := (*captured)[0]
	assert.Equal(t, "Your reservation is confirmed", email.Subject)
	assert.Contains(t, email.HTML, "confirmed")
	// The short details block omits contact fields.
	assert.NotContains(t, email.HTML, "anna@example.com")
}

func TestSendGuestCancelled(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusOK)

	err := client.SendGuestCancelled(context.Background(), testBooking())
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	assert.Equal(t, "Your reservation has been cancelled", (*captured)[0].Subject)
}

func TestSendStaffGuestCancelled(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusOK)

	err := client.SendStaffGuestCancelled(context.Background(), testBooking())
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	email := (*captured)[0]
	assert.Equal(t, []string{"staff@barolo.example"}, email.To)
	assert.Equal(t, "Reservation cancelled by guest", email.Subject)
}

func TestSendProviderError(t *testing.T) {
	client, _, _ := newTestClient(t, http.StatusUnprocessableEntity)

	err := client.SendGuestCancelled(context.Background(), testBooking())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestHTMLEscaping(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusOK)

	booking := testBooking()
	booking.Name = `<script>alert("x")</script> & 'friends'`

	err := client.SendStaffNewRequest(context.Background(), booking)
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	html := (*captured)[0].HTML
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "&amp;")
	assert.Contains(t, html, "&#39;friends&#39;")
	// Plain text is left as submitted.
	assert.Contains(t, (*captured)[0].Text, `<script>`)
}
