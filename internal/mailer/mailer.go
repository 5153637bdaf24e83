package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"barolo/internal/config"
	"barolo/internal/models"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when the delivery client is missing its API
// key or from-address. Callers surface it as an advisory, not a hard error.
var ErrNotConfigured = errors.New("email service not configured")

// sendTimeout bounds a single delivery attempt so a slow provider cannot
// stall the request that triggered the notification.
const sendTimeout = 10 * time.Second

// Client delivers reservation emails through the Resend HTTP API.
type Client struct {
	endpoint      string
	apiKey        string
	from          string
	notifyAddress string
	restaurant    string
	httpClient    *http.Client
	logger        *zerolog.Logger
}

func New(cfg config.EmailConfig, app config.AppConfig, logger *zerolog.Logger) *Client {
	restaurant := strings.TrimSpace(app.Name)
	if restaurant == "" {
		restaurant = "Barolo"
	}
	return &Client{
		endpoint:      cfg.Endpoint,
		apiKey:        cfg.APIKey,
		from:          cfg.FromAddress,
		notifyAddress: cfg.NotifyAddress,
		restaurant:    restaurant,
		httpClient:    &http.Client{Timeout: sendTimeout},
		logger:        logger,
	}
}

// Configured reports whether the client can deliver guest email at all.
// The staff notify address is checked separately by the endpoints that
// need it.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.from != ""
}

type sendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

func (c *Client) send(ctx context.Context, to, subject, html, text string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if to == "" {
		return errors.New("missing recipient address")
	}

	body, err := json.Marshal(sendPayload{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(msg) == 0 {
			return fmt.Errorf("email provider returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("email provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	c.logger.Debug().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

func (c *Client) SendStaffNewRequest(ctx context.Context, booking *models.Booking) error {
	if c.notifyAddress == "" {
		return ErrNotConfigured
	}
	subject := fmt.Sprintf("New reservation request - %s at %s", booking.Date, booking.Time)
	html := "<p>New reservation request received:</p>" + detailsHTML(booking, true)
	text := "New reservation request received:\n\n" + detailsText(booking, true)
	return c.send(ctx, c.notifyAddress, subject, html, text)
}

func (c *Client) SendGuestReceived(ctx context.Context, booking *models.Booking, cancelURL string) error {
	subject := fmt.Sprintf("We received your reservation request - %s at %s", booking.Date, booking.Time)

	html := fmt.Sprintf("<p>Thank you for your request at %s.</p><p>We will confirm your reservation shortly.</p>%s%s",
		escapeHTML(c.restaurant), detailsHTML(booking, true), cancelLinkHTML(cancelURL))
	text := fmt.Sprintf("Thank you for your request at %s.\nWe will confirm your reservation shortly.\n\n%s%s",
		c.restaurant, detailsText(booking, true), cancelLinkText(cancelURL))

	return c.send(ctx, booking.Email, subject, html, text)
}

func (c *Client) SendGuestConfirmed(ctx context.Context, booking *models.Booking, cancelURL string) error {
	subject := "Your reservation is confirmed"
	intro := fmt.Sprintf("Your reservation at %s is confirmed. We look forward to welcoming you.", c.restaurant)

	html := fmt.Sprintf("<p>%s</p>%s%s", escapeHTML(intro), detailsHTML(booking, false), cancelLinkHTML(cancelURL))
	text := fmt.Sprintf("%s\n\n%s%s", intro, detailsText(booking, false), cancelLinkText(cancelURL))

	return c.send(ctx, booking.Email, subject, html, text)
}

func (c *Client) SendGuestCancelled(ctx context.Context, booking *models.Booking) error {
	subject := "Your reservation has been cancelled"
	intro := fmt.Sprintf("Your reservation at %s has been cancelled. If this is a mistake, please contact us.", c.restaurant)

	html := fmt.Sprintf("<p>%s</p>%s", escapeHTML(intro), detailsHTML(booking, false))
	text := fmt.Sprintf("%s\n\n%s", intro, detailsText(booking, false))

	return c.send(ctx, booking.Email, subject, html, text)
}

func (c *Client) SendStaffGuestCancelled(ctx context.Context, booking *models.Booking) error {
	if c.notifyAddress == "" {
		return ErrNotConfigured
	}
	subject := "Reservation cancelled by guest"
	html := "<p>A reservation was cancelled by the guest:</p>" + detailsHTML(booking, false)
	text := "A reservation was cancelled by the guest:\n\n" + detailsText(booking, false)
	return c.send(ctx, c.notifyAddress, subject, html, text)
}
