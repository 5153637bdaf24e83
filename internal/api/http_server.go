package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"barolo/internal/config"
	"barolo/internal/database"
	"barolo/internal/domain"
	"barolo/internal/metrics"
	"barolo/internal/models"
	"barolo/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the public intake endpoints and the admin booking
// endpoints on a single mux. The public endpoints are throttled by the
// shared counter repository; the admin endpoints sit behind bearer auth
// and a per-client token bucket.
type HTTPServer struct {
	cfg        *config.Config
	bookings   *service.BookingService
	auth       *AdminAuth
	rateLimits domain.RateLimitRepository
	limiter    *rateLimiter
	logger     zerolog.Logger
	server     *http.Server
}

func NewHTTPServer(cfg *config.Config, bookings *service.BookingService, auth *AdminAuth, rateLimits domain.RateLimitRepository, logger zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:        cfg,
		bookings:   bookings,
		auth:       auth,
		rateLimits: rateLimits,
		limiter:    newRateLimiter(cfg.RateLimit),
		logger:     logger,
	}

	mux.HandleFunc("/api/v1/book", srv.handleBook)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/cancel", srv.handleCancel)
	mux.HandleFunc("/healthz", srv.handleHealthz)

	handler := srv.loggingMiddleware(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Email dispatch happens inside the request; allow for two sends.
		WriteTimeout: 30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// handleBook is the public reservation intake. Validation failures and
// the honeypot both come back as guest-facing messages; a committed
// booking returns ok even when the follow-up emails fail.
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
		return
	}

	if missing := s.missingEmailSettings(); len(missing) > 0 {
		writeError(w, http.StatusInternalServerError, "Server not configured. Missing "+strings.Join(missing, ", ")+".")
		return
	}

	if !s.allowPublic(r) {
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	var body struct {
		Name        string          `json:"name"`
		Email       string          `json:"email"`
		Phone       string          `json:"phone"`
		Date        string          `json:"date"`
		Time        string          `json:"time"`
		Guests      json.Number     `json:"guests"`
		Notes       string          `json:"notes"`
		TableNumber json.RawMessage `json:"table_number"`
		Website     string          `json:"website"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	booking, err := s.bookings.Create(r.Context(), service.CreateInput{
		Name:        body.Name,
		Email:       body.Email,
		Phone:       body.Phone,
		Date:        body.Date,
		Time:        body.Time,
		Guests:      body.Guests,
		Notes:       body.Notes,
		TableNumber: body.TableNumber,
		Honeypot:    body.Website,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if booking == nil {
		// Honeypot absorbed; indistinguishable from success.
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"message": "Thanks. We will be in touch shortly.",
		})
		return
	}

	advisory := s.bookings.NotifyCreated(r.Context(), booking, s.requestBaseURL(r))
	message := "Request received. We will confirm by email."
	if advisory != "" {
		message = "Request received. Email confirmation will follow shortly."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": message,
	})
}

// handleBookings serves the admin surface: list, create and edit.
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	adminEmail, err := s.auth.VerifyRequest(r)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	if !s.limiter.allow(adminEmail) {
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleListBookings(w, r)
	case http.MethodPost:
		s.handleCreateBooking(w, r, adminEmail)
	case http.MethodPatch:
		s.handleEditBooking(w, r, adminEmail)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit.")
			return
		}
		limit = parsed
	}

	bookings, err := s.bookings.List(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleCreateBooking records a booking on a guest's behalf. Staff enter
// these from phone or walk-in requests, so no emails go out.
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request, adminEmail string) {
	var body struct {
		Name        string          `json:"name"`
		Email       string          `json:"email"`
		Phone       string          `json:"phone"`
		Date        string          `json:"date"`
		Time        string          `json:"time"`
		Guests      json.Number     `json:"guests"`
		Notes       string          `json:"notes"`
		TableNumber json.RawMessage `json:"table_number"`
		Status      string          `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	booking, err := s.bookings.Create(r.Context(), service.CreateInput{
		Name:        body.Name,
		Email:       body.Email,
		Phone:       body.Phone,
		Date:        body.Date,
		Time:        body.Time,
		Guests:      body.Guests,
		Notes:       body.Notes,
		TableNumber: body.TableNumber,
		Status:      body.Status,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.logger.Info().Str("admin", adminEmail).Int64("booking_id", booking.ID).Msg("booking created by admin")
	writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

func (s *HTTPServer) handleEditBooking(w http.ResponseWriter, r *http.Request, adminEmail string) {
	var body struct {
		ID          json.Number     `json:"id"`
		Name        *string         `json:"name"`
		Email       *string         `json:"email"`
		Phone       *string         `json:"phone"`
		Date        *string         `json:"date"`
		Time        *string         `json:"time"`
		Guests      *json.Number    `json:"guests"`
		Notes       json.RawMessage `json:"notes"`
		TableNumber json.RawMessage `json:"table_number"`
		Status      *string         `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	id, err := body.ID.Int64()
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Missing booking id.")
		return
	}

	booking, err := s.bookings.EditFields(r.Context(), id, service.UpdateInput{
		Name:        body.Name,
		Email:       body.Email,
		Phone:       body.Phone,
		Date:        body.Date,
		Time:        body.Time,
		Guests:      body.Guests,
		Notes:       body.Notes,
		TableNumber: body.TableNumber,
		Status:      body.Status,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Only a status change in this request triggers guest email; an edit
	// that merely leaves the booking in confirmed must stay silent.
	var emailError any
	if body.Status != nil {
		if advisory := s.bookings.NotifyTransition(r.Context(), booking, s.requestBaseURL(r)); advisory != "" {
			emailError = advisory
		}
	}

	s.logger.Info().Str("admin", adminEmail).Int64("booking_id", booking.ID).Msg("booking edited by admin")
	writeJSON(w, http.StatusOK, map[string]any{
		"booking":    booking,
		"emailError": emailError,
	})
}

// handleCancel is the public token cancellation endpoint. Repeat
// submissions of the same token succeed without sending further email.
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
		return
	}

	if missing := s.missingEmailSettings(); len(missing) > 0 {
		writeError(w, http.StatusInternalServerError, "Server not configured.")
		return
	}

	if !s.allowPublic(r) {
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	booking, alreadyCancelled, err := s.bookings.CancelByToken(r.Context(), body.Token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Reservation not found.")
			return
		}
		s.writeServiceError(w, err)
		return
	}

	if alreadyCancelled {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"message": "Reservation already cancelled.",
		})
		return
	}

	advisory := s.bookings.NotifyCancelledByGuest(r.Context(), booking)
	message := "Reservation cancelled. A confirmation email has been sent."
	if advisory != "" {
		message = "Reservation cancelled. Email notice will follow shortly."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": message,
	})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// allowPublic applies the shared per-IP counter to the public endpoints.
// A broken counter backend fails open so guests are never locked out by
// infrastructure trouble.
func (s *HTTPServer) allowPublic(r *http.Request) bool {
	if s.rateLimits == nil || s.cfg.RateLimit.PublicPerMinute <= 0 {
		return true
	}
	allowed, err := s.rateLimits.CheckRateLimit(r.Context(), clientIP(r), s.cfg.RateLimit.PublicPerMinute, time.Minute)
	if err != nil {
		s.logger.Error().Err(err).Msg("rate limit check failed, allowing request")
		return true
	}
	return allowed
}

// missingEmailSettings names the email settings the public endpoints
// cannot run without. The names are config keys, never values.
func (s *HTTPServer) missingEmailSettings() []string {
	var missing []string
	if s.cfg.Email.APIKey == "" {
		missing = append(missing, "email.api_key")
	}
	if s.cfg.Email.FromAddress == "" {
		missing = append(missing, "email.from_address")
	}
	if s.cfg.Email.NotifyAddress == "" {
		missing = append(missing, "email.notify_address")
	}
	return missing
}

// requestBaseURL reconstructs the public origin for cancellation links.
// Forwarding headers from the edge proxy win, then the configured base
// URL, then the Host header.
func (s *HTTPServer) requestBaseURL(r *http.Request) string {
	proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))
	if proto == "" {
		proto = "https"
	}
	if host := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); host != "" {
		return proto + "://" + host
	}
	if s.cfg.HTTP.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.HTTP.PublicBaseURL, "/")
	}
	if r.Host != "" {
		return proto + "://" + r.Host
	}
	return ""
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "Booking not found.")
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func (s *HTTPServer) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrServerNotConfigured):
		writeError(w, http.StatusInternalServerError, "Server not configured.")
	case errors.Is(err, ErrAdminNotConfigured):
		writeError(w, http.StatusInternalServerError, "Admin access not configured.")
	case errors.Is(err, ErrNotAllowed):
		// Same status as a bad credential; only the message tells staff
		// the login worked but the grant is missing.
		writeError(w, http.StatusUnauthorized, "Not allowed.")
	default:
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
