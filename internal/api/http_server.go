// Package api exposes the reservation system over HTTP. Every response is
// JSON except the XLSX export.
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

	"villaalcielo/internal/config"
	"villaalcielo/internal/domain"
	"villaalcielo/internal/export"
	"villaalcielo/internal/holidays"
	"villaalcielo/internal/metrics"
	"villaalcielo/internal/models"
	"villaalcielo/internal/pricing"
	"villaalcielo/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type HTTPServer struct {
	cfg      config.APIConfig
	svc      *service.ReservationService
	exporter *export.Exporter
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc *service.ReservationService, exporter *export.Exporter, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, svc: svc, exporter: exporter, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/cabins", srv.handleCabins)
	mux.HandleFunc("/api/v1/quote", srv.handleQuote)
	mux.HandleFunc("/api/v1/availability", srv.handleAvailability)
	mux.HandleFunc("/api/v1/availability/bulk", srv.handleAvailabilityBulk)
	mux.HandleFunc("/api/v1/holidays/", srv.handleHolidays)
	mux.HandleFunc("/api/v1/reservations", srv.handleCreateReservation)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationSubpath)
	mux.HandleFunc("/api/v1/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
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

// Handler exposes the full middleware chain; used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleCabins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cabins, err := s.svc.ListCabins(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cabins": cabins})
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cabinID, checkIn, checkOut, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	quote, err := s.svc.QuoteStay(r.Context(), cabinID, checkIn, checkOut)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	type nightJSON struct {
		Date  string `json:"date"`
		Tier  string `json:"tier"`
		Price int64  `json:"price"`
	}
	var nights []nightJSON
	for night := range quote.Nights() {
		nights = append(nights, nightJSON{
			Date:  night.Date.Format(models.DateLayout),
			Tier:  night.Tier,
			Price: night.Price,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cabin_id":       quote.CabinID,
		"check_in":       quote.CheckIn.Format(models.DateLayout),
		"check_out":      quote.CheckOut.Format(models.DateLayout),
		"total_price":    quote.TotalPrice,
		"includes_asado": quote.IncludesAsado,
		"nights":         nights,
	})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cabinID, checkIn, checkOut, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	available, err := s.svc.CheckAvailability(r.Context(), cabinID, checkIn, checkOut)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cabin_id":  cabinID,
		"check_in":  checkIn.Format(models.DateLayout),
		"check_out": checkOut.Format(models.DateLayout),
		"available": available,
	})
}

func (s *HTTPServer) handleAvailabilityBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	checkIn, checkOut, ok := s.dateParams(w, r)
	if !ok {
		return
	}

	results, err := s.svc.CheckAllCabins(r.Context(), checkIn, checkOut)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		out = append(out, map[string]any{
			"cabin_id":   res.Cabin.ID,
			"cabin_name": res.Cabin.Name,
			"available":  res.Available,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"check_in":  checkIn.Format(models.DateLayout),
		"check_out": checkOut.Format(models.DateLayout),
		"results":   out,
	})
}

func (s *HTTPServer) handleHolidays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/holidays/")
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 2200 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	days := holidays.ForYear(year)
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format(models.DateLayout))
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "holidays": out})
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type request struct {
		CabinID       int64  `json:"cabin_id"`
		GuestName     string `json:"guest_name"`
		GuestEmail    string `json:"guest_email"`
		CheckIn       string `json:"check_in"`
		CheckOut      string `json:"check_out"`
		Guests        int64  `json:"guests"`
		IncludesAsado bool   `json:"includes_asado"`
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	var body request
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	checkIn, err := time.Parse(models.DateLayout, body.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in; expected YYYY-MM-DD")
		return
	}
	checkOut, err := time.Parse(models.DateLayout, body.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out; expected YYYY-MM-DD")
		return
	}

	reservation, err := s.svc.CreateReservation(r.Context(), &service.CreateReservationRequest{
		CabinID:       body.CabinID,
		GuestName:     body.GuestName,
		GuestEmail:    body.GuestEmail,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        body.Guests,
		IncludesAsado: body.IncludesAsado,
		ClientKey:     clientIP(r),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	metrics.IncReservation(models.StatusPending)
	writeJSON(w, http.StatusCreated, reservationJSON(reservation))
}

// handleReservationSubpath routes /api/v1/reservations/{code},
// /{id}/confirm and /{id}/cancel.
func (s *HTTPServer) handleReservationSubpath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleLookupByCode(w, r, parts[0])
	case len(parts) == 2 && (parts[1] == "confirm" || parts[1] == "cancel"):
		s.handleTransition(w, r, parts[0], parts[1])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleLookupByCode(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reservation, err := s.svc.GetReservationByCode(r.Context(), code)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationJSON(reservation))
}

func (s *HTTPServer) handleTransition(w http.ResponseWriter, r *http.Request, rawID, action string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	var reservation *models.Reservation
	switch action {
	case "confirm":
		reservation, err = s.svc.ConfirmReservation(r.Context(), id)
	case "cancel":
		reservation, err = s.svc.CancelReservation(r.Context(), id)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	metrics.IncReservation(reservation.Status)
	writeJSON(w, http.StatusOK, reservationJSON(reservation))
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}

	start, err := time.Parse(models.DateLayout, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse(models.DateLayout, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=reservas_%s_%s.xlsx",
		start.Format(models.DateLayout), end.Format(models.DateLayout)))

	if err := s.exporter.WriteXLSX(r.Context(), w, start, end); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}

// rangeParams parses cabin_id, check_in and check_out query parameters.
func (s *HTTPServer) rangeParams(w http.ResponseWriter, r *http.Request) (int64, time.Time, time.Time, bool) {
	cabinID, err := strconv.ParseInt(r.URL.Query().Get("cabin_id"), 10, 64)
	if err != nil || cabinID <= 0 {
		writeError(w, http.StatusBadRequest, "cabin_id is required")
		return 0, time.Time{}, time.Time{}, false
	}
	checkIn, checkOut, ok := s.dateParams(w, r)
	return cabinID, checkIn, checkOut, ok
}

func (s *HTTPServer) dateParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	checkIn, err := time.Parse(models.DateLayout, r.URL.Query().Get("check_in"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in; expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	checkOut, err := time.Parse(models.DateLayout, r.URL.Query().Get("check_out"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out; expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return checkIn, checkOut, true
}

// writeDomainError maps domain errors to HTTP statuses.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}

	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		writeError(w, http.StatusNotFound, nf.Error())
		return
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		ranges := make([]map[string]string, 0, len(conflict.Conflicts))
		for _, c := range conflict.Conflicts {
			ranges = append(ranges, map[string]string{
				"check_in":  c.CheckIn.Format(models.DateLayout),
				"check_out": c.CheckOut.Format(models.DateLayout),
			})
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "dates not available",
			"conflicts": ranges,
		})
		return
	}

	var ise *domain.InvalidStateError
	if errors.As(err, &ise) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  ise.Error(),
			"status": ise.Status,
		})
		return
	}

	if errors.Is(err, service.ErrTooManyAttempts) {
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	if errors.Is(err, pricing.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Error().Err(err).Msg("internal error")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func reservationJSON(r *models.Reservation) map[string]any {
	out := map[string]any{
		"id":                   r.ID,
		"cabin_id":             r.CabinID,
		"guest_name":           r.GuestName,
		"guest_email":          r.GuestEmail,
		"check_in":             r.CheckIn.Format(models.DateLayout),
		"check_out":            r.CheckOut.Format(models.DateLayout),
		"nights":               r.Nights(),
		"guests":               r.Guests,
		"total_price":          r.TotalPrice,
		"includes_asado":       r.IncludesAsado,
		"status":               r.Status,
		"confirmation_code":    r.ConfirmationCode,
		"payment_instructions": r.PaymentInstructions,
	}
	if r.Status == models.StatusPending {
		out["frozen_until"] = r.FrozenUntil.UTC().Format(time.RFC3339)
	}
	return out
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	base := s.logger.With().Str("component", "http").Logger()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("x-request-id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("x-request-id", requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		base.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
