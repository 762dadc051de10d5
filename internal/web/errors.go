package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted for the client (JSON for the API, an HTML alert for pages)
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err), with the status chosen by statusFor
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered in appropriate format for the client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/dataelevate/internal/core"
	"github.com/JonMunkholm/dataelevate/internal/logging"
	"github.com/JonMunkholm/dataelevate/internal/web/templates"
)

// errRateLimited is reported when a client exceeds its request budget.
var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	var (
		maxBytes    *http.MaxBytesError
		unsupported *core.UnsupportedFormatError
		parse       *core.ParseError
		unknown     *core.UnknownColumnError
	)
	switch {
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrNoFile), errors.Is(err, core.ErrInvalidOption),
		errors.Is(err, core.ErrUnsupportedChart), errors.Is(err, core.ErrUnsupportedExport):
		return http.StatusBadRequest
	case errors.As(err, &parse), errors.As(err, &unknown),
		errors.Is(err, core.ErrColumnNotNumeric), core.IsNotice(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns JSON for API
// requests and an HTML alert otherwise.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	log := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		log = logger.Error
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		respondErrorJSON(w, r, userMsg, statusCode)
		return
	}
	s.renderErrorPage(w, r, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Detail:  msg.Detail,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// renderErrorPage renders the alert inside the page layout, or alone for
// HTMX requests.
func (s *Server) renderErrorPage(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)

	alert := templates.ErrorAlert(alertView(msg))
	if isHTMX(r) {
		_ = alert.Render(r.Context(), w)
		return
	}
	_ = templates.Page("Error", alert).Render(r.Context(), w)
}

func alertView(msg core.UserMessage) templates.AlertView {
	return templates.AlertView{Message: msg.Message, Detail: msg.Detail, Action: msg.Action, Code: msg.Code}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes and probes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/healthz"
}
