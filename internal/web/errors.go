package web

// errors.go maps pipeline errors to HTTP responses.
//
// JSON endpoints always answer {"error": message}. Typed domain errors carry
// their own message; anything else is replaced by the MapError message so
// internals never reach the client. The UI renders the same mapping as an
// ErrorAlert with its support code.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/feedback-sentiment/internal/core"
	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
	"github.com/JonMunkholm/feedback-sentiment/internal/tabular"
	"github.com/JonMunkholm/feedback-sentiment/internal/web/templates"
)

// requestError is a malformed form field or query parameter.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

// statusFor returns the HTTP status for an analysis error.
func statusFor(err error) int {
	var (
		maxBytes *http.MaxBytesError
		missing  *core.MissingFileError
		noText   *core.NoTextColumnError
		reqErr   *requestError
	)
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, tabular.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &missing), errors.As(err, &noText), errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyAnalyses):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorMessage returns the client-visible message for err.
func errorMessage(err error) string {
	var (
		maxBytes *http.MaxBytesError
		missing  *core.MissingFileError
		noText   *core.NoTextColumnError
		reqErr   *requestError
		format   *tabular.FormatError
		classif  *sentiment.ClassificationError
	)
	switch {
	case errors.As(err, &maxBytes):
		return tabular.ErrFileTooLarge.Error()
	case errors.As(err, &missing):
		return missing.Error()
	case errors.As(err, &noText):
		return noText.Error()
	case errors.As(err, &reqErr):
		return reqErr.Error()
	case errors.As(err, &format):
		return format.Error()
	case errors.As(err, &classif):
		return classif.Error()
	case errors.Is(err, tabular.ErrFileTooLarge), errors.Is(err, core.ErrTooManyAnalyses):
		return err.Error()
	}
	return core.MapError(err).Message
}

// logRequestError logs the technical error with request context.
func logRequestError(r *http.Request, err error, status int) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", core.MapError(err).Code,
		"request_id", middleware.GetReqID(r.Context()),
	)
}

// respondError writes the JSON error body for err.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logRequestError(r, err, status)
	writeError(w, status, errorMessage(err))
}

// errorAlert builds the UI alert for err.
func errorAlert(err error) *alert {
	msg := core.MapError(err)
	a := &alert{message: errorMessage(err), action: msg.Action, code: msg.Code}

	var noText *core.NoTextColumnError
	if errors.As(err, &noText) {
		a.action = noText.Detail()
	}
	return a
}

type alert struct {
	message, action, code string
}

// respondErrorHTML re-renders the upload page with the error on top.
func (s *Server) respondErrorHTML(w http.ResponseWriter, r *http.Request, err error, form templates.UploadForm) {
	status := statusFor(err)
	logRequestError(r, err, status)

	a := errorAlert(err)
	s.renderHTML(w, r, status, templates.UploadPage(form, templates.ErrorAlert(a.message, a.action, a.code)))
}
