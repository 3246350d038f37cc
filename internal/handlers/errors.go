package handlers

import (
	"errors"
	"net/http"

	"github.com/vaughan-dsouza/clubhouse/internal/storage"
	"github.com/vaughan-dsouza/clubhouse/internal/utils"
)

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem with a request body.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Errors[0].Field + ": " + e.Errors[0].Message
}

func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Err returns e when it holds any errors, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// appHandler is a handler that forwards failures to the central error
// handler instead of writing them itself.
type appHandler func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) wrap(fn appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.handleError(w, r, err)
		}
	}
}

// handleError is the single place request failures turn into responses.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		utils.JSON(w, http.StatusBadRequest, verr)
	case errors.Is(err, storage.ErrNotFound):
		h.log.InfoContext(r.Context(), "not found", "path", r.URL.Path, "err", err)
		utils.JSONError(w, http.StatusNotFound, "not found")
	default:
		h.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
