package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/jwt-new/jwtmiddleware"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/service"
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// errorStatus maps a service error kind to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the client message of a service error, or
// with a generic 500 when err is not one.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, status int) {
	var svcErr *service.Error
	if status >= http.StatusInternalServerError || !errors.As(err, &svcErr) {
		logger.Error("request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	logger.Warn("request rejected", slog.Int("status", status), slog.String("reason", svcErr.Msg))
	writeError(w, status, svcErr.Msg)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "validation error: " + verrs[0].Field() + " failed on " + verrs[0].Tag()
	}
	return "validation error"
}

func callerFrom(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (models.Caller, bool) {
	caller, ok := jwtmiddleware.CallerFromContext(r.Context())
	if !ok {
		logger.Error("caller not found in context")
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return caller, ok
}

func idParam(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		logger.Warn("invalid id parameter", slog.String("id", chi.URLParam(r, "id")))
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
