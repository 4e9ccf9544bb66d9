package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"aulavirtual.org/internal/auth"
	"aulavirtual.org/internal/obs"
)

// apiResponse is the uniform envelope every endpoint returns.
type apiResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, apiResponse{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, apiResponse{Success: false, Message: message})
}

func writeFieldErrors(w http.ResponseWriter, code int, message string, fields map[string]string) {
	writeJSON(w, code, apiResponse{Success: false, Message: message, Errors: fields})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

var conflictMessages = map[string]string{
	"username": "Username is already taken",
	"email":    "Email is already in use",
	"userCode": "User code is already in use",
}

// writeServiceError converts a service error into the uniform envelope. Every
// token failure collapses to one unauthenticated message; the distinction is
// already in the logs.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *auth.ConflictError
	var validation *auth.ValidationError
	switch {
	case errors.As(err, &validation):
		writeFieldErrors(w, http.StatusBadRequest, "Validation failed", validation.Fields)
	case errors.As(err, &conflict):
		msg, ok := conflictMessages[conflict.Field]
		if !ok {
			msg = "Resource already exists"
		}
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, auth.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "auth: "))
	default:
		obs.LogEvent(map[string]any{
			"level": "error", "msg": "unexpected error",
			"path": r.URL.Path, "error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
