package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"chat-widget/internal/api"
)

type HTTPError = api.HTTPError

// maxBodyBytes bounds request bodies; the widget never sends more.
const maxBodyBytes = 64 << 10

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, what string) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode %s request: %w", what, err),
		}
	}
	return nil
}

// serviceHTTPError maps a service error code onto a response. Unknown codes
// hide the message behind a generic 500.
func serviceHTTPError(code, message string, cause error) error {
	var status int
	switch code {
	case "validation_error":
		status = http.StatusBadRequest
	case "unauthorized":
		status = http.StatusUnauthorized
	case "not_found":
		status = http.StatusNotFound
	default:
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   cause,
		}
	}
	return &HTTPError{
		StatusCode: status,
		Message:    message,
		ErrorLog:   cause,
	}
}

func internalError(op string, err error) error {
	return &HTTPError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
		ErrorLog:   fmt.Errorf("%s: %w", op, err),
	}
}
