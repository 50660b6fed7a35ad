package common

import (
	"encoding/json"
	"net/http"

	pkgerrors "chatter/pkg/errors"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Error: &ErrorInfo{Code: code, Message: message},
	})
}

// RespondAppError answers with the status and code carried by err. Errors
// outside the taxonomy become an opaque 500.
func RespondAppError(w http.ResponseWriter, err error) {
	status := pkgerrors.HTTPStatus(err)
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil || status >= http.StatusInternalServerError {
		RespondError(w, status, codeFor(status), http.StatusText(status))
		return
	}

	code := appErr.Code
	if code == "" {
		code = string(appErr.Type)
	}
	writeJSON(w, status, APIResponse{
		Error: &ErrorInfo{Code: code, Message: appErr.Message, Details: appErr.Details},
	})
}

// StandardErrorCodes defines common error codes
var StandardErrorCodes = struct {
	ValidationError    string
	NotFound           string
	Unauthorized       string
	Conflict           string
	InternalError      string
	BadRequest         string
	TooManyRequests    string
	ServiceUnavailable string
}{
	ValidationError:    "VALIDATION_ERROR",
	NotFound:           "NOT_FOUND",
	Unauthorized:       "UNAUTHORIZED",
	Conflict:           "CONFLICT",
	InternalError:      "INTERNAL_ERROR",
	BadRequest:         "BAD_REQUEST",
	TooManyRequests:    "TOO_MANY_REQUESTS",
	ServiceUnavailable: "SERVICE_UNAVAILABLE",
}

func codeFor(status int) string {
	if status == http.StatusServiceUnavailable {
		return StandardErrorCodes.ServiceUnavailable
	}
	return StandardErrorCodes.InternalError
}

// ParseJSONBody parses JSON request body with size limit
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	return decoder.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
