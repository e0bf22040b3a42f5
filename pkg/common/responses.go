package common

import (
	"encoding/json"
	"net/http"
	"time"

	pkgerrors "deepcae-backend/pkg/errors"
)

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries the machine-readable error surface.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MetaInfo holds response metadata.
type MetaInfo struct {
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// RespondJSON writes data inside the standard envelope.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    metaFor(r),
	}
	writeJSON(w, status, response)
}

// RespondError maps an application error onto the envelope. Internal
// failures keep their detail out of the response body.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	info := &ErrorInfo{
		Code:    string(pkgerrors.ErrorTypeInternal),
		Message: "internal server error",
	}

	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		if appErr.HTTPStatus != 0 {
			status = appErr.HTTPStatus
		}
		info.Code = string(appErr.Type)
		if appErr.Code != "" {
			info.Code = appErr.Code
		}
		if status < http.StatusInternalServerError {
			info.Message = appErr.Message
			info.Details = appErr.Details
		}
	}

	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   info,
		Meta:    metaFor(r),
	})
}

// RespondErrorStatus writes a bare error without an AppError behind it.
func RespondErrorStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
		Meta:    metaFor(r),
	})
}

func writeJSON(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func metaFor(r *http.Request) *MetaInfo {
	meta := &MetaInfo{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if r != nil {
		if requestID, ok := GetRequestID(r.Context()); ok {
			meta.RequestID = requestID
		}
	}
	return meta
}

// ParseJSONBody decodes a JSON request body, bounding its size and
// rejecting unknown fields.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
