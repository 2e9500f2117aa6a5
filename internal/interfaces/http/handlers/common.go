// Package handlers contains the HTTP request handlers for the API surface.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http/middleware"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// maxBodyBytes bounds request bodies; no endpoint legitimately needs more.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// requestUserID extracts the authenticated user id set by the auth
// middleware.
func requestUserID(r *http.Request) string {
	return middleware.ContextUserID(r.Context())
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "invalid request body")
	}
	return nil
}

// queryInt parses an integer query parameter, returning def when absent or
// unparsable.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps an error to its HTTP status via the error-code table and
// writes the structured body.  Non-AppError failures are masked as a generic
// internal error.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperrors.AppError
	if !errors.As(err, &ae) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:    apperrors.ErrCodeInternal.String(),
			Message: "internal server error",
		})
		return
	}
	status := ae.Code.HTTPStatus()
	body := ErrorResponse{Code: ae.Code.String(), Message: ae.Message}
	if status < http.StatusInternalServerError {
		body.Detail = ae.Detail
	}
	if status >= http.StatusInternalServerError {
		body.Message = "internal server error"
	}
	writeJSON(w, status, body)
}
