// Package httpjson writes JSON responses and the shared error envelope used
// by the admin API and module panels.
package httpjson

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the payload of an ErrorResponse.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Write encodes data as the response body with the given status.
func Write(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// Attachment writes data as a downloadable, indented JSON file.
func Attachment(w http.ResponseWriter, filename string, data any) error {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(body)
	return err
}

// Decode reads a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
