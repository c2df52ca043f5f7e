// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler answers with JSON. Success bodies are whatever the handler
// returns (a student, a list, a profile); failures always use the Response
// envelope so clients can show the "error" string as-is.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for error cases:
//
//	{ "status": "error", "error": "field email must be a valid email address" }
//
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Message is the body of responses that only carry a sentence, e.g.
// { "message": "Student deleted successfully" }.
type Message struct {
	Message string `json:"message"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON sets the content type, writes status and encodes data.
// Header() → WriteHeader() → body, in that order: headers are frozen once
// the status line is out.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		zap.L().Warn("failed to write response body", zap.Int("status", status), zap.Error(err))
	}
	return err
}

// GeneralError wraps any Go error into the error envelope.
func GeneralError(err error) Response {
	return ErrorMessage(err.Error())
}

// ErrorMessage builds the error envelope from a fixed message, for
// failures whose wording is part of the API ("Student not found").
func ErrorMessage(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError turns validator.ValidationErrors into one sentence per
// failing field joined with ", ":
//
//	{ "status": "error", "error": "field name is required, field phoneNumber must be 10-15 digits" }
//
// Field names are the json names (see types/validate.go).
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email", "cfemail":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "phone":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be 10-15 digits", e.Field()))
		case "synctime":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a whole hour in HH:00 form", e.Field()))
		case "oneof":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be one of [%s]", e.Field(), e.Param()))
		case "min":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}
