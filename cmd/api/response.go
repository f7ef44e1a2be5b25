package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"creatorflow/auth"
	"creatorflow/campaign"
	"creatorflow/escrow"
	"creatorflow/meeting"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Message: message,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// writeServiceError maps domain errors onto status codes. Unrecognised
// errors are 500s and only reveal their text when exposeErrors is set.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapDomainError(err)
	if status == http.StatusInternalServerError {
		s.log().ErrorContext(r.Context(), "request failed",
			"operation", "http_request",
			"outcome", "failure",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		if s.exposeErrors {
			message = err.Error()
		}
	}
	writeError(w, status, message)
}

func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, "Email and password are required"
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidRole):
		return http.StatusBadRequest, clientMessage(err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrGoogleOnlyAccount):
		return http.StatusUnauthorized, "Please login with Google"
	case errors.Is(err, auth.ErrGoogleVerification):
		return http.StatusBadRequest, "Google verification failed"
	case errors.Is(err, auth.ErrGoogleDisabled):
		return http.StatusBadRequest, "Google login is not configured"
	case errors.Is(err, auth.ErrNotAllowed):
		return http.StatusForbidden, "Access restricted"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusUnauthorized, "Not authenticated"

	case errors.Is(err, meeting.ErrMissingFields),
		errors.Is(err, meeting.ErrInvalidDate),
		errors.Is(err, meeting.ErrUnknownUser):
		return http.StatusBadRequest, clientMessage(err)

	case errors.Is(err, campaign.ErrNotFound),
		errors.Is(err, campaign.ErrMilestoneNotFound),
		errors.Is(err, escrow.ErrCampaignNotFound):
		return http.StatusNotFound, clientMessage(err)
	case errors.Is(err, campaign.ErrAlreadyReleased),
		errors.Is(err, campaign.ErrCampaignClosed),
		errors.Is(err, campaign.ErrNotActive),
		errors.Is(err, campaign.ErrInsufficientFunds):
		return http.StatusConflict, clientMessage(err)
	case errors.Is(err, campaign.ErrInvalidCampaign),
		errors.Is(err, campaign.ErrBudgetMismatch),
		errors.Is(err, campaign.ErrOverfunded),
		errors.Is(err, campaign.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidDirection):
		return http.StatusBadRequest, clientMessage(err)
	}
	return http.StatusInternalServerError, "Internal server error"
}

// clientMessage drops the "pkg: " prefix of a domain error.
func clientMessage(err error) string {
	msg := err.Error()
	if _, rest, ok := strings.Cut(msg, ": "); ok {
		return rest
	}
	return msg
}
