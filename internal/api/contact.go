package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/service"
)

// handleContact relays one contact form submission.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req contact.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "request body must be a JSON object")
		return
	}

	res, err := s.relaySvc.Submit(r.Context(), req)
	if err != nil {
		s.writeSubmitError(w, r, err)
		return
	}
	if !res.Suppressed {
		s.logger.InfoContext(r.Context(), "contact submission accepted", "submission_id", res.SubmissionID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeSubmitError maps the relay error taxonomy to a response. Only
// validation errors carry detail back to the client; everything else is
// logged and answered with a generic message.
func (s *Server) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		resp := errorResponse{Status: "error", Detail: "validation failed"}
		for _, f := range ve.Fields {
			resp.Fields = append(resp.Fields, fieldError{Field: f.Field, Message: f.Message})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	status, detail := http.StatusInternalServerError, "internal error"
	var (
		ae  *service.AuthError
		sfe *service.SecretFetchError
		de  *service.DeliveryError
	)
	switch {
	case errors.As(err, &ae):
		detail = "could not authenticate with the mail service"
	case errors.As(err, &sfe):
		detail = "could not load mail configuration"
	case errors.As(err, &de):
		status, detail = http.StatusBadGateway, "the message could not be delivered"
	}

	s.logger.ErrorContext(r.Context(), "contact submission failed",
		"status", status,
		"error", err,
	)
	writeError(w, status, detail)
}
