package handlers

import (
	"net/http"
	"strings"
)

type visitRequest struct {
	PageURL  string `json:"page_url"`
	Referrer string `json:"referrer"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// TrackVisit records a client-reported page view. Tracking failures are
// logged by the tracker and never reported to the caller.
func TrackVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PageURL) == "" {
		writeJSONError(w, http.StatusBadRequest, "page_url is required")
		return
	}
	if tracker != nil {
		tracker.TrackVisit(r.Context(), req.PageURL, req.Referrer, r.UserAgent(), viewerID(r))
	}
	w.WriteHeader(http.StatusNoContent)
}

// TrackContact records a contact form submission.
func TrackContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "name, email and message are required")
		return
	}
	if tracker != nil {
		tracker.TrackContact(r.Context(), req.Name, req.Email, req.Message, viewerID(r))
	}
	w.WriteHeader(http.StatusNoContent)
}
