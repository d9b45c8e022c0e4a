package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"homedeck/internal/access"
	applog "homedeck/internal/log"
)

type accessLevelRequest struct {
	AccessLevel string `json:"access_level"`
}

// ListProfiles returns every profile, newest first.
func ListProfiles(w http.ResponseWriter, r *http.Request) {
	if profileRepo == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	list, err := profileRepo.List(r.Context())
	if err != nil {
		writeDomainError(w, r, "list profiles", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SetAccessLevel changes the access level of the profile named by the
// profileID route parameter. Only owners may do so and never for themselves.
// Form submissions are accepted so the dashboard select can post directly.
func SetAccessLevel(w http.ResponseWriter, r *http.Request) {
	if profileRepo == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	var req accessLevelRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !decodeJSON(w, r, &req) {
			return
		}
	} else {
		req.AccessLevel = r.FormValue("access_level")
	}

	ctx := r.Context()
	caller := viewerOf(r).Principal()
	target := strings.TrimSpace(chi.URLParam(r, "profileID"))
	level, err := access.ParseLevel(req.AccessLevel)
	if err == nil {
		err = access.AuthorizeAccessChange(caller, target, level)
	}
	if err == nil {
		err = profileRepo.SetAccessLevel(ctx, target, level)
	}
	if err != nil {
		writeDomainError(w, r, "change access level", err)
		return
	}
	applog.Info(ctx, "access level changed", "caller", caller.ID, "target", target, "level", level.String())
	writeJSON(w, http.StatusOK, map[string]string{"id": target, "access_level": level.String()})
}

// Analytics returns the site statistics.
func Analytics(w http.ResponseWriter, r *http.Request) {
	if tracker == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, tracker.Stats(r.Context()))
}
