package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"homedeck/internal/cv"
	applog "homedeck/internal/log"
	"homedeck/internal/views/pages"
)

func viewerID(r *http.Request) string {
	if v := viewerOf(r); v.Identity != nil {
		return v.Identity.ID
	}
	return ""
}

// Home renders the public landing page and records the visit.
func Home(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if tracker != nil && r.Method == http.MethodGet {
		tracker.TrackVisit(r.Context(), r.URL.Path, r.Referer(), r.UserAgent(), viewerID(r))
	}
	render(w, r, http.StatusOK, pages.Home(pageFor(r), pages.Form{}))
}

// Contact stores a contact form submission from the landing page.
func Contact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	p := pageFor(r)
	name := strings.TrimSpace(r.PostFormValue("name"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	message := strings.TrimSpace(r.PostFormValue("message"))
	if name == "" || email == "" || message == "" {
		render(w, r, http.StatusOK, pages.Home(p, pages.Form{Error: p.T("contactRequired"), Email: email}))
		return
	}
	if tracker != nil {
		tracker.TrackContact(r.Context(), name, email, message, viewerID(r))
	}
	render(w, r, http.StatusOK, pages.Home(p, pages.Form{Success: p.T("contactSent")}))
}

// DownloadCV serves the CV in the requested or page language and records
// the download.
func DownloadCV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if cvLibrary == nil {
		http.NotFound(w, r)
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = pageFor(r).Lang()
	}

	doc, err := cvLibrary.Open(lang)
	if err != nil {
		if errors.Is(err, cv.ErrNotFound) {
			applog.Warn(r.Context(), "cv document missing", "lang", lang)
			http.NotFound(w, r)
			return
		}
		applog.Error(r.Context(), "failed to open cv", "lang", lang, "error", err)
		http.Error(w, "cv unavailable", http.StatusInternalServerError)
		return
	}

	if tracker != nil && r.Method == http.MethodGet {
		tracker.TrackCVDownload(r.Context(), viewerID(r))
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	http.ServeContent(w, r, doc.Name, doc.ModTime, bytes.NewReader(doc.Data))
}
