package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"homedeck/internal/shortcuts"
	"homedeck/models"
)

type catalogResponse struct {
	Apps      []shortcuts.AppDefinition `json:"apps"`
	Available []shortcuts.AppDefinition `json:"available"`
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

type appResponse struct {
	models.UserApp
	Display shortcuts.DisplayInfo `json:"display"`
}

// Catalog lists the known apps. For signed-in callers Available excludes
// apps already on their list, except the one named by the editing query
// parameter.
func Catalog(w http.ResponseWriter, r *http.Request) {
	if shortcutManager == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	catalog := shortcutManager.Catalog()
	var existing []string
	if profile := viewerOf(r).Profile; profile != nil {
		for _, app := range profile.Apps {
			existing = append(existing, app.AppID)
		}
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Apps:      catalog.All(),
		Available: catalog.Available(existing, r.URL.Query().Get("editing")),
	})
}

// collection returns the list the request edits: the profile named by the
// profileID route parameter for admin routes, else the caller's own.
func collection(r *http.Request) (*shortcuts.Collection, error) {
	viewer := viewerOf(r)
	if target, ok := routeParam(r, "profileID"); ok {
		return shortcutManager.EditOtherIdentityShortcuts(viewer.Principal(), target)
	}
	return shortcutManager.EditOwnShortcuts(*viewer.Identity), nil
}

func routeParam(r *http.Request, name string) (string, bool) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "", false
	}
	for _, key := range rctx.URLParams.Keys {
		if key == name {
			return chi.URLParam(r, name), true
		}
	}
	return "", false
}

func project(apps []models.UserApp) []appResponse {
	catalog := shortcutManager.Catalog()
	out := make([]appResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, appResponse{UserApp: app, Display: catalog.Display(app)})
	}
	return out
}

func withCollection(op string, fn func(http.ResponseWriter, *http.Request, *shortcuts.Collection)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if shortcutManager == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		c, err := collection(r)
		if err != nil {
			writeDomainError(w, r, op, err)
			return
		}
		fn(w, r, c)
	}
}

// ListApps returns the shortcut list in display order.
var ListApps = withCollection("list shortcuts", func(w http.ResponseWriter, r *http.Request, c *shortcuts.Collection) {
	apps, err := c.List(r.Context())
	if err != nil {
		writeDomainError(w, r, "list shortcuts", err)
		return
	}
	writeJSON(w, http.StatusOK, project(apps))
})

// AddApp appends a shortcut.
var AddApp = withCollection("add shortcut", func(w http.ResponseWriter, r *http.Request, c *shortcuts.Collection) {
	var in shortcuts.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	app, err := c.Add(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, "add shortcut", err)
		return
	}
	writeJSON(w, http.StatusCreated, project([]models.UserApp{app})[0])
})

// UpdateApp changes the shortcut named by the appID route parameter.
var UpdateApp = withCollection("update shortcut", func(w http.ResponseWriter, r *http.Request, c *shortcuts.Collection) {
	var in shortcuts.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ID = chi.URLParam(r, "appID")
	app, err := c.Update(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, "update shortcut", err)
		return
	}
	writeJSON(w, http.StatusOK, project([]models.UserApp{app})[0])
})

// RemoveApp deletes the shortcut named by the appID route parameter.
var RemoveApp = withCollection("remove shortcut", func(w http.ResponseWriter, r *http.Request, c *shortcuts.Collection) {
	if err := c.Remove(r.Context(), chi.URLParam(r, "appID")); err != nil {
		writeDomainError(w, r, "remove shortcut", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
})

// ReorderApps arranges the list in the order of the submitted ids.
var ReorderApps = withCollection("reorder shortcuts", func(w http.ResponseWriter, r *http.Request, c *shortcuts.Collection) {
	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	apps, err := c.Reorder(r.Context(), req.IDs)
	if err != nil {
		writeDomainError(w, r, "reorder shortcuts", err)
		return
	}
	writeJSON(w, http.StatusOK, project(apps))
})
