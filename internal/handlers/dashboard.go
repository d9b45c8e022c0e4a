package handlers

import (
	"net/http"
	"time"

	"homedeck/internal/access"
	applog "homedeck/internal/log"
	"homedeck/internal/views/pages"
)

var clock = time.Now

// Dashboard renders the signed-in home with the caller's shortcuts and, for
// admins, the user list and site statistics.
func Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	viewer := viewerOf(r)
	data := pages.DashboardData{Hour: clock().Hour(), Profile: viewer.Profile}

	if viewer.Profile != nil && shortcutManager != nil {
		apps, err := shortcutManager.EditOwnShortcuts(*viewer.Identity).List(ctx)
		if err != nil {
			applog.Error(ctx, "failed to load shortcuts", "identity", viewer.Identity.ID, "error", err)
		}
		catalog := shortcutManager.Catalog()
		for _, app := range apps {
			data.Tiles = append(data.Tiles, pages.Tile{Info: catalog.Display(app), App: app})
		}
	}

	if viewer.Profile != nil && access.CanViewAdmin(viewer.Profile.AccessLevel) {
		admin := &pages.Admin{Viewer: viewer.Principal()}
		if profileRepo != nil {
			list, err := profileRepo.List(ctx)
			if err != nil {
				applog.Error(ctx, "failed to list profiles", "error", err)
			}
			admin.Profiles = list
		}
		if tracker != nil {
			admin.Stats = tracker.Stats(ctx)
		}
		data.Admin = admin
	}

	render(w, r, http.StatusOK, pages.Dashboard(pageFor(r), data))
}
