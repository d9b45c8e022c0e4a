package handlers

import (
	"net/http"

	applog "homedeck/internal/log"
	"homedeck/internal/prefs"
	"homedeck/models"
)

type preferencesResponse struct {
	Settings models.Settings `json:"settings"`
	URL      string          `json:"url"`
}

func hasPreferenceQuery(r *http.Request) bool {
	query := r.URL.Query()
	for _, name := range []string{prefs.QueryTheme, prefs.QueryColor, prefs.QueryLang, prefs.QueryBlobs} {
		if query.Get(name) != "" {
			return true
		}
	}
	return false
}

// ReconcilePreferences applies the signed-in profile's settings once per
// session and reports later URL-driven changes to the reconciler. It must run
// after the preference and identity middleware.
func ReconcilePreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := viewerOf(r)
		if reconciler == nil || sessions == nil || viewer.Profile == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := sessions.ContextID(ctx)
		local := prefs.FromContext(ctx)
		if applied, ok := reconciler.Load(key, viewer.Profile.ID, viewer.Profile.Settings, local); ok {
			if applied != local {
				applog.Debug(ctx, "applied profile preferences", "identity", viewer.Profile.ID)
				prefCookies.Commit(w, r, applied)
			}
			ctx = prefs.WithSettings(ctx, applied)
		} else if hasPreferenceQuery(r) {
			reconciler.Observe(ctx, key, local)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UpdatePreferences merges a partial settings object over the current local
// preferences, commits them to the cookies and schedules a profile save for
// signed-in callers.
func UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var partial map[string]any
	if !decodeJSON(w, r, &partial) {
		return
	}

	ctx := r.Context()
	next := prefs.FromContext(ctx).Merge(partial)
	url := prefCookies.Commit(w, r, next)

	if reconciler != nil && sessions != nil && viewerOf(r).Profile != nil {
		if reconciler.Observe(ctx, sessions.ContextID(ctx), next) {
			applog.Debug(ctx, "preference save scheduled")
		}
	}
	writeJSON(w, http.StatusOK, preferencesResponse{Settings: next.Sanitize(), URL: url})
}
