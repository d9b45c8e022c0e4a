package handlers

import (
	"net/http"
	"strings"

	applog "homedeck/internal/log"
)

func deleteUserCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Headers", "authorization, content-type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Add("Vary", "Origin")
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

// DeleteUser is the out-of-band account deletion function. The caller proves
// its identity with a bearer access token; its profile, avatar and account
// are removed. Errors are plain text.
func DeleteUser(w http.ResponseWriter, r *http.Request) {
	deleteUserCORS(w, r)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if authService == nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	user, err := authService.Verify(token)
	if err != nil {
		applog.Debug(r.Context(), "delete-user token rejected", "error", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	if err := authService.DeleteAccount(r.Context(), user.ID); err != nil {
		applog.Warn(r.Context(), "delete-user failed", "identity", user.ID, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	applog.Info(r.Context(), "account deleted out of band", "identity", user.ID)
	w.WriteHeader(http.StatusNoContent)
}
