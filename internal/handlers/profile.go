package handlers

import (
	"errors"
	"net/http"

	"homedeck/internal/auth"
	applog "homedeck/internal/log"
	"homedeck/internal/profiles"
)

// GetProfile returns the caller's profile.
func GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewerOf(r).Profile)
}

// UpdateProfile changes the caller's display details. The access level can
// not be changed here.
func UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if profileRepo == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	var details profiles.Details
	if !decodeJSON(w, r, &details) {
		return
	}
	profile, err := profileRepo.UpdateDetails(r.Context(), viewerOf(r).Profile.ID, details)
	if err != nil {
		writeDomainError(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UploadAvatar replaces the caller's profile picture with the multipart file
// field "avatar".
func UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if avatars == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "avatar storage unavailable")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, avatars.MaxBytes()+1<<20)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(w, r, "upload avatar", profiles.ErrAvatarTooLarge)
			return
		}
		writeJSONError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	id := viewerOf(r).Profile.ID
	avatarURL, err := avatars.Replace(r.Context(), id, header.Filename, file, header.Size)
	if err != nil {
		writeDomainError(w, r, "upload avatar", err)
		return
	}
	applog.Info(r.Context(), "avatar replaced", "identity", id)
	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": avatarURL})
}

// DeleteProfile deletes the caller's account with its profile and avatar,
// then ends the session.
func DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if authService == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	ctx := r.Context()
	id := viewerOf(r).Identity.ID
	if err := authService.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeDomainError(w, r, "delete account", err)
		return
	}
	applog.Info(ctx, "account deleted", "identity", id)
	if sessions != nil {
		if resolver != nil {
			resolver.Notify(ctx, sessions.ContextID(ctx), nil)
		}
		if err := sessions.Destroy(ctx); err != nil {
			applog.Error(ctx, "failed to destroy session", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
