package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openbiocard/openbiocard-backend/api/middleware"
	"github.com/openbiocard/openbiocard-backend/api/responses"
	"github.com/openbiocard/openbiocard-backend/api/validators"
	"github.com/openbiocard/openbiocard-backend/internal/accounts"
	"github.com/openbiocard/openbiocard-backend/internal/identity"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
)

// PublicProfile serves the card for {username}. Unknown and invalid names
// are both reported as not found.
func PublicProfile(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		if !validators.ValidUsername(username) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "User not found"))
			return
		}
		view, err := svc.PublicProfile(r.Context(), username)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func MyProfile(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.GetProfile(r.Context(), middleware.UsernameFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// UpdateMyProfile replaces the caller's whole profile.
func UpdateMyProfile(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body accounts.Profile
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateProfile(r.Context(), middleware.UsernameFromContext(r.Context()), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "Profile updated"})
	}
}
