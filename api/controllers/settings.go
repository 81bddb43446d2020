package controllers

import (
	"net/http"

	"github.com/openbiocard/openbiocard-backend/api/responses"
	"github.com/openbiocard/openbiocard-backend/api/validators"
	"github.com/openbiocard/openbiocard-backend/internal/directory"
	"github.com/openbiocard/openbiocard-backend/internal/identity"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
)

const (
	maxTitleLen = 100
	maxLogoLen  = 2048
)

type settingsRequest struct {
	Title string `json:"title" validate:"required,max=100"`
	Logo  string `json:"logo" validate:"max=2048"`
}

// Settings serves both the public read and the admin read.
func Settings(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := svc.GetSettings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

func UpdateSettings(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body settingsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings := directory.Settings{
			Title: validators.SanitizeString(body.Title, maxTitleLen),
			Logo:  validators.SanitizeString(body.Logo, maxLogoLen),
		}
		if err := svc.UpdateSettings(r.Context(), settings); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}
