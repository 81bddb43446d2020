package controllers

import (
	"net/http"

	"github.com/openbiocard/openbiocard-backend/api/middleware"
	"github.com/openbiocard/openbiocard-backend/api/responses"
	"github.com/openbiocard/openbiocard-backend/api/validators"
	"github.com/openbiocard/openbiocard-backend/internal/identity"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
)

type signinRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func Signin(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body signinRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Signin(r.Context(), body.Username, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Me echoes the token check performed by the auth middleware.
func Me(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid token"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"valid":         true,
			"username":      principal.Username,
			"type":          principal.Type,
			"email":         principal.Email,
			"emailVerified": principal.EmailVerified,
		})
	}
}
