package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openbiocard/openbiocard-backend/api/middleware"
	"github.com/openbiocard/openbiocard-backend/api/responses"
	"github.com/openbiocard/openbiocard-backend/api/validators"
	"github.com/openbiocard/openbiocard-backend/internal/directory"
	"github.com/openbiocard/openbiocard-backend/internal/identity"
	"github.com/openbiocard/openbiocard-backend/pkg/enums"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
)

type adminCreateUserRequest struct {
	Username string `json:"newUsername" validate:"required,username"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Type     string `json:"type" validate:"omitempty,oneof=user admin"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

type adminPasswordRequest struct {
	TargetUsername string `json:"targetUsername" validate:"required"`
	NewPassword    string `json:"newPassword" validate:"required,min=6,max=128"`
}

type adminSyncRequest struct {
	TargetUsername string `json:"targetUsername" validate:"required"`
}

// CheckPermission only runs behind RequireRole, so reaching it is the answer.
func CheckPermission(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"success": true,
			"type":    middleware.RoleFromContext(r.Context()),
		})
	}
}

func AdminListUsers(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if users == nil {
			users = []directory.Entry{}
		}
		responses.WriteSuccess(w, map[string]any{"users": users})
	}
}

func AdminCreateUser(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adminCreateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateUser(r.Context(), identity.CreateUserInput{
			Username: body.Username,
			Password: body.Password,
			Type:     enums.AccountType(body.Type),
			Email:    body.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func AdminDeleteUser(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid token"))
			return
		}
		username := chi.URLParam(r, "username")
		if err := svc.DeleteUser(r.Context(), principal, username); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "User deleted"})
	}
}

func AdminChangePassword(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adminPasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ChangePassword(r.Context(), body.TargetUsername, body.NewPassword); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "Password updated"})
	}
}

// AdminSyncExisting re-projects one account into the directory.
func AdminSyncExisting(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adminSyncRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Resync(r.Context(), body.TargetUsername); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "User synced"})
	}
}
