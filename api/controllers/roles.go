package controllers

import (
	"net/http"

	"github.com/ideasdevops/lead-ia/api/middleware"
	"github.com/ideasdevops/lead-ia/api/responses"
	"github.com/ideasdevops/lead-ia/api/validators"
	"github.com/ideasdevops/lead-ia/internal/facade"
	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/logger"
)

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=50"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions"`
}

type updateRoleRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=50"`
	Description *string   `json:"description" validate:"omitempty,max=255"`
	Permissions *[]string `json:"permissions"`
}

func toRoleDTO(r models.Role) *identity.RoleDTO {
	return identity.RoleFromModel(&r)
}

func ListRoles(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := f.ListRoles(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]*identity.RoleDTO, 0, len(roles))
		for _, role := range roles {
			out = append(out, toRoleDTO(role))
		}
		responses.WriteSuccess(w, map[string]any{"roles": out})
	}
}

func GetRole(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "roleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := f.GetRole(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"role": toRoleDTO(*role)})
	}
}

func CreateRole(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := f.CreateRole(r.Context(), middleware.PrincipalFromContext(r.Context()), body.Name, body.Description, body.Permissions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"role": toRoleDTO(*role)})
	}
}

func UpdateRole(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "roleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := f.UpdateRole(r.Context(), middleware.PrincipalFromContext(r.Context()), id, identity.UpdateRoleInput{
			Name:        body.Name,
			Description: body.Description,
			Permissions: body.Permissions,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"role": toRoleDTO(*role)})
	}
}

func DeleteRole(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "roleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := f.DeleteRole(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

func ListPermissions(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perms, err := f.ListPermissions(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]identity.PermissionDTO, 0, len(perms))
		for _, p := range perms {
			out = append(out, identity.PermissionFromModel(p))
		}
		responses.WriteSuccess(w, map[string]any{"permissions": out})
	}
}
