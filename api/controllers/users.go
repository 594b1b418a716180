package controllers

import (
	"net/http"
	"strings"

	"github.com/ideasdevops/lead-ia/api/middleware"
	"github.com/ideasdevops/lead-ia/api/responses"
	"github.com/ideasdevops/lead-ia/api/validators"
	"github.com/ideasdevops/lead-ia/internal/facade"
	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/logger"
	"github.com/ideasdevops/lead-ia/pkg/pagination"
)

type updateUserRequest struct {
	Email      *string   `json:"email" validate:"omitempty,email"`
	FirstName  *string   `json:"first_name" validate:"omitempty,max=100"`
	LastName   *string   `json:"last_name" validate:"omitempty,max=100"`
	Password   *string   `json:"password" validate:"omitempty,min=8"`
	IsActive   *bool     `json:"is_active"`
	IsApproved *bool     `json:"is_approved"`
	Roles      *[]string `json:"roles"`
}

func (req updateUserRequest) input() identity.UpdateUserInput {
	return identity.UpdateUserInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Password:   req.Password,
		IsActive:   req.IsActive,
		IsApproved: req.IsApproved,
		Roles:      req.Roles,
	}
}

func toUserDTO(u models.User) *identity.UserDTO {
	return identity.UserFromModel(&u)
}

func toUserDTOs(users []models.User) []*identity.UserDTO {
	out := make([]*identity.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	return out
}

// ListUsers supports ?search=&page=&per_page=.
func ListUsers(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParseQueryInt(r, "page", 1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perPage, err := validators.ParseQueryInt(r, "per_page", identity.DefaultUsersPerPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := f.ListUsers(r.Context(), middleware.PrincipalFromContext(r.Context()), identity.UserFilter{
			Search:  strings.TrimSpace(r.URL.Query().Get("search")),
			Page:    page,
			PerPage: perPage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.Map(result, toUserDTO))
	}
}

func ListPendingUsers(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := f.ListPendingUsers(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"users": toUserDTOs(users)})
	}
}

func GetUser(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := f.GetUser(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user": toUserDTO(*user)})
	}
}

func UpdateUser(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := f.UpdateUser(r.Context(), middleware.PrincipalFromContext(r.Context()), id, body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user": toUserDTO(*user)})
	}
}

func DeleteUser(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := f.DeleteUser(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

func ApproveUser(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := f.ApproveUser(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user": toUserDTO(*user)})
	}
}
