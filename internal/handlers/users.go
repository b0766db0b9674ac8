package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkghttp "github.com/gestaoconhecimento/gc-auth/pkg/http"
)

// UserService defines the interface for user business logic
type UserService interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	SetInternationalAccess(ctx context.Context, userID string, allow bool, actorID string) (*models.User, error)
}

// UserHandler handles the admin user views
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// InternationalAccessRequest represents the request body for the exemption toggle
type InternationalAccessRequest struct {
	Allow *bool `json:"allow" validate:"required"`
}

// UserResponse represents a user in the admin HTTP responses
type UserResponse struct {
	ID                       string     `json:"id"`
	Email                    string     `json:"email"`
	Name                     *string    `json:"name,omitempty"`
	Role                     string     `json:"role"`
	IsActive                 bool       `json:"isActive"`
	AllowInternationalAccess bool       `json:"allowInternationalAccess"`
	LastLoginAt              *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginIP              *string    `json:"lastLoginIp,omitempty"`
	LastLoginCountry         *string    `json:"lastLoginCountry,omitempty"`
	CreatedAt                string     `json:"createdAt"`
}

// ListUsersResponse represents a page of users
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

// userModelToResponse converts a user model to a response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:                       user.ID,
		Email:                    user.Email,
		Name:                     user.Name,
		Role:                     user.Role,
		IsActive:                 user.IsActive,
		AllowInternationalAccess: user.AllowInternationalAccess,
		LastLoginAt:              user.LastLoginAt,
		LastLoginIP:              user.LastLoginIP,
		LastLoginCountry:         user.LastLoginCountry,
		CreatedAt:                user.CreatedAt.Format(time.RFC3339),
	}
}

// GetUser handles GET /admin/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Usuário não encontrado")
			return
		}
		pkghttp.WriteInternalError(w, "Erro interno do servidor")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// ListUsers handles GET /admin/users?limit&offset
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if err := parseIntParam(l, &limit, 1, 500); err != nil {
			pkghttp.WriteBadRequest(w, "Parâmetro limit inválido")
			return
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if err := parseIntParam(o, &offset, 0, 100000); err != nil {
			pkghttp.WriteBadRequest(w, "Parâmetro offset inválido")
			return
		}
	}

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Erro interno do servidor")
		return
	}

	response := &ListUsersResponse{
		Users: make([]*UserResponse, len(users)),
		Total: len(users),
	}
	for i, user := range users {
		response.Users[i] = userModelToResponse(user)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// SetInternationalAccess handles PUT /admin/users/{id}/international-access
func (h *UserHandler) SetInternationalAccess(w http.ResponseWriter, r *http.Request) {
	var req InternationalAccessRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.SetInternationalAccess(r.Context(), chi.URLParam(r, "id"), *req.Allow, actorID(r))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Usuário não encontrado")
			return
		}
		pkghttp.WriteInternalError(w, "Erro interno do servidor")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// parseIntParam parses an integer parameter and checks its range
func parseIntParam(value string, dest *int, min, max int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n < min || n > max {
		return errors.New("parameter out of range")
	}
	*dest = n
	return nil
}
