// AngelaMos | 2026
// dto.go

package user

import (
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
)

// UpdateUserRoleRequest is the body of PUT /admin/users/{id}/role, the only
// runtime path that grants moderator or admin.
type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user moderator admin"`
}

// UserResponse is the admin view of an account. The password hash never
// leaves the repository layer.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListUsersParams filters the admin user listing. Search matches email or
// name; Role must parse as a core.Role when set.
type ListUsersParams struct {
	core.Pagination
	Search string
	Role   string
}

// ListUsersParamsFromQuery reads page, page_size, search and role. An
// unknown role is left for the service to reject.
func ListUsersParamsFromQuery(r *http.Request) ListUsersParams {
	q := r.URL.Query()
	return ListUsersParams{
		Pagination: core.PaginationFromQuery(r),
		Search:     strings.TrimSpace(q.Get("search")),
		Role:       strings.ToLower(strings.TrimSpace(q.Get("role"))),
	}
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = ToUserResponse(&users[i])
	}
	return responses
}
