// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/bookshelf/internal/auth"
	"github.com/carterperez-dev/templates/bookshelf/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) FindByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	email, name, passwordHash string,
	role core.Role,
) (*auth.UserInfo, error) {
	if role == "" {
		role = core.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("create user: role %q: %w", role, core.ErrInvalidInput)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateUserRole is the only path that grants moderator or admin.
func (s *Service) UpdateUserRole(
	ctx context.Context,
	actorID, id, role string,
) (*User, error) {
	parsed, err := core.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	if actorID == id && parsed != core.RoleAdmin {
		return nil, fmt.Errorf(
			"update role: cannot demote yourself: %w",
			core.ErrForbidden,
		)
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("update role: %w", core.ErrNotFound)
	}

	user, err := s.repo.UpdateRole(ctx, id, parsed)
	if err != nil {
		return nil, err
	}

	slog.Info("user role changed",
		"actor_id", actorID,
		"user_id", user.ID,
		"role", user.Role,
	)

	return user, nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	if params.Role != "" {
		role, err := core.ParseRole(params.Role)
		if err != nil {
			return nil, 0, fmt.Errorf("list users: %w", err)
		}
		params.Role = role.String()
	}
	return s.repo.List(ctx, params)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
	}
}

var _ auth.CredentialStore = (*Service)(nil)
