// AngelaMos | 2026
// handler.go

package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/middleware"
)

const invalidCredentialsMessage = "invalid email or password"

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts /auth. public wraps signup and login, authenticated
// wraps /auth/me.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	public func(http.Handler) http.Handler,
	authenticated func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.With(public).Post("/signup", h.SignUp)
		r.With(public).Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
	})
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.SignUp(r.Context(), SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			core.JSONError(w, core.DuplicateError("email"))
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "name, email and password are required")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, ToTokenResponse(result))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.Login(r.Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: middleware.ClientIP(r),
	})
	if err != nil {
		var appErr *core.AppError
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			core.JSONError(w, core.UnauthorizedError(invalidCredentialsMessage))
		case errors.As(err, &appErr):
			core.JSONError(w, appErr)
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, ToTokenResponse(result))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	core.OK(w, MeResponse{
		UserID:    principal.UserID,
		Role:      principal.Role.String(),
		TokenID:   principal.TokenID,
		ExpiresAt: principal.ExpiresAt,
	})
}
