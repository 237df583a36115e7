package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/pkg/authsdk"
	"github.com/aussiebroadwan/currex/pkg/httpx"
	"github.com/aussiebroadwan/currex/pkg/slogx"
)

// ClientsHandler serves self-service registration of API clients.
type ClientsHandler struct {
	UserService *service.UserService
}

// HandleRegister godoc
//
//	@Summary		Register an API client
//	@Description	Creates an active API_CLIENT user. Every credential rule is checked and all failures are reported per field.
//	@Tags			Clients
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string							true	"Username"
//	@Param			password1	formData	string							true	"Password"
//	@Param			password2	formData	string							true	"Password confirmation"
//	@Success		201			{object}	authsdk.UserResponse			"id, username, category, is_active"
//	@Failure		400			{object}	authsdk.ValidationErrorResponse	"Submitted values invalid"
//	@Failure		409			{object}	authsdk.ValidationErrorResponse	"User already exists"
//	@Failure		429			{string}	string							"rate limit exceeded"
//	@Router			/clients/register [post].
func (h *ClientsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if !parseForm(w, r) {
		return
	}

	u, err := h.UserService.Register(r.Context(), service.RegisterRequest{
		Username:  strings.TrimSpace(r.PostForm.Get("username")),
		Password1: r.PostForm.Get("password1"),
		Password2: r.PostForm.Get("password2"),
	})
	if err != nil {
		var verrs service.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			log.Info("registration rejected", "errors", verrs)
			(&authsdk.ValidationErrorResponse{
				StatusCode: http.StatusBadRequest,
				Errors:     verrs,
			}).WriteError(w)
		case errors.Is(err, service.ErrUserExists):
			log.Info("registration rejected, username taken")
			(&authsdk.ValidationErrorResponse{
				StatusCode: http.StatusConflict,
				Errors:     map[string][]string{service.FieldUsername: {"Username already in use"}},
			}).WriteError(w)
		default:
			log.Error("registration failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	log.Info("registered user", "username", u.Username, "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusCreated, userResponse(u))
}

func userResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Category: string(u.Category),
		IsActive: u.IsActive,
	}
}
