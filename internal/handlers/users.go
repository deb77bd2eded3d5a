package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/platform/auth"
	"github.com/amber-cafe/api/internal/platform/httpx"
	"github.com/amber-cafe/api/internal/services"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
	maxUserBodySize     = 16 * 1024
)

// UserHandlers exposes the staff account endpoints. All writes require the
// manager role; reads require any authenticated staff member.
type UserHandlers struct {
	authn *auth.Authenticator
	users services.UserService
}

// NewUserHandlers constructs a new UserHandlers instance.
func NewUserHandlers(authn *auth.Authenticator, users services.UserService) *UserHandlers {
	return &UserHandlers{
		authn: authn,
		users: users,
	}
}

// Routes registers the /users endpoints.
func (h *UserHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.listUsers)
	r.Get("/{userID}", h.getUser)
	r.Group(func(g chi.Router) {
		if h.authn != nil {
			g.Use(h.authn.RequireManager())
		}
		g.Put("/{userID}", h.upsertUser)
		g.Post("/{userID}:deactivate", h.deactivateUser)
	})
}

type upsertUserRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Locale string `json:"locale"`
	Active *bool  `json:"active"`
}

func (h *UserHandlers) upsertUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireService(ctx, w)
	if !ok {
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user id is required", http.StatusBadRequest))
		return
	}

	var req upsertUserRequest
	if !decodeJSONBody(ctx, w, r, maxUserBodySize, &req) {
		return
	}

	user, err := h.users.UpsertUser(ctx, services.UpsertUserCommand{
		ID:     userID,
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
		Locale: req.Locale,
		Active: req.Active,
		Actor:  identity.UID,
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, userResponse{User: buildUserPayload(user)})
}

func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireService(ctx, w); !ok {
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user id is required", http.StatusBadRequest))
		return
	}

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, userResponse{User: buildUserPayload(user)})
}

func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireService(ctx, w); !ok {
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultUserPageSize, maxUserPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	page, err := h.users.ListUsers(ctx, services.UserListFilter{
		Role:       strings.ToLower(strings.TrimSpace(query.Get("role"))),
		ActiveOnly: query.Get("active") == "true",
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	items := make([]userPayload, 0, len(page.Items))
	for _, user := range page.Items {
		items = append(items, buildUserPayload(user))
	}
	writeJSONResponse(w, http.StatusOK, userListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *UserHandlers) deactivateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireService(ctx, w)
	if !ok {
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user id is required", http.StatusBadRequest))
		return
	}

	user, err := h.users.DeactivateUser(ctx, services.DeactivateUserCommand{
		UserID: userID,
		Actor:  identity.UID,
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, userResponse{User: buildUserPayload(user)})
}

func (h *UserHandlers) requireService(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

// Response payloads ----------------------------------------------------------

type userResponse struct {
	User userPayload `json:"user"`
}

type userListResponse struct {
	Items         []userPayload `json:"items"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type userPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	Locale    string `json:"locale,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func buildUserPayload(user domain.User) userPayload {
	return userPayload{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Locale:    user.Locale,
		Active:    user.Active,
		CreatedAt: formatTimestamp(user.CreatedAt),
		UpdatedAt: formatTimestamp(user.UpdatedAt),
	}
}

func writeUserError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
	case errors.Is(err, services.ErrUserLastManager):
		httpx.WriteError(ctx, w, httpx.NewError("last_manager", "at least one active manager must remain", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}
