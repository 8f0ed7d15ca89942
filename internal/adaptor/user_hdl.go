package adaptor

import (
	"net/http"

	"cinema-core/internal/data/entity"
	"cinema-core/internal/dto/request"
	"cinema-core/internal/dto/response"
	"cinema-core/internal/usecase"
	"cinema-core/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler serves one variant per request, chosen by the {role} path
// segment. Passwords are hashed here; the service only sees hashes.
type UserHandler struct {
	service      usecase.UserService
	passwordCost int
	log          *zap.Logger
}

func NewUserHandler(service usecase.UserService, passwordCost int, log *zap.Logger) *UserHandler {
	return &UserHandler{
		service:      service,
		passwordCost: passwordCost,
		log:          log.With(zap.String("handler", "user")),
	}
}

func (h *UserHandler) role(w http.ResponseWriter, r *http.Request) (entity.UserRole, bool) {
	role, err := entity.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		utils.ResponseNotFound(w, "Unknown user role")
		return "", false
	}
	return role, true
}

// GetUsers handles GET /api/users/{role}; ?login filters by fragment.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}

	var (
		users []entity.User
		err   error
	)
	if fragment := r.URL.Query().Get("login"); fragment != "" {
		users, err = h.service.FindAllMatching(r.Context(), role, fragment)
	} else {
		users, err = h.service.FindAll(r.Context(), role)
	}
	if err != nil {
		writeServiceError(w, h.log, err, "get users")
		return
	}

	utils.ResponseSuccess(w, "Users retrieved successfully", response.UsersToResponse(users))
}

// GetUserByID handles GET /api/users/{role}/{id} and sets the ETag.
func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "User")
	if !ok {
		return
	}

	user, token, err := h.service.FindByIDWithToken(r.Context(), role, id, utils.GetCallerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "get user")
		return
	}

	setETag(w, token)
	utils.ResponseSuccess(w, "User retrieved successfully", response.UserToResponse(user))
}

// GetUserByLogin handles GET /api/users/{role}/login/{login}
func (h *UserHandler) GetUserByLogin(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}

	user, err := h.service.FindByLogin(r.Context(), role, chi.URLParam(r, "login"))
	if err != nil {
		writeServiceError(w, h.log, err, "get user by login")
		return
	}

	utils.ResponseSuccess(w, "User retrieved successfully", response.UserToResponse(user))
}

// CreateUser handles POST /api/users/{role}
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}

	var req request.UserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hash, err := utils.HashPassword(req.Password, h.passwordCost)
	if err != nil {
		h.log.Error("Failed to hash password", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	user, err := h.service.Create(r.Context(), role, req.Login, hash)
	if err != nil {
		writeServiceError(w, h.log, err, "create user")
		return
	}

	utils.ResponseCreated(w, "User created successfully", response.UserToResponse(user))
}

// UpdateUser handles PUT /api/users/{role}/{id}; requires If-Match.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "User")
	if !ok {
		return
	}
	token, ok := requireIfMatch(w, r)
	if !ok {
		return
	}

	var req request.UserUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var hash string
	if req.Password != "" {
		var err error
		hash, err = utils.HashPassword(req.Password, h.passwordCost)
		if err != nil {
			h.log.Error("Failed to hash password", zap.Error(err))
			utils.ResponseInternalError(w, "Internal server error")
			return
		}
	}

	user, err := entity.NewUser(role, entity.Account{
		Base:     entity.Base{ID: id},
		Login:    req.Login,
		Password: hash,
	})
	if err != nil {
		utils.ResponseNotFound(w, "Unknown user role")
		return
	}

	updated, err := h.service.Update(r.Context(), user, token, utils.GetCallerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "update user")
		return
	}

	utils.ResponseSuccess(w, "User updated successfully", response.UserToResponse(updated))
}

// DeleteUser handles DELETE /api/users/{role}/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "User")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, role); err != nil {
		writeServiceError(w, h.log, err, "delete user")
		return
	}

	utils.ResponseSuccess(w, "User deleted successfully", nil)
}

// GetUserTickets handles GET /api/users/{role}/{id}/tickets
func (h *UserHandler) GetUserTickets(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "User")
	if !ok {
		return
	}

	if _, err := h.service.FindByID(r.Context(), role, id); err != nil {
		writeServiceError(w, h.log, err, "get user tickets")
		return
	}
	tickets, err := h.service.Tickets(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "get user tickets")
		return
	}

	utils.ResponseSuccess(w, "Tickets retrieved successfully", response.TicketDetailsListToResponse(tickets))
}

// ActivateUser handles POST /api/accounts/{id}/activate
func (h *UserHandler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// DeactivateUser handles POST /api/accounts/{id}/deactivate
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *UserHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(w, r, "User")
	if !ok {
		return
	}

	var (
		user entity.User
		err  error
	)
	if active {
		user, err = h.service.Activate(r.Context(), id)
	} else {
		user, err = h.service.Deactivate(r.Context(), id)
	}
	if err != nil {
		writeServiceError(w, h.log, err, "set user status")
		return
	}

	utils.ResponseSuccess(w, "User status updated successfully", response.UserToResponse(user))
}
