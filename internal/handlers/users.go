package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fahndung/internal/middleware"
	"fahndung/internal/models"
	"fahndung/internal/store"
)

// Users groups the admin-only account management handlers.
type Users struct {
	userStore *store.UserStore
}

// NewUsers creates a new Users handler group.
func NewUsers(userStore *store.UserStore) *Users {
	return &Users{userStore: userStore}
}

// userView is the API shape for a user; the password hash and TOTP
// secret never leave the server.
type userView struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	TOTPEnabled bool      `json:"totp_enabled"`
}

func toUserView(u *models.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		TOTPEnabled: u.TOTPEnabled,
	}
}

// List returns all accounts.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.List()
	if err != nil {
		slog.Error("user list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, toUserView(&users[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

type createUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Create adds a new account. The user must set up 2FA on first login.
func (h *Users) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	role := models.Role(req.Role)
	if role != models.RoleAdmin && role != models.RoleEditor {
		writeError(w, http.StatusBadRequest, "role must be admin or editor")
		return
	}

	existing, err := h.userStore.FindByEmail(req.Email)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already in use")
		return
	}

	user, err := h.userStore.Create(req.Email, req.Password, req.DisplayName, role)
	if err != nil {
		slog.Error("user create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("user created", "email", user.Email, "role", user.Role)
	writeJSON(w, http.StatusCreated, toUserView(user))
}

// ResetTOTP clears a user's 2FA enrolment, forcing a fresh setup on
// their next login. Used when someone loses their authenticator.
func (h *Users) ResetTOTP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userStore.FindByID(id)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.userStore.ResetTOTP(id); err != nil {
		slog.Error("totp reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("totp reset", "email", user.Email)
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// Delete removes an account. Admins cannot delete themselves.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil && sess.UserID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	user, err := h.userStore.FindByID(id)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.userStore.Delete(id); err != nil {
		slog.Error("user delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("user deleted", "email", user.Email)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
