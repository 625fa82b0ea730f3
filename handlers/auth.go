package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/satheeshds/roomrent/auth"
	"github.com/satheeshds/roomrent/models"
)

var errWrongPassword = errors.New("current password is incorrect")

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Login exchanges credentials for a bearer token
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      models.LoginInput  true  "Credentials"
// @Success      200          {object}  Response{data=loginResponse}
// @Failure      400          {object}  Response
// @Failure      401          {object}  Response
// @Failure      429          {object}  Response
// @Router       /auth/login [post]
func Login(w http.ResponseWriter, r *http.Request) {
	var input models.LoginInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	u, err := scanUser(DB.QueryRow(r.Context(), userSelectQuery+" WHERE username = $1", input.Username))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		writeServiceError(w, r, "user", err)
		return
	}
	// Unknown users, bad passwords and disabled accounts look the same.
	if err != nil || !u.IsActive || !auth.CheckPasswordHash(input.Password, u.PasswordHash) {
		slog.Warn("login failed", "username", input.Username)
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, exp, err := Tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		writeServiceError(w, r, "token", err)
		return
	}
	if err := DB.QueryRow(r.Context(), "UPDATE users SET last_login_at = now() WHERE id = $1 RETURNING last_login_at", u.ID).
		Scan(&u.LastLoginAt); err != nil {
		slog.Error("recording login", "user_id", u.ID, "error", err)
	}
	slog.Info("user logged in", "user_id", u.ID, "role", u.Role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, User: u})
}

// Me returns the authenticated user
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  Response{data=models.User}
// @Failure      401  {object}  Response
// @Router       /auth/me [get]
// @Security     BearerAuth
func Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	u, err := scanUser(DB.QueryRow(r.Context(), userSelectQuery+" WHERE id = $1", claims.UserID))
	if err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ChangePassword changes the caller's own password
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.PasswordInput  true  "Current and new password"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Router       /auth/change-password [post]
// @Security     BearerAuth
func ChangePassword(w http.ResponseWriter, r *http.Request) {
	var input models.PasswordInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	claims := auth.ClaimsFrom(r.Context())
	var hash string
	if err := DB.QueryRow(r.Context(), "SELECT password_hash FROM users WHERE id = $1", claims.UserID).Scan(&hash); err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	if !auth.CheckPasswordHash(input.CurrentPassword, hash) {
		writeServiceError(w, r, "user", errWrongPassword)
		return
	}
	if err := setPassword(r.Context(), claims.UserID, input.NewPassword); err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	writeMessage(w, http.StatusOK, "password changed")
}
