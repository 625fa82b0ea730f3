package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/satheeshds/roomrent/auth"
	"github.com/satheeshds/roomrent/models"
)

var errLastAdmin = errors.New("at least one active admin must remain")

const userSelectQuery = `SELECT id, username, email, full_name, password_hash, role, is_active,
	last_login_at, created_at, updated_at FROM users`

func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := scanner.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// InsertUser hashes the password and stores a new user. The input must
// already be validated.
func InsertUser(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, input models.UserInput) (models.User, error) {
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}
	return scanUser(q.QueryRow(ctx, `INSERT INTO users (username, email, full_name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, email, full_name, password_hash, role, is_active, last_login_at, created_at, updated_at`,
		input.Username, input.Email, input.FullName, hash, input.Role, *input.IsActive))
}

// ensureOtherAdmin fails with errLastAdmin unless an active admin other
// than userID exists. Admin rows are locked until the transaction ends.
func ensureOtherAdmin(ctx context.Context, tx pgx.Tx, userID int) error {
	rows, err := tx.Query(ctx, "SELECT id FROM users WHERE role = 'Admin' AND is_active FOR UPDATE")
	if err != nil {
		return err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id != userID {
			return nil
		}
	}
	return errLastAdmin
}

// ListUsers lists users
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        role    query     string  false  "Filter by role"
// @Param        active  query     bool    false  "Filter by active flag"
// @Success      200     {object}  Response{data=[]models.User}
// @Router       /users [get]
// @Security     BearerAuth
func ListUsers(w http.ResponseWriter, r *http.Request) {
	var f filter
	q := r.URL.Query()
	if role := q.Get("role"); role != "" {
		f.add("role = ?", role)
	}
	if a := q.Get("active"); a != "" {
		f.add("is_active = ?::BOOLEAN", a)
	}
	rows, err := DB.Query(r.Context(), userSelectQuery+f.where()+" ORDER BY username", f.args...)
	if err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			writeServiceError(w, r, "user", err)
			return
		}
		users = append(users, u)
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser retrieves a user
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  Response{data=models.User}
// @Failure      404  {object}  Response
// @Router       /users/{id} [get]
// @Security     BearerAuth
func GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	u, err := scanUser(DB.QueryRow(r.Context(), userSelectQuery+" WHERE id = $1", id))
	if err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CreateUser creates a user
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user  body      models.UserInput  true  "User"
// @Success      201   {object}  Response{data=models.User}
// @Failure      400   {object}  Response
// @Failure      409   {object}  Response
// @Router       /users [post]
// @Security     BearerAuth
func CreateUser(w http.ResponseWriter, r *http.Request) {
	var input models.UserInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	u, err := InsertUser(r.Context(), DB, input)
	if err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUser updates a user's profile, role and active flag
// @Summary      Update user
// @Description  Password is ignored here; use reset-password. The last active admin cannot be demoted or deactivated.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "User ID"
// @Param        user  body      models.UserInput  true  "User"
// @Success      200   {object}  Response{data=models.User}
// @Failure      400   {object}  Response
// @Failure      404   {object}  Response
// @Router       /users/{id} [put]
// @Security     BearerAuth
func UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.UserInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var u models.User
	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		cur, err := scanUser(tx.QueryRow(r.Context(), userSelectQuery+" WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			return err
		}
		losingAdmin := cur.Role == models.RoleAdmin && cur.IsActive &&
			(input.Role != models.RoleAdmin || !*input.IsActive)
		if losingAdmin {
			if err := ensureOtherAdmin(r.Context(), tx, id); err != nil {
				return err
			}
		}
		u, err = scanUser(tx.QueryRow(r.Context(), `UPDATE users
			SET username = $1, email = $2, full_name = $3, role = $4, is_active = $5, updated_at = now()
			WHERE id = $6
			RETURNING id, username, email, full_name, password_hash, role, is_active, last_login_at, created_at, updated_at`,
			input.Username, input.Email, input.FullName, input.Role, *input.IsActive, id))
		return err
	})
	if err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser deletes a user
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  Response
// @Failure      404  {object}  Response
// @Router       /users/{id} [delete]
// @Security     BearerAuth
func DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		var role string
		var active bool
		if err := tx.QueryRow(r.Context(), "SELECT role, is_active FROM users WHERE id = $1 FOR UPDATE", id).Scan(&role, &active); err != nil {
			return err
		}
		if role == models.RoleAdmin && active {
			if err := ensureOtherAdmin(r.Context(), tx, id); err != nil {
				return err
			}
		}
		_, err := tx.Exec(r.Context(), "DELETE FROM users WHERE id = $1", id)
		return err
	})
	if err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	writeMessage(w, http.StatusOK, "user deleted")
}

// ResetPassword sets a user's password without the current one
// @Summary      Reset password
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int                   true  "User ID"
// @Param        body  body      models.PasswordInput  true  "New password (current_password is ignored)"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Failure      404   {object}  Response
// @Router       /users/{id}/reset-password [post]
// @Security     BearerAuth
func ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.PasswordInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := setPassword(r.Context(), id, input.NewPassword); err != nil {
		writeServiceError(w, r, "user", err)
		return
	}
	writeMessage(w, http.StatusOK, "password reset")
}

func setPassword(ctx context.Context, userID int, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	tag, err := DB.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", hash, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
