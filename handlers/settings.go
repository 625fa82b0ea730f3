package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/satheeshds/roomrent/db"
	"github.com/satheeshds/roomrent/models"
)

var errSystemSetting = errors.New("system settings cannot be deleted")

// Version is reported by the system info endpoint.
var Version = "dev"

var startedAt = time.Now()

const settingSelectQuery = `SELECT key, value, description, category, is_system, updated_at FROM system_settings`

func scanSetting(scanner interface{ Scan(...any) error }) (models.SystemSetting, error) {
	var s models.SystemSetting
	err := scanner.Scan(&s.Key, &s.Value, &s.Description, &s.Category, &s.IsSystem, &s.UpdatedAt)
	return s, err
}

// settingValues returns every setting as key/value pairs.
func settingValues(ctx context.Context) (map[string]string, error) {
	rows, err := DB.Query(ctx, "SELECT key, value FROM system_settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// checkSettingValue rejects values the application could not use.
func checkSettingValue(key, value string) string {
	if key == models.SettingDueDays {
		if n, err := strconv.Atoi(value); err != nil || n < 0 || n > 365 {
			return "billing.due_days must be a whole number of days between 0 and 365"
		}
	}
	return ""
}

type systemInfo struct {
	Version       string `json:"version"`
	GoVersion     string `json:"go_version"`
	StartedAt     string `json:"started_at"`
	Uptime        string `json:"uptime"`
	SchemaVersion int64  `json:"schema_version"`
	Rooms         int    `json:"rooms"`
	Tenants       int    `json:"tenants"`
	Invoices      int    `json:"invoices"`
	Payments      int    `json:"payments"`
	Users         int    `json:"users"`
}

// GetSystemInfo reports version and record counts
// @Summary      System info
// @Tags         systemmanagement
// @Produce      json
// @Success      200  {object}  Response{data=systemInfo}
// @Router       /systemmanagement/info [get]
// @Security     BearerAuth
func GetSystemInfo(w http.ResponseWriter, r *http.Request) {
	info := systemInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
		StartedAt: startedAt.UTC().Format(time.RFC3339),
		Uptime:    time.Since(startedAt).Round(time.Second).String(),
	}
	v, err := db.Version(r.Context(), DB)
	if err != nil {
		writeServiceError(w, r, "system info", err)
		return
	}
	info.SchemaVersion = v
	err = DB.QueryRow(r.Context(), `SELECT
		(SELECT COUNT(*) FROM rooms)::INT,
		(SELECT COUNT(*) FROM tenants)::INT,
		(SELECT COUNT(*) FROM invoices)::INT,
		(SELECT COUNT(*) FROM payments)::INT,
		(SELECT COUNT(*) FROM users)::INT`).
		Scan(&info.Rooms, &info.Tenants, &info.Invoices, &info.Payments, &info.Users)
	if err != nil {
		writeServiceError(w, r, "system info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ListSettings lists system settings
// @Summary      List settings
// @Tags         systemmanagement
// @Produce      json
// @Param        category  query     string  false  "Filter by category"
// @Success      200       {object}  Response{data=[]models.SystemSetting}
// @Router       /systemmanagement/settings [get]
// @Security     BearerAuth
func ListSettings(w http.ResponseWriter, r *http.Request) {
	var f filter
	if c := r.URL.Query().Get("category"); c != "" {
		f.add("category = ?", c)
	}
	rows, err := DB.Query(r.Context(), settingSelectQuery+f.where()+" ORDER BY category, key", f.args...)
	if err != nil {
		writeServiceError(w, r, "setting", err)
		return
	}
	defer rows.Close()

	settings := []models.SystemSetting{}
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			writeServiceError(w, r, "setting", err)
			return
		}
		settings = append(settings, s)
	}
	writeJSON(w, http.StatusOK, settings)
}

// GetSetting retrieves one setting
// @Summary      Get setting
// @Tags         systemmanagement
// @Produce      json
// @Param        key  path      string  true  "Setting key"
// @Success      200  {object}  Response{data=models.SystemSetting}
// @Failure      404  {object}  Response
// @Router       /systemmanagement/settings/{key} [get]
// @Security     BearerAuth
func GetSetting(w http.ResponseWriter, r *http.Request) {
	s, err := scanSetting(DB.QueryRow(r.Context(), settingSelectQuery+" WHERE key = $1", chi.URLParam(r, "key")))
	if err != nil {
		writeServiceError(w, r, "setting", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// CreateSetting adds a setting
// @Summary      Create setting
// @Tags         systemmanagement
// @Accept       json
// @Produce      json
// @Param        setting  body      models.SettingInput  true  "Setting"
// @Success      201      {object}  Response{data=models.SystemSetting}
// @Failure      400      {object}  Response
// @Failure      409      {object}  Response
// @Router       /systemmanagement/settings [post]
// @Security     BearerAuth
func CreateSetting(w http.ResponseWriter, r *http.Request) {
	var input models.SettingInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := checkSettingValue(input.Key, input.Value); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s, err := scanSetting(DB.QueryRow(r.Context(), `INSERT INTO system_settings (key, value, description, category)
		VALUES ($1, $2, $3, $4) RETURNING key, value, description, category, is_system, updated_at`,
		input.Key, input.Value, input.Description, input.Category))
	if err != nil {
		writeServiceError(w, r, "setting", err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// UpdateSetting changes a setting's value
// @Summary      Update setting
// @Tags         systemmanagement
// @Accept       json
// @Produce      json
// @Param        key      path      string               true  "Setting key"
// @Param        setting  body      models.SettingInput  true  "Setting"
// @Success      200      {object}  Response{data=models.SystemSetting}
// @Failure      400      {object}  Response
// @Failure      404      {object}  Response
// @Router       /systemmanagement/settings/{key} [put]
// @Security     BearerAuth
func UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var input models.SettingInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Key = chi.URLParam(r, "key")
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := checkSettingValue(input.Key, input.Value); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s, err := scanSetting(DB.QueryRow(r.Context(), `UPDATE system_settings
		SET value = $1, description = COALESCE($2, description), category = $3, updated_at = now()
		WHERE key = $4 RETURNING key, value, description, category, is_system, updated_at`,
		input.Value, input.Description, input.Category, input.Key))
	if err != nil {
		writeServiceError(w, r, "setting", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteSetting removes a non-system setting
// @Summary      Delete setting
// @Tags         systemmanagement
// @Produce      json
// @Param        key  path      string  true  "Setting key"
// @Success      200  {object}  Response
// @Failure      400  {object}  Response
// @Failure      404  {object}  Response
// @Router       /systemmanagement/settings/{key} [delete]
// @Security     BearerAuth
func DeleteSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		var system bool
		if err := tx.QueryRow(r.Context(), "SELECT is_system FROM system_settings WHERE key = $1 FOR UPDATE", key).Scan(&system); err != nil {
			return err
		}
		if system {
			return fmt.Errorf("%w: %s", errSystemSetting, key)
		}
		_, err := tx.Exec(r.Context(), "DELETE FROM system_settings WHERE key = $1", key)
		return err
	})
	if err != nil {
		writeServiceError(w, r, "setting", err)
		return
	}
	writeMessage(w, http.StatusOK, "setting deleted")
}
