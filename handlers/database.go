package handlers

import (
	"net/http"

	"github.com/satheeshds/roomrent/db"
	"github.com/satheeshds/roomrent/export"
)

// ExportDir is where database snapshots are written.
var ExportDir = "exports"

type databaseStatus struct {
	Version    int64                `json:"version"`
	Migrations []db.MigrationStatus `json:"migrations"`
	TotalConns int32                `json:"total_conns"`
	IdleConns  int32                `json:"idle_conns"`
	MaxConns   int32                `json:"max_conns"`
}

// GetDatabaseStatus reports schema migrations and pool usage
// @Summary      Database status
// @Tags         database
// @Produce      json
// @Success      200  {object}  Response{data=databaseStatus}
// @Router       /database/status [get]
// @Security     BearerAuth
func GetDatabaseStatus(w http.ResponseWriter, r *http.Request) {
	migrations, err := db.Status(r.Context(), DB)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	v, err := db.Version(r.Context(), DB)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	stat := DB.Stat()
	writeJSON(w, http.StatusOK, databaseStatus{
		Version:    v,
		Migrations: migrations,
		TotalConns: stat.TotalConns(),
		IdleConns:  stat.IdleConns(),
		MaxConns:   stat.MaxConns(),
	})
}

// RunMigrations applies pending migrations
// @Summary      Migrate database
// @Tags         database
// @Produce      json
// @Success      200  {object}  Response
// @Router       /database/migrate [post]
// @Security     BearerAuth
func RunMigrations(w http.ResponseWriter, r *http.Request) {
	if err := db.Migrate(r.Context(), DB); err != nil {
		writeServiceError(w, r, "migration", err)
		return
	}
	v, err := db.Version(r.Context(), DB)
	if err != nil {
		writeServiceError(w, r, "migration", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"version": v})
}

// ExportDatabase writes a parquet snapshot of every table
// @Summary      Export database
// @Description  Writes one parquet file per table into a new snapshot directory on the server.
// @Tags         database
// @Produce      json
// @Success      200  {object}  Response{data=export.Result}
// @Router       /database/export [post]
// @Security     BearerAuth
func ExportDatabase(w http.ResponseWriter, r *http.Request) {
	res, err := export.Snapshot(r.Context(), DB, ExportDir)
	if err != nil {
		writeServiceError(w, r, "export", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
