// Package export writes point-in-time parquet snapshots of the database
// using an in-process DuckDB. All tables are read in one repeatable-read
// transaction.
package export

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Tables exported by Snapshot, keyed by output name. Password hashes never
// leave the database.
var Tables = []struct {
	Name  string
	Query string
}{
	{"rooms", "SELECT * FROM rooms ORDER BY id"},
	{"tenants", "SELECT * FROM tenants ORDER BY id"},
	{"items", "SELECT * FROM items ORDER BY id"},
	{"invoices", "SELECT * FROM invoices ORDER BY id"},
	{"invoice_items", "SELECT * FROM invoice_items ORDER BY id"},
	{"payments", "SELECT * FROM payments ORDER BY id"},
	{"users", "SELECT id, username, email, full_name, role, is_active, last_login_at, created_at, updated_at FROM users ORDER BY id"},
	{"system_settings", "SELECT * FROM system_settings ORDER BY key"},
	{"languages", "SELECT * FROM languages ORDER BY code"},
	{"translations", "SELECT * FROM translations ORDER BY language_code, key"},
}

// Beginner is the subset of pgxpool.Pool used to open the read transaction.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Querier runs the per-table reads.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// File describes one exported table.
type File struct {
	Table string `json:"table"`
	Path  string `json:"path,omitempty"`
	Rows  int64  `json:"rows"`
}

// Result describes a finished snapshot.
type Result struct {
	SnapshotID string    `json:"snapshot_id"`
	Dir        string    `json:"dir"`
	CreatedAt  time.Time `json:"created_at"`
	Files      []File    `json:"files"`
}

// Snapshot exports every table in Tables to baseDir/<timestamp>-<id>/<table>.parquet.
// Tables with no rows are listed without a file. On failure the snapshot
// directory is removed.
func Snapshot(ctx context.Context, db Beginner, baseDir string) (_ *Result, err error) {
	now := time.Now().UTC()
	res := &Result{SnapshotID: uuid.NewString(), CreatedAt: now}
	res.Dir = filepath.Join(baseDir, now.Format("20060102T150405")+"-"+res.SnapshotID[:8])
	if err := os.MkdirAll(res.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(res.Dir)
		}
	}()

	counts := make([]int64, len(Tables))
	err = pgx.BeginTxFunc(ctx, db, snapshotTx, func(tx pgx.Tx) error {
		for i, t := range Tables {
			n, err := dumpJSON(ctx, tx, t.Query, filepath.Join(res.Dir, t.Name+".ndjson"))
			if err != nil {
				return fmt.Errorf("reading %s: %w", t.Name, err)
			}
			counts[i] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	duck, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	defer duck.Close()

	for i, t := range Tables {
		jsonPath := filepath.Join(res.Dir, t.Name+".ndjson")
		f := File{Table: t.Name, Rows: counts[i]}
		if f.Rows > 0 {
			f.Path = filepath.Join(res.Dir, t.Name+".parquet")
			if err := WriteParquet(ctx, duck, jsonPath, f.Path); err != nil {
				return nil, fmt.Errorf("writing %s: %w", t.Name, err)
			}
		}
		os.Remove(jsonPath)
		res.Files = append(res.Files, f)
	}

	slog.Info("export finished", "snapshot_id", res.SnapshotID, "dir", res.Dir, "tables", len(res.Files))
	return res, nil
}

// dumpJSON writes the rows of query to path as newline-delimited JSON.
func dumpJSON(ctx context.Context, q Querier, query, path string) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	rows, err := q.Query(ctx, "SELECT row_to_json(t)::TEXT FROM ("+query+") t")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	bw := bufio.NewWriter(out)
	var n int64
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return n, err
		}
		bw.WriteString(line)
		bw.WriteByte('\n')
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	return n, bw.Flush()
}

// WriteParquet converts a newline-delimited JSON file into a parquet file.
func WriteParquet(ctx context.Context, duck *sql.DB, jsonPath, parquetPath string) error {
	stmt := fmt.Sprintf("COPY (SELECT * FROM read_json_auto(%s, format = 'newline_delimited')) TO %s (FORMAT PARQUET)",
		quote(jsonPath), quote(parquetPath))
	_, err := duck.ExecContext(ctx, stmt)
	return err
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
