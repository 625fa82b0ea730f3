package export

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"plain":        `'plain'`,
		"/tmp/o'brien": `'/tmp/o''brien'`,
		"":             `''`,
	}
	for in, want := range tests {
		if got := quote(in); got != want {
			t.Errorf("quote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteParquet(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "rooms.ndjson")
	data := `{"id":1,"room_number":"101","monthly_rent":120000}
{"id":2,"room_number":"102","monthly_rent":90000}
`
	if err := os.WriteFile(jsonPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	duck, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatal(err)
	}
	defer duck.Close()

	ctx := context.Background()
	parquetPath := filepath.Join(dir, "rooms.parquet")
	if err := WriteParquet(ctx, duck, jsonPath, parquetPath); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}

	var count, total int64
	err = duck.QueryRowContext(ctx, "SELECT COUNT(*), SUM(monthly_rent)::BIGINT FROM read_parquet("+quote(parquetPath)+")").
		Scan(&count, &total)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 || total != 210000 {
		t.Errorf("got %d rows totalling %d, want 2 rows totalling 210000", count, total)
	}
}

func TestTablesExcludePasswordHash(t *testing.T) {
	for _, tbl := range Tables {
		if tbl.Name == "users" && strings.Contains(tbl.Query, "password_hash") {
			t.Fatal("users export must not include password_hash")
		}
	}
}

type failingBeginner struct {
	opts pgx.TxOptions
	err  error
}

func (f *failingBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.opts = opts
	return nil, f.err
}

func TestSnapshotReadsInRepeatableReadTx(t *testing.T) {
	db := &failingBeginner{err: errors.New("connection refused")}
	base := t.TempDir()

	_, err := Snapshot(context.Background(), db, base)
	if !errors.Is(err, db.err) {
		t.Fatalf("err = %v, want %v", err, db.err)
	}
	if db.opts.IsoLevel != pgx.RepeatableRead || db.opts.AccessMode != pgx.ReadOnly {
		t.Errorf("tx options = %+v, want repeatable read, read only", db.opts)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("snapshot dir left behind: %v", entries)
	}
}
