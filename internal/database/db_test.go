package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConnect_Validation(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}

	if _, err := Connect(context.Background(), "invalid-dsn"); err == nil {
		t.Fatalf("expected error for invalid dsn")
	}
}

type stubExecer struct {
	statements []string
	err        error
}

func (s *stubExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.statements = append(s.statements, sql)
	return pgconn.CommandTag{}, s.err
}

func TestMigrate(t *testing.T) {
	db := &stubExecer{}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.statements) == 0 {
		t.Fatalf("expected migrations to run")
	}
	for _, table := range []string{"runs", "exhibitors", "contacts"} {
		if !strings.Contains(db.statements[0], "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("expected %s table in schema", table)
		}
	}

	failing := &stubExecer{err: errors.New("boom")}
	if err := Migrate(context.Background(), failing); err == nil {
		t.Fatalf("expected migration error")
	}
}
