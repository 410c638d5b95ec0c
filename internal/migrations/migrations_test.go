package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestDriverURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/trustloan":   "pgx5://u:p@localhost:5432/trustloan",
		"postgresql://u:p@localhost:5432/trustloan": "pgx5://u:p@localhost:5432/trustloan",
		"pgx5://localhost/trustloan":                "pgx5://localhost/trustloan",
	}
	for in, want := range cases {
		if got := DriverURL(in); got != want {
			t.Fatalf("DriverURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected paired migrations, got %d up and %d down", ups, downs)
	}

	src, err := iofs.New(files, "sql")
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer src.Close()
	if _, err := src.First(); err != nil {
		t.Fatalf("first migration: %v", err)
	}
}
