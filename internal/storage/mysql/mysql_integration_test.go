//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"aqi_relay/internal/domain"
	mysqlrepo "aqi_relay/internal/storage/mysql"
)

// ---------- small helpers ----------

// migrationsDir honours MIGRATIONS_DIR, else the repo's own migrations/.
func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker daemon unavailable: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=aqi",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "aqi")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_RecordAndRecent(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	recs := []domain.LookupRecord{
		{City: "shanghai", Outcome: domain.OutcomeOK, HTTPStatus: 200, UpstreamStatus: "ok", DurationMS: 120, CreatedAt: base},
		{City: "nowhere", Outcome: domain.OutcomeUpstreamError, HTTPStatus: 200, UpstreamStatus: "error", DurationMS: 80, CreatedAt: base.Add(time.Second)},
		{City: "paris", Outcome: "timeout", DurationMS: 10000, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, r := range recs {
		if err := repo.RecordLookup(ctx, r); err != nil {
			t.Fatalf("RecordLookup(%s): %v", r.City, err)
		}
	}

	got, err := repo.RecentLookups(ctx, 2)
	if err != nil {
		t.Fatalf("RecentLookups: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	// newest first
	if got[0].City != "paris" || got[0].Outcome != "timeout" || got[0].UpstreamStatus != "" {
		t.Fatalf("unexpected newest row: %+v", got[0])
	}
	if got[1].City != "nowhere" || got[1].UpstreamStatus != "error" || got[1].HTTPStatus != 200 {
		t.Fatalf("unexpected second row: %+v", got[1])
	}
	if !got[1].CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("created_at round-trip: %v", got[1].CreatedAt)
	}
}
