package testdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/migrations"
)

// TestDB is a migrated SurrealDB namespace owned by one test
type TestDB struct {
	DB        database.Database
	Namespace string
	Database  string
	t         *testing.T
}

var (
	loadOnce sync.Once
	loaded   []model.Migration
	loadErr  error

	counterMu sync.Mutex
	counter   int64
)

// schemaTables are cleared by Reset
var schemaTables = []string{
	"user", "refresh_token", "audit_log", "account", "deal", "job",
	"candidate", "submission", "offer", "placement", "course",
	"course_module", "sprint", "enrollment", "quiz", "quiz_attempt",
	"campaign", "campaign_enrollment", "gdpr_request",
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getTestConfig() database.Config {
	return database.Config{
		Host:     getenv("TEST_DB_HOST", "localhost"),
		Port:     getenv("TEST_DB_PORT", "8000"),
		User:     getenv("TEST_DB_USER", "root"),
		Password: getenv("TEST_DB_PASSWORD", "root"),
	}
}

func uniqueNamespace() string {
	counterMu.Lock()
	defer counterMu.Unlock()
	counter++
	return fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), counter)
}

func embeddedMigrations() ([]model.Migration, error) {
	loadOnce.Do(func() {
		loaded, loadErr = migrations.Load()
	})
	return loaded, loadErr
}

// New connects to the test SurrealDB in a fresh namespace and applies every
// embedded migration. The test is skipped under -short or when no database
// answers; Close runs automatically through t.Cleanup.
func New(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("testdb: skipping database test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := getTestConfig()
	cfg.Namespace = uniqueNamespace()
	cfg.Database = "test"

	db := database.NewSurrealDB(cfg)
	if err := db.Connect(ctx); err != nil {
		t.Skipf("testdb: SurrealDB unavailable at %s:%s: %v", cfg.Host, cfg.Port, err)
	}

	tdb := &TestDB{DB: db, Namespace: cfg.Namespace, Database: cfg.Database, t: t}
	t.Cleanup(tdb.Close)

	migs, err := embeddedMigrations()
	if err != nil {
		t.Fatalf("testdb: load migrations: %v", err)
	}
	for _, m := range migs {
		if err := db.Execute(ctx, m.SQL, nil); err != nil {
			t.Fatalf("testdb: migration %04d_%s failed: %v", m.Version, m.Name, err)
		}
	}
	return tdb
}

// Close removes the namespace and disconnects. Safe to call twice.
func (tdb *TestDB) Close() {
	if tdb.DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = tdb.DB.Execute(ctx, fmt.Sprintf("REMOVE NAMESPACE %s", tdb.Namespace), nil)
	tdb.DB.Close()
	tdb.DB = nil
}

// Reset deletes every row from the schema tables, keeping definitions
func (tdb *TestDB) Reset(t *testing.T) {
	t.Helper()
	for _, table := range schemaTables {
		if err := tdb.DB.Execute(tdb.Ctx(t), "DELETE FROM type::table($tb)", map[string]interface{}{"tb": table}); err != nil {
			t.Logf("testdb: clear %s: %v", table, err)
		}
	}
}

// Ctx returns a context bounded by ten seconds and cancelled at test end
func (tdb *TestDB) Ctx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// MustExec executes a query and fails the test on error
func (tdb *TestDB) MustExec(query string, vars map[string]interface{}) {
	tdb.t.Helper()
	if err := tdb.DB.Execute(tdb.Ctx(tdb.t), query, vars); err != nil {
		tdb.t.Fatalf("testdb: exec failed: %v\nQuery: %s", err, query)
	}
}

// MustQuery executes a query and fails the test on error
func (tdb *TestDB) MustQuery(query string, vars map[string]interface{}) []interface{} {
	tdb.t.Helper()
	results, err := tdb.DB.Query(tdb.Ctx(tdb.t), query, vars)
	if err != nil {
		tdb.t.Fatalf("testdb: query failed: %v\nQuery: %s", err, query)
	}
	return results
}
