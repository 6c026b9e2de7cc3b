//go:build integration

package database_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/storage/database"
	"github.com/trezcool/masomo-absences/tests"
)

// go test -tags integration ./storage/database/... against a disposable postgres.
func TestPostgresRepositories(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Database = core.DatabaseConfig{
		Engine:        "postgres",
		Host:          getenv("TEST_DATABASE_HOST", "localhost"),
		Port:          getenv("TEST_DATABASE_PORT", "5432"),
		Name:          getenv("TEST_DATABASE_NAME", "masomo_absences_test"),
		User:          getenv("TEST_DATABASE_USER", "masomo"),
		Password:      getenv("TEST_DATABASE_PASSWORD", "masomo"),
		AdminUser:     getenv("TEST_DATABASE_ADMIN_USER", "postgres"),
		AdminPassword: getenv("TEST_DATABASE_ADMIN_PASSWORD", "postgres"),
		DisableTLS:    true,
	}
	repos, err := database.SetUp(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	testRepositories(t, func(t *testing.T) *database.Repositories {
		repos.DB.MustExec(`TRUNCATE notification, substitute_resolution, absence, schedule_entry, class_student, class, person`)
		return repos
	})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
