package app

import (
	"strings"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/store"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/store/postgres"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/store/sqlite"
)

func NewStore(dsn, migrationsDir string) (store.EvalStore, error) {
	if strings.HasPrefix(dsn, "postgres") {
		return postgres.NewPostgresStore(dsn, migrationsDir)
	}
	return sqlite.NewSQLiteStore(dsn, migrationsDir)
}
