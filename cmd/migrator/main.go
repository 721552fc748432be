package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var dsn, migrationsPath, migrationsTable string

	flag.StringVar(&dsn, "dsn", "", "postgres DSN, по умолчанию DATABASE_DSN")
	flag.StringVar(&migrationsPath, "migrations-path", "./migrations", "путь к директории с миграциями")
	flag.StringVar(&migrationsTable, "migrations-table", "schema_migrations", "имя таблицы миграций")
	down := flag.Bool("down", false, "откатить все миграции")
	flag.Parse()

	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
	}
	if dsn == "" {
		slog.Error("не задан dsn: используйте -dsn или DATABASE_DSN")
		os.Exit(1)
	}

	m, err := migrate.New("file://"+migrationsPath, withMigrationsTable(dsn, migrationsTable))
	if err != nil {
		slog.Error("ошибка инициализации миграций", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("ошибка при закрытии мигратора", slog.Any("source", srcErr), slog.Any("database", dbErr))
		}
	}()

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("новых миграций нет")
		return
	}
	if err != nil {
		slog.Error("ошибка применения миграций", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("миграции применены успешно", slog.Bool("down", *down))
}

func withMigrationsTable(dsn, table string) string {
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%sx-migrations-table=%s", dsn, separator, table)
}
