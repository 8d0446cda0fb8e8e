package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	file    string
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.up\.sql$`)

func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var migs []migration
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		m := migFileRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		ver, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		migs = append(migs, migration{version: ver, name: m[2], file: "migrations/" + de.Name()})
	}

	sort.Slice(migs, func(i, j int) bool { return migs[i].version < migs[j].version })
	return migs, nil
}

// splitStatements breaks a migration file into single statements, since the
// pipeline executes one statement per request. Comment lines are dropped.
func splitStatements(text string) []string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var stmts []string
	for _, part := range strings.Split(b.String(), ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func appliedVersions(ctx context.Context, db Executor) (map[int]bool, error) {
	_, err := db.Execute(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
	)`)
	if err != nil {
		return nil, err
	}

	res, err := db.Execute(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}

	got := make(map[int]bool, len(res.Rows))
	for _, row := range res.Rows {
		var v int
		if err := row.Scan(&v); err != nil {
			return nil, err
		}
		got[v] = true
	}
	return got, nil
}

// Migrate applies the embedded migrations that are not yet recorded in
// schema_migrations. There are no transactions over the pipeline, so every
// statement is written to be re-runnable.
func Migrate(ctx context.Context, db Executor, log *slog.Logger) error {
	const op = "storage.Migrate"

	migs, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, m := range migs {
		if applied[m.version] {
			continue
		}

		text, err := migrationsFS.ReadFile(m.file)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		for _, stmt := range splitStatements(string(text)) {
			if _, err := db.Execute(ctx, stmt); err != nil {
				return fmt.Errorf("%s: migration %04d failed: %w", op, m.version, err)
			}
		}

		if _, err := db.Execute(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		log.Info("migration applied", slog.Int("version", m.version), slog.String("name", m.name))
	}

	return nil
}
