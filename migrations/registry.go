package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	smileid "github.com/afrimobile/go-smileid"
	persistence "github.com/goliatone/go-persistence-bun"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	rootPath = "data/sql/migrations"
)

// FilesystemSpec is the migration tree of one SQL dialect.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type RegisterFunc func(ctx context.Context, spec FilesystemSpec) error

// DialectForDriver maps a database/sql driver name to a migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "pgx", "pq":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// Filesystems splits the embedded tree (or root, when given) into the
// postgres files at the top level and the sqlite files under sqlite/. Each
// dialect must carry at least one *.up.sql file.
func Filesystems(root fs.FS) ([]FilesystemSpec, error) {
	if root == nil {
		root = smileid.GetMigrationsFS()
	}
	base, err := fs.Sub(root, rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	specs := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: rootPath, FS: base},
		{Dialect: DialectSQLite, Path: rootPath + "/sqlite", FS: sqliteFS},
	}
	for _, spec := range specs {
		matches, err := fs.Glob(spec.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", spec.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s has no *.up.sql files", spec.Path)
		}
	}
	return specs, nil
}

// Register hands the embedded filesystem of every requested dialect to fn.
// No dialects means all of them.
func Register(ctx context.Context, fn RegisterFunc, dialects ...string) error {
	if fn == nil {
		return fmt.Errorf("migrations: register function is required")
	}
	specs, err := Filesystems(nil)
	if err != nil {
		return err
	}
	wanted := normalizeDialects(dialects)
	for _, spec := range specs {
		if len(wanted) > 0 && !slices.Contains(wanted, spec.Dialect) {
			continue
		}
		if err := fn(ctx, spec); err != nil {
			return fmt.Errorf("migrations: register %s: %w", spec.Dialect, err)
		}
	}
	return nil
}

// Apply registers the schema for dialect on client and runs pending
// migrations.
func Apply(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("migrations: persistence client is required")
	}
	wanted := normalizeDialects([]string{dialect})
	if len(wanted) == 0 {
		return fmt.Errorf("migrations: dialect is required")
	}
	if err := Register(ctx, func(_ context.Context, spec FilesystemSpec) error {
		client.RegisterSQLMigrations(spec.FS)
		return nil
	}, wanted...); err != nil {
		return err
	}
	return client.Migrate(ctx)
}

func normalizeDialects(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(strings.ToLower(value))
		if trimmed == "" || slices.Contains(out, trimmed) {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
