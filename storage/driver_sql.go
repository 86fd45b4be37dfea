package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type SQLDriver struct {
	a       *SQLAdapter
	dialect string
}

func newSQLDriver(dialect string) driverFactory {
	return func(adapter Adapter) (Driver, error) {
		a, ok := adapter.(*SQLAdapter)
		if !ok {
			return nil, fmt.Errorf("sql driver expects *SQLAdapter, got %T", adapter)
		}
		return &SQLDriver{a: a, dialect: dialect}, nil
	}
}

func (d *SQLDriver) Dialect() string { return d.dialect }

func (d *SQLDriver) Migrate(ctx context.Context) error {
	if d.a == nil || d.a.DB == nil {
		return nil
	}

	var migrations map[int][]string
	switch d.dialect {
	case "sqlite":
		migrations = sqliteMigrations
	case "postgres":
		migrations = postgresMigrations
	default:
		return fmt.Errorf("unsupported SQL dialect: %s", d.dialect)
	}

	currentVersion := d.getSchemaVersion(ctx)
	maxVersion := len(migrations)
	if currentVersion >= maxVersion {
		return nil
	}

	tx, err := d.a.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for v := currentVersion + 1; v <= maxVersion; v++ {
		ops, ok := migrations[v]
		if !ok {
			continue
		}
		for _, op := range ops {
			if _, err := tx.ExecContext(ctx, op); err != nil {
				return fmt.Errorf("migration %d failed: %w", v, err)
			}
		}

		updateSQL := "UPDATE kuro_schema_version SET num = " + placeholder(d.dialect, 1)
		if currentVersion == 0 {
			updateSQL = "INSERT INTO kuro_schema_version (num) VALUES (" + placeholder(d.dialect, 1) + ")"
		}
		if _, err := tx.ExecContext(ctx, updateSQL, v); err != nil {
			return err
		}
		currentVersion = v
	}

	return tx.Commit()
}

// getSchemaVersion reports 0 when the version table does not exist yet.
func (d *SQLDriver) getSchemaVersion(ctx context.Context) int {
	var version sql.NullInt64
	err := d.a.DB.QueryRowContext(ctx, "SELECT num FROM kuro_schema_version LIMIT 1").Scan(&version)
	if err != nil || !version.Valid {
		return 0
	}
	return int(version.Int64)
}

func (d *SQLDriver) Knowledge() KnowledgeRepo {
	return &sqlKnowledgeRepo{db: d.a.DB, dialect: d.dialect}
}

func (d *SQLDriver) Artifact() ArtifactRepo {
	return &sqlArtifactRepo{db: d.a.DB, dialect: d.dialect}
}

func placeholder(dialect string, n int) string {
	if dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func placeholders(dialect string, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = placeholder(dialect, i+1)
	}
	return strings.Join(ps, ", ")
}
