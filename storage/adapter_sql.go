package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// SQLConn pins the dialect of a *sql.DB whose driver type does not reveal it.
type SQLConn struct {
	DB      *sql.DB
	Dialect string
}

type SQLAdapter struct {
	DB      *sql.DB
	dialect string
}

func (a *SQLAdapter) Dialect() string { return a.dialect }

func isSQLDB(conn any) bool {
	switch conn.(type) {
	case *sql.DB, SQLConn:
		return true
	}
	return false
}

func newSQLAdapter(conn any) (Adapter, error) {
	switch c := conn.(type) {
	case SQLConn:
		if c.DB == nil {
			return nil, fmt.Errorf("sql adapter: nil *sql.DB")
		}
		if c.Dialect != "sqlite" && c.Dialect != "postgres" {
			return nil, fmt.Errorf("sql adapter: unsupported dialect %q", c.Dialect)
		}
		return &SQLAdapter{DB: c.DB, dialect: c.Dialect}, nil
	case *sql.DB:
		return &SQLAdapter{DB: c, dialect: sniffDialect(c)}, nil
	}
	return nil, fmt.Errorf("sql adapter: unexpected %T", conn)
}

// sniffDialect guesses from the driver's type name. pgx's stdlib driver
// shows up as *stdlib.Driver, so anything that is not sqlite is postgres.
func sniffDialect(db *sql.DB) string {
	name := strings.ToLower(fmt.Sprintf("%T", db.Driver()))
	if strings.Contains(name, "sqlite") {
		return "sqlite"
	}
	return "postgres"
}
