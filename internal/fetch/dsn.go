package fetch

import (
	"fmt"
	"net/url"

	"github.com/dailyreport/internal/config"
	"github.com/go-sql-driver/mysql"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// DSN builds a connection string for the configured driver from server,
// database and credentials. A configured DSN is returned unchanged.
func DSN(db config.Database) (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}

	switch db.Driver {
	case "sqlserver":
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(db.User, db.Password),
			Host:   db.Server,
		}
		q := url.Values{}
		q.Set("database", db.Name)
		u.RawQuery = q.Encode()
		return u.String(), nil

	case "pgx":
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(db.User, db.Password),
			Host:   db.Server,
			Path:   "/" + db.Name,
		}
		return u.String(), nil

	case "mysql":
		cfg := mysql.NewConfig()
		cfg.User = db.User
		cfg.Passwd = db.Password
		cfg.Net = "tcp"
		cfg.Addr = db.Server
		cfg.DBName = db.Name
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil

	case "sqlite":
		return db.Name, nil
	}

	return "", fmt.Errorf("unsupported driver %q", db.Driver)
}
