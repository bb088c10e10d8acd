// db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Open connects to rawURL. Remote Turso URLs (libsql://, https://, wss://) use the libsql driver;
// anything else is treated as a local SQLite file or "file:" URI.
func Open(ctx context.Context, rawURL, authToken string) (*sql.DB, error) {
	driver, dsn, err := driverFor(rawURL, authToken)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY on the local file
		database.SetMaxOpenConns(1)
	} else {
		database.SetMaxOpenConns(25)
		database.SetMaxIdleConns(25)
		database.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return database, nil
}

func driverFor(rawURL, authToken string) (driver, dsn string, err error) {
	for _, prefix := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if !strings.HasPrefix(rawURL, prefix) {
			continue
		}
		if authToken == "" {
			return "libsql", rawURL, nil
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", "", fmt.Errorf("invalid ledger url: %w", err)
		}
		q := u.Query()
		q.Set("authToken", authToken)
		u.RawQuery = q.Encode()
		return "libsql", u.String(), nil
	}
	return "sqlite", rawURL, nil
}
