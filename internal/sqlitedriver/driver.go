// Package sqlitedriver registers the pure-Go modernc.org/sqlite driver with
// database/sql under the name "sqlite3". Import for side effects only:
//
//	import _ "github.com/20arjuna/UAVLogViewer-AppServer/internal/sqlitedriver"
package sqlitedriver

import (
	"database/sql"

	"modernc.org/sqlite"
)

func init() {
	sql.Register("sqlite3", &sqlite.Driver{})
}
