package runlog

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachDebug mounts a developer-only inspection surface on mux: the
// standard tsweb debug index, a tailsql live-SQL console over the
// ledger, and a JSON dump of recent invocations. Only wired up when the
// CLI is invoked with --debug-sql, and only ever bound to loopback.
func (db *DB) AttachDebug(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("runlog: create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "geocore run ledger",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("recent-runs", "Most recent tool invocations (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		invs, err := db.Recent(50)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to query ledger: %v", err), http.StatusInternalServerError)
			return
		}
		if err := json.NewEncoder(w).Encode(invs); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode: %v", err), http.StatusInternalServerError)
		}
	}))
	return nil
}
