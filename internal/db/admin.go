package db

import (
	"fmt"
	"net/http"
	"strconv"

	"tailscale.com/tsweb"

	"github.com/edumag/edumag/internal/httputil"
)

// AttachAdminRoutes mounts the session history under /debug/ on mux.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("db-sessions", "recent control sessions", func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.FormValue("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		recs, err := db.RecentSessions(r.Context(), limit)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list sessions: %v", err), http.StatusInternalServerError)
			return
		}
		type row struct {
			ID      string `json:"id"`
			Kind    string `json:"kind"`
			Started string `json:"started"`
			Ended   string `json:"ended"`
			Score   int    `json:"score"`
			Detail  string `json:"detail,omitempty"`
		}
		out := make([]row, len(recs))
		for i, rec := range recs {
			out[i] = row{
				ID:      rec.ID,
				Kind:    rec.Kind.String(),
				Started: rec.Started.Format("2006-01-02T15:04:05.000Z07:00"),
				Ended:   rec.Ended.Format("2006-01-02T15:04:05.000Z07:00"),
				Score:   rec.Score,
				Detail:  rec.Detail,
			}
		}
		httputil.WriteJSONOK(w, out)
	})
}
