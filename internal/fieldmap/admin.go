package fieldmap

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"tailscale.com/tsweb"

	"github.com/edumag/edumag/internal/fieldsolver"
)

// AttachAdminRoutes mounts a rendering of the map under /debug/ on mux.
// currents is consulted on every request so the plot tracks the coils.
func (m *Map) AttachAdminRoutes(mux *http.ServeMux, currents func() fieldsolver.CurrentVector) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("field-map", "net coil field at the present currents (PNG)", func(w http.ResponseWriter, r *http.Request) {
		size := 600
		if v := r.FormValue("size"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 100 || n > 2000 {
				http.Error(w, "Invalid size", http.StatusBadRequest)
				return
			}
			size = n
		}
		// Render into a buffer so a failure can still produce an error status.
		var buf bytes.Buffer
		if err := m.Render(&buf, currents(), size, size); err != nil {
			http.Error(w, fmt.Sprintf("Failed to render field map: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	})
}
