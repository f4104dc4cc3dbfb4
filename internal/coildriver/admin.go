package coildriver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tailscale.com/tsweb"

	"github.com/edumag/edumag/internal/httputil"
)

// AttachAdminRoutes mounts driver debugging endpoints under /debug/ on mux.
// They are reachable only from loopback or the tailnet.
func (c *Channel) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleSilentFunc("driver-send", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		reply, err := c.SendWithEcho(command, c.Attempts())
		if err != nil {
			http.Error(w, fmt.Sprintf("Command failed: %v", err), driverStatus(err))
			return
		}
		io.WriteString(w, reply)
	})

	debug.HandleFunc("driver-currents", "target and measured coil currents", func(w http.ResponseWriter, r *http.Request) {
		target, err := c.GetTargetCurrents()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read target currents: %v", err), driverStatus(err))
			return
		}
		measured, err := c.GetMeasuredCurrents()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read measured currents: %v", err), driverStatus(err))
			return
		}
		httputil.WriteJSONOK(w, map[string]any{
			"port":     c.PortName(),
			"target":   target,
			"measured": measured,
		})
	})
}

func driverStatus(err error) int {
	if errors.Is(err, ErrNotConnected) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
