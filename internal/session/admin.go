package session

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tailscale.com/tsweb"

	"github.com/edumag/edumag/internal/httputil"
	"github.com/edumag/edumag/internal/input"
)

// AttachAdminRoutes mounts session debugging endpoints under /debug/ on
// mux. Input posted to session-input goes through mb, which must be the
// loop's input source for it to take effect.
func (l *Loop) AttachAdminRoutes(mux *http.ServeMux, mb *input.Mailbox) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("session-state", "control session status", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, l.Status())
	})

	debug.HandleFunc("session-frame", "latest camera frame with annotations (PNG)", func(w http.ResponseWriter, r *http.Request) {
		view := l.Latest()
		if !view.HasSnapshot || view.Snapshot.Frame == nil {
			http.Error(w, "No frame captured yet", http.StatusServiceUnavailable)
			return
		}
		img, err := view.Overlay.Composite(view.Snapshot.Frame)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to composite frame: %v", err), http.StatusInternalServerError)
			return
		}
		httputil.WritePNG(w, img)
	})

	debug.HandleSilentFunc("session-input", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if mb == nil {
			http.Error(w, "Input not accepted", http.StatusServiceUnavailable)
			return
		}
		if v := strings.TrimSpace(r.FormValue("stick")); v != "" {
			stick, err := parseStick(v)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid stick: %v", err), http.StatusBadRequest)
				return
			}
			mb.SetStick(stick)
		}
		if v := strings.TrimSpace(r.FormValue("hue")); v != "" {
			stick, err := parseStick(v)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid hue: %v", err), http.StatusBadRequest)
				return
			}
			mb.SetRightStick(stick)
		}
		if v := strings.TrimSpace(r.FormValue("trigger")); v != "" {
			t, err := strconv.ParseFloat(v, 64)
			if err != nil || t < -1 || t > 1 {
				http.Error(w, "Invalid trigger: want a number in [-1,1]", http.StatusBadRequest)
				return
			}
			mb.SetTrigger(t)
		}
		if v := strings.TrimSpace(r.FormValue("button")); v != "" {
			b, err := input.ParseButton(v)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid button: %v", err), http.StatusBadRequest)
				return
			}
			mb.Press(b)
		}
		if v := strings.TrimSpace(r.FormValue("action")); v != "" {
			out, err := l.action(v, r.FormValue("arg"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, out)
			return
		}
		fmt.Fprintln(w, "ok")
	})
}

func parseStick(v string) (input.Stick, error) {
	if strings.EqualFold(v, "neutral") {
		return input.Neutral, nil
	}
	deg, err := strconv.Atoi(v)
	if err != nil {
		return input.Neutral, err
	}
	return input.Angle(deg), nil
}

// action runs a session-specific command that has no button.
func (l *Loop) action(name, arg string) (string, error) {
	var out string
	err := l.Do(func(s Session) error {
		switch s := s.(type) {
		case *RouteDesigner:
			switch name {
			case "check":
				out = fmt.Sprintf("score %d", s.Check())
				return nil
			case "solution":
				out = fmt.Sprintf("solution shown: %t", s.ToggleSolution())
				return nil
			}
		case *CommandSequence:
			switch name {
			case "add":
				steps, err := ParseSteps(arg)
				if err != nil {
					return err
				}
				for _, st := range steps {
					if err := s.Add(st); err != nil {
						return err
					}
				}
				out = fmt.Sprintf("%d steps", len(s.Steps()))
				return nil
			case "remove":
				i, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("remove: %w", err)
				}
				if err := s.Remove(i); err != nil {
					return err
				}
				out = fmt.Sprintf("%d steps", len(s.Steps()))
				return nil
			case "clear":
				s.Clear()
				out = "0 steps"
				return nil
			}
		}
		return fmt.Errorf("action %q not supported by %s session", name, s.Kind())
	})
	return out, err
}
