package session

import (
	"encoding/json"
	"image"
	"image/png"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumag/edumag/internal/input"
	"github.com/edumag/edumag/internal/mst"
	"github.com/edumag/edumag/internal/vision"
)

func localHostRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func postForm(path string, form url.Values) *http.Request {
	req := localHostRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAdmin_SessionInput(t *testing.T) {
	fx := newLoopFixture(t, NewFreeControl())
	mux := http.NewServeMux()
	fx.loop.AttachAdminRoutes(mux, fx.mb)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantBody   string
	}{
		{"stick", postForm("/debug/session-input", url.Values{"stick": {"135"}, "trigger": {"0.25"}}), http.StatusOK, "ok"},
		{"bad stick", postForm("/debug/session-input", url.Values{"stick": {"north"}}), http.StatusBadRequest, "Invalid stick"},
		{"trigger out of range", postForm("/debug/session-input", url.Values{"trigger": {"3"}}), http.StatusBadRequest, "Invalid trigger"},
		{"bad button", postForm("/debug/session-input", url.Values{"button": {"x"}}), http.StatusBadRequest, "Invalid button"},
		{"unsupported action", postForm("/debug/session-input", url.Values{"action": {"check"}}), http.StatusBadRequest, "not supported"},
		{"wrong method", localHostRequest(http.MethodGet, "/debug/session-input", nil), http.StatusMethodNotAllowed, "Method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, tt.req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}

	st := fx.mb.Poll()
	assert.Equal(t, input.Angle(135), st.Stick)
	assert.InDelta(t, 0.25, st.Trigger, 1e-12)

	serve(mux, postForm("/debug/session-input", url.Values{"button": {"start"}, "stick": {"neutral"}}))
	st = fx.mb.Poll()
	assert.Equal(t, input.Neutral, st.Stick)
	assert.Equal(t, []input.Button{input.ButtonStart}, st.Pressed)
}

func TestAdmin_RouteActions(t *testing.T) {
	r := NewRouteDesigner(mst.Easy, DefaultNodeTolerance, rand.New(rand.NewPCG(7, 7)))
	fx := newLoopFixture(t, r)
	mux := http.NewServeMux()
	fx.loop.AttachAdminRoutes(mux, fx.mb)
	r.SetNodes([]mst.Point{{X: 0, Y: 0}, {X: 100, Y: 0}})
	r.Pick(mst.Point{X: 0, Y: 0})
	r.Pick(mst.Point{X: 100, Y: 0})

	rec := serve(mux, postForm("/debug/session-input", url.Values{"action": {"check"}}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "score 100")

	rec = serve(mux, postForm("/debug/session-input", url.Values{"action": {"solution"}}))
	assert.Contains(t, rec.Body.String(), "solution shown: true")
}

func TestAdmin_SequenceActions(t *testing.T) {
	q := NewCommandSequence(NewFieldController(nil, nil, 0, nil).Solver())
	fx := newLoopFixture(t, q)
	mux := http.NewServeMux()
	fx.loop.AttachAdminRoutes(mux, fx.mb)

	rec := serve(mux, postForm("/debug/session-input", url.Values{"action": {"add"}, "arg": {"3,50,0,1;3,50,90,2"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "2 steps")

	rec = serve(mux, postForm("/debug/session-input", url.Values{"action": {"add"}, "arg": {"0,50,0,1"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, postForm("/debug/session-input", url.Values{"action": {"remove"}, "arg": {"0"}}))
	assert.Contains(t, rec.Body.String(), "1 steps")

	rec = serve(mux, postForm("/debug/session-input", url.Values{"action": {"clear"}}))
	assert.Contains(t, rec.Body.String(), "0 steps")
	assert.Empty(t, q.Steps())
}

func TestAdmin_StateAndFrame(t *testing.T) {
	fx := newLoopFixture(t, NewFreeControl())
	mux := http.NewServeMux()
	fx.loop.AttachAdminRoutes(mux, fx.mb)
	require.NoError(t, fx.loop.Start())

	rec := serve(mux, localHostRequest(http.MethodGet, "/debug/session-frame", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	frame := image.NewRGBA(image.Rect(0, 0, 40, 30))
	fx.slot.Publish(vision.Snapshot{Captured: t0, Frame: frame, Position: vision.NotFound})
	fx.loop.Step(t0.Add(100 * time.Millisecond))

	rec = serve(mux, localHostRequest(http.MethodGet, "/debug/session-frame", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, frame.Bounds(), img.Bounds())

	rec = serve(mux, localHostRequest(http.MethodGet, "/debug/session-state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "free", st.Session)
	assert.True(t, st.Running)
	assert.Equal(t, uint64(1), st.Ticks)
	assert.Equal(t, "not found", st.Position)
}
