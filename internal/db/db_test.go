package db

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumag/edumag/internal/monitoring"
	"github.com/edumag/edumag/internal/session"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	db, err := NewDB(filepath.Join(t.TempDir(), "edumag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_AppliesPragmasAndMigrations(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, latest, version)
}

func TestNewDB_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edumag.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.RecordSession(context.Background(), session.Record{Kind: session.KindPaint}))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	recs, err := db.RecentSessions(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMigrateDown(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestRecordAndListSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, kind := range []session.Kind{session.KindTargetChase, session.KindRouteDesigner, session.KindTargetChase} {
		require.NoError(t, db.RecordSession(ctx, session.Record{
			ID:      "",
			Kind:    kind,
			Started: base.Add(time.Duration(i) * time.Minute),
			Ended:   base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Score:   (i + 1) * 10,
			Detail:  "round",
		}))
	}

	recs, err := db.RecentSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, session.KindTargetChase, recs[0].Kind)
	assert.Equal(t, 30, recs[0].Score)
	assert.True(t, recs[0].Started.Equal(base.Add(2*time.Minute)))
	assert.True(t, recs[0].Ended.Equal(base.Add(2*time.Minute+30*time.Second)))
	assert.NotEmpty(t, recs[0].ID)
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
	assert.Equal(t, session.KindRouteDesigner, recs[1].Kind)

	best, ok, err := db.BestScore(ctx, session.KindTargetChase)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30, best)

	_, ok, err = db.BestScore(ctx, session.KindPaint)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordSession_DuplicateID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rec := session.Record{ID: "fixed", Kind: session.KindPaint}
	require.NoError(t, db.RecordSession(ctx, rec))
	assert.Error(t, db.RecordSession(ctx, rec))
}

func TestAttachAdminRoutes_Sessions(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordSession(context.Background(), session.Record{Kind: session.KindRouteDesigner, Score: 87}))

	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/db-sessions?limit=5", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "route", rows[0]["kind"])
	assert.Equal(t, 87.0, rows[0]["score"])

	req = httptest.NewRequest(http.MethodGet, "/debug/db-sessions?limit=-1", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
