package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/swervedrive/internal/config"
	"github.com/banshee-data/swervedrive/internal/db"
	"github.com/banshee-data/swervedrive/internal/drive"
	"github.com/banshee-data/swervedrive/internal/serialmux"
	"github.com/banshee-data/swervedrive/internal/swerve"
	"github.com/banshee-data/swervedrive/internal/testutil"
	"github.com/banshee-data/swervedrive/internal/timeutil"
	"github.com/banshee-data/swervedrive/internal/units"
)

func TestNewSimBackend(t *testing.T) {
	b, err := newSimBackend(config.EmptyDriveConfig())
	require.NoError(t, err)
	require.NotNil(t, b.beforeCycle)
	assert.Nil(t, b.bus)
	assert.Nil(t, b.mux)

	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := config.EmptyDriveConfig()
	d, err := drive.New(drive.OptionsFromConfig(cfg), b.gyro, b.modules, clock)
	require.NoError(t, err)

	d.DriveRobotRelative(swerve.ChassisVelocity{VX: 1})
	d.Update()
	for range 10 {
		b.beforeCycle(100 * time.Millisecond)
		clock.Advance(100 * time.Millisecond)
		d.Update()
	}
	assert.InDelta(t, 1.0, d.Pose().X(), 1e-9)
}

func TestNewHardwareBackend(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	mux := serialmux.NewSerialMux(port)
	t.Cleanup(func() { mux.Close() })

	b, err := newHardwareBackend(mux, config.EmptyDriveConfig(), timeutil.RealClock{})
	require.NoError(t, err)
	require.NotNil(t, b.bus)
	assert.Nil(t, b.beforeCycle)
	for i, m := range b.modules {
		assert.NotNil(t, m, swerve.ModuleName(i))
	}
}

func TestNewServeMux(t *testing.T) {
	cfg := config.EmptyDriveConfig()
	b, err := newSimBackend(cfg)
	require.NoError(t, err)
	d, err := drive.New(drive.OptionsFromConfig(cfg), b.gyro, b.modules, nil)
	require.NoError(t, err)

	database, err := db.NewDB(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	recorder := db.NewRecorder(database, db.RecorderConfig{RunID: "run"})

	mux, err := newServeMux(d, b, database, recorder, "run", units.Default)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.NewJSONRequest(http.MethodGet, "/api/status", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Contains(t, w.Body.String(), `"telemetry"`)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.NewLoopbackRequest(http.MethodGet, "/debug/backup", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
}
