// Package api serves the drivetrain over HTTP: the path-follower contract
// (pose, velocity, drive, pose reset), status counters, and a trajectory
// chart of recorded telemetry.
package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/swervedrive/internal/db"
	"github.com/banshee-data/swervedrive/internal/drive"
	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/httputil"
	"github.com/banshee-data/swervedrive/internal/monitoring"
	"github.com/banshee-data/swervedrive/internal/swerve"
	"github.com/banshee-data/swervedrive/internal/units"
	"github.com/banshee-data/swervedrive/internal/version"
)

// ANSI escape codes for the request log
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Drivetrain is what the API needs from the drive coordinator.
type Drivetrain interface {
	drive.Holonomic
	DriveFieldRelative(v swerve.ChassisVelocity)
	Stop()
	Snapshot() drive.Snapshot
	Stats() map[string]uint64
}

type Server struct {
	drive Drivetrain
	db    *db.DB
	runID string
	units units.Selection

	mu    sync.Mutex
	stats map[string]func() map[string]uint64
}

// NewServer returns a server over d. database may be nil, in which case the
// telemetry routes report 404. defaultUnits applies when a request has no
// units query parameter.
func NewServer(d Drivetrain, database *db.DB, runID string, defaultUnits units.Selection) *Server {
	return &Server{
		drive: d,
		db:    database,
		runID: runID,
		units: defaultUnits,
		stats: make(map[string]func() map[string]uint64),
	}
}

// AddStats publishes another counter source under name in /api/status.
func (s *Server) AddStats(name string, fn func() map[string]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[name] = fn
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pose", s.handlePose)
	mux.HandleFunc("/api/pose/reset", s.handlePoseReset)
	mux.HandleFunc("/api/velocity", s.handleVelocity)
	mux.HandleFunc("/api/drive", s.handleDrive)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/trajectory", s.handleTrajectory)
	return mux
}

// selection resolves the units query parameter, writing a 400 on error.
func (s *Server) selection(w http.ResponseWriter, r *http.Request) (units.Selection, bool) {
	raw := r.URL.Query().Get("units")
	if raw == "" {
		return s.units, true
	}
	sel, err := units.ParseSelection(raw)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return units.Selection{}, false
	}
	return sel, true
}

type poseResponse struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Heading    float64   `json:"heading"`
	AngleUnits string    `json:"angle_units"`
	Cycle      uint64    `json:"cycle"`
	Time       time.Time `json:"time"`
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	snap := s.drive.Snapshot()
	httputil.WriteJSONOK(w, poseResponse{
		X:          snap.Pose.X(),
		Y:          snap.Pose.Y(),
		Heading:    units.ConvertAngle(snap.Pose.Heading().Radians(), sel.Angle),
		AngleUnits: sel.Angle,
		Cycle:      snap.Cycle,
		Time:       snap.Time,
	})
}

type velocityResponse struct {
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	Omega      float64 `json:"omega"`
	SpeedUnits string  `json:"speed_units"`
	AngleUnits string  `json:"angle_units"`
	// Frame is always "robot": the velocity is recovered from module states.
	Frame string `json:"frame"`
}

func (s *Server) handleVelocity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	v := s.drive.CurrentVelocity()
	httputil.WriteJSONOK(w, velocityResponse{
		VX:         units.ConvertSpeed(v.VX, sel.Speed),
		VY:         units.ConvertSpeed(v.VY, sel.Speed),
		Omega:      units.ConvertAngle(v.Omega, sel.Angle),
		SpeedUnits: sel.Speed,
		AngleUnits: sel.Angle,
		Frame:      "robot",
	})
}

// driveRequest is always SI: m/s and rad/s.
type driveRequest struct {
	VX            float64 `json:"vx"`
	VY            float64 `json:"vy"`
	Omega         float64 `json:"omega"`
	FieldRelative bool    `json:"field_relative"`
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s *Server) handleDrive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req driveRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !finite(req.VX, req.VY, req.Omega) {
		httputil.BadRequest(w, "velocity components must be finite")
		return
	}

	v := swerve.ChassisVelocity{VX: req.VX, VY: req.VY, Omega: req.Omega}
	frame := "robot"
	if req.FieldRelative {
		s.drive.DriveFieldRelative(v)
		frame = "field"
	} else {
		s.drive.DriveRobotRelative(v)
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "frame": frame})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.drive.Stop()
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

type poseResetRequest struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HeadingRad float64 `json:"heading_rad"`
}

func (s *Server) handlePoseReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req poseResetRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !finite(req.X, req.Y, req.HeadingRad) {
		httputil.BadRequest(w, "pose components must be finite")
		return
	}

	pose := geom.NewPose(req.X, req.Y, geom.FromRadians(req.HeadingRad))
	if err := s.drive.ResetPose(pose); err != nil {
		if errors.Is(err, drive.ErrNoFeedback) {
			httputil.WriteJSONError(w, http.StatusConflict, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.drive.Pose())
}

type statusResponse struct {
	Version   string                       `json:"version"`
	GitSHA    string                       `json:"git_sha"`
	BuildTime string                       `json:"build_time"`
	RunID     string                       `json:"run_id,omitempty"`
	Snapshot  drive.Snapshot               `json:"snapshot"`
	Counters  map[string]map[string]uint64 `json:"counters"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	counters := map[string]map[string]uint64{"drive": s.drive.Stats()}
	s.mu.Lock()
	for name, fn := range s.stats {
		counters[name] = fn()
	}
	s.mu.Unlock()

	httputil.WriteJSONOK(w, statusResponse{
		Version:   version.Version,
		GitSHA:    version.GitSHA,
		BuildTime: version.BuildTime,
		RunID:     s.runID,
		Snapshot:  s.drive.Snapshot(),
		Counters:  counters,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "telemetry is not being recorded")
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 || v > 1000 {
			httputil.BadRequest(w, "limit must be between 1 and 1000")
			return
		}
		limit = v
	}
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}
