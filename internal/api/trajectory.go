package api

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/swervedrive/internal/db"
	"github.com/banshee-data/swervedrive/internal/httputil"
)

// handleTrajectory renders the recorded x/y path of a run as an HTML scatter
// chart, coloured by time. Query params:
//   - run (optional; defaults to the current run, then the latest recorded)
//   - max_points (optional; default 5000) to reduce payload size
func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "telemetry is not being recorded")
		return
	}

	runID := r.URL.Query().Get("run")
	if runID == "" {
		runID = s.runID
	}
	if runID == "" {
		run, err := s.db.LatestRun()
		if errors.Is(err, db.ErrNoRuns) {
			httputil.NotFound(w, "no recorded runs")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		runID = run.ID
	}

	maxPoints := 5000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 10 && v <= 50000 {
			maxPoints = v
		}
	}

	poses, err := s.db.ListPoses(runID, 0)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if len(poses) == 0 {
		httputil.NotFound(w, "no poses recorded for run")
		return
	}

	// Downsample by stride to stay within maxPoints
	stride := 1
	if len(poses) > maxPoints {
		stride = int(math.Ceil(float64(len(poses)) / float64(maxPoints)))
	}

	start := poses[0].Time
	data := make([]opts.ScatterData, 0, len(poses)/stride+1)
	maxAbs := 0.0
	elapsed := 0.0
	for i := 0; i < len(poses); i += stride {
		p := poses[i].Pose
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.X()), math.Abs(p.Y())))
		elapsed = poses[i].Time.Sub(start).Seconds()
		data = append(data, opts.ScatterData{Value: []interface{}{p.X(), p.Y(), elapsed}})
	}

	// Equal symmetric axes so the path is not distorted
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if elapsed == 0 {
		elapsed = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Odometry Trajectory", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Odometry Trajectory", Subtitle: fmt.Sprintf("run=%s points=%d stride=%d", runID, len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(elapsed),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("pose", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
