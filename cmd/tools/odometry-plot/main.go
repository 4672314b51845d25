// Command odometry-plot renders a recorded telemetry run as PNG plots: the
// x/y path, and heading over time.
//
// Usage:
//
//	odometry-plot -db swervedrive.db [-run <id>] [-out plots]
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/swervedrive/internal/db"
	"github.com/banshee-data/swervedrive/internal/fsutil"
	"github.com/banshee-data/swervedrive/internal/security"
)

var (
	dbFile = flag.String("db", "swervedrive.db", "Telemetry database path")
	runID  = flag.String("run", "", "Run ID to plot (default: most recent run)")
	outDir = flag.String("out", "plots", "Output directory")
	limit  = flag.Int("limit", 0, "Plot at most this many cycles (0 for all)")
)

func main() {
	flag.Parse()

	if err := security.ValidateOutputPath(*outDir); err != nil {
		log.Fatalf("invalid -out: %v", err)
	}

	database, err := db.OpenDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	run, poses, err := loadRun(database, *runID, *limit)
	if err != nil {
		log.Fatal(err)
	}

	files, err := renderRun(fsutil.OSFileSystem{}, *outDir, run, poses)
	if err != nil {
		log.Fatal(err)
	}
	for _, f := range files {
		fmt.Println(f)
	}
}

// loadRun finds the run (the latest when id is empty) and its poses.
func loadRun(database *db.DB, id string, limit int) (*db.Run, []db.PoseSample, error) {
	var (
		run *db.Run
		err error
	)
	if id == "" {
		run, err = database.LatestRun()
	} else {
		run, err = database.GetRun(id)
	}
	if err != nil {
		return nil, nil, err
	}

	poses, err := database.ListPoses(run.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	if len(poses) == 0 {
		return nil, nil, fmt.Errorf("run %s has no recorded cycles", run.ID)
	}
	return run, poses, nil
}

func runName(run *db.Run) string {
	if run.Label != "" {
		return security.SanitizeFilename(run.Label + "_" + run.ID[:8])
	}
	return security.SanitizeFilename(run.ID)
}

// renderRun writes both plots into dir and returns their paths.
func renderRun(fsys fsutil.FileSystem, dir string, run *db.Run, poses []db.PoseSample) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	traj, err := trajectoryPlot(run, poses)
	if err != nil {
		return nil, err
	}
	heading, err := headingPlot(run, poses)
	if err != nil {
		return nil, err
	}

	name := runName(run)
	outputs := []struct {
		p    *plot.Plot
		file string
		w, h vg.Length
	}{
		{traj, filepath.Join(dir, name+"_trajectory.png"), 8 * vg.Inch, 8 * vg.Inch},
		{heading, filepath.Join(dir, name+"_heading.png"), 14 * vg.Inch, 6 * vg.Inch},
	}
	files := make([]string, 0, len(outputs))
	for _, o := range outputs {
		if err := savePlot(fsys, o.p, o.w, o.h, o.file); err != nil {
			return nil, err
		}
		files = append(files, o.file)
	}
	return files, nil
}

func trajectoryPlot(run *db.Run, poses []db.PoseSample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Run %s - Odometry Path", runLabel(run))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(poses))
	for i, s := range poses {
		pts[i] = plotter.XY{X: s.Pose.X(), Y: s.Pose.Y()}
	}
	path, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	path.Width = vg.Points(1)
	p.Add(path)
	p.Legend.Add("path", path)

	ends, err := plotter.NewScatter(plotter.XYs{pts[0], pts[len(pts)-1]})
	if err != nil {
		return nil, err
	}
	ends.GlyphStyle.Shape = draw.CircleGlyph{}
	ends.GlyphStyle.Radius = vg.Points(4)
	p.Add(ends)
	p.Legend.Add("start/end", ends)

	// Equal ranges on both axes so the path keeps its shape.
	span := math.Max(p.X.Max-p.X.Min, p.Y.Max-p.Y.Min) / 2
	if span == 0 {
		span = 1
	}
	cx, cy := (p.X.Max+p.X.Min)/2, (p.Y.Max+p.Y.Min)/2
	p.X.Min, p.X.Max = cx-span*1.05, cx+span*1.05
	p.Y.Min, p.Y.Max = cy-span*1.05, cy+span*1.05
	return p, nil
}

func headingPlot(run *db.Run, poses []db.PoseSample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Run %s - Heading", runLabel(run))
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Heading (deg)"
	p.Add(plotter.NewGrid())

	start := poses[0].Time
	pts := make(plotter.XYs, len(poses))
	for i, s := range poses {
		pts[i] = plotter.XY{X: s.Time.Sub(start).Seconds(), Y: s.Pose.Heading().Degrees()}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Y.Min, p.Y.Max = -180, 180
	return p, nil
}

func runLabel(run *db.Run) string {
	if run.Label != "" {
		return run.Label
	}
	return run.ID
}

func savePlot(fsys fsutil.FileSystem, p *plot.Plot, w, h vg.Length, file string) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", file, err)
	}
	f, err := fsys.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	return f.Close()
}
