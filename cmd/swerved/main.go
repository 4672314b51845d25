// Command swerved runs the swerve drive control loop and serves the
// path-follower HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/swervedrive/internal/api"
	"github.com/banshee-data/swervedrive/internal/config"
	"github.com/banshee-data/swervedrive/internal/db"
	"github.com/banshee-data/swervedrive/internal/drive"
	"github.com/banshee-data/swervedrive/internal/hardware"
	"github.com/banshee-data/swervedrive/internal/monitoring"
	"github.com/banshee-data/swervedrive/internal/serialmux"
	"github.com/banshee-data/swervedrive/internal/sim"
	"github.com/banshee-data/swervedrive/internal/swerve"
	"github.com/banshee-data/swervedrive/internal/teleop"
	"github.com/banshee-data/swervedrive/internal/timeutil"
	"github.com/banshee-data/swervedrive/internal/units"
	"github.com/banshee-data/swervedrive/internal/version"
)

var (
	configFile  = flag.String("config", config.DefaultConfigPath, "Path to the drive config JSON")
	listen      = flag.String("listen", ":8080", "Listen address")
	port        = flag.String("port", "", "Serial port of the motor controller board (overrides serial_port in the config)")
	simMode     = flag.Bool("sim", false, "Drive a simulated drivetrain instead of hardware")
	dbFile      = flag.String("db", "swervedrive.db", "Telemetry database path (empty disables recording)")
	unitsFlag   = flag.String("units", "mps,rad", "Default response units, e.g. mph,deg")
	runLabel    = flag.String("label", "", "Label stored with this run's telemetry")
	verbose     = flag.Bool("verbose", false, "Enable diag and trace logging")
	versionFlag = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("swerved %s\n", version.String())
		return
	}

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "migrate":
			if err := db.RunMigrateCommand(flag.Args()[1:], *dbFile, os.Stdout); err != nil {
				log.Fatalf("migrate: %v", err)
			}
			return
		case "help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", flag.Arg(0))
			printUsage()
			os.Exit(1)
		}
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	setLogWriters(*verbose)
	log.Printf("swerved %s", version.String())

	cfg, err := config.LoadDriveConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	defaultUnits, err := units.ParseSelection(*unitsFlag)
	if err != nil {
		log.Fatalf("invalid -units: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, defaultUnits); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	log.Printf("Graceful shutdown complete")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `swerved - swerve drive controller

Usage:
  swerved [flags]                 run the control loop and HTTP API
  swerved [flags] migrate <cmd>   manage the telemetry database schema
  swerved help                    show this help

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	db.PrintMigrateHelp(os.Stderr)
}

// setLogWriters sends ops to stderr always, and diag and trace only when
// verbose.
func setLogWriters(verbose bool) {
	var diag, trace io.Writer
	if verbose {
		diag, trace = os.Stderr, os.Stderr
	}
	drive.SetLogWriters(os.Stderr, diag, trace)
	hardware.SetLogWriters(os.Stderr, diag, trace)
}

// backend is the hardware the coordinator drives: either the simulator or
// the motor controller board behind a serial port.
type backend struct {
	gyro    drive.HeadingSensor
	modules [swerve.NumModules]drive.Module

	// beforeCycle advances the simulator; nil on hardware.
	beforeCycle func(dt time.Duration)

	mux serialmux.SerialMuxInterface
	bus *hardware.Bus
}

func newSimBackend(cfg *config.DriveConfig) (*backend, error) {
	dt, err := sim.NewDrivetrain(cfg.GetModuleGeometry())
	if err != nil {
		return nil, err
	}
	b := &backend{gyro: dt.Gyro(), beforeCycle: dt.Advance}
	for i, m := range dt.Modules() {
		b.modules[i] = m
	}
	return b, nil
}

func newHardwareBackend(mux serialmux.SerialMuxInterface, cfg *config.DriveConfig, clock timeutil.Clock) (*backend, error) {
	bus, err := hardware.NewBus(mux, clock, cfg.GetStaleAfter())
	if err != nil {
		return nil, err
	}
	b := &backend{gyro: bus.Gyro(), mux: mux, bus: bus}
	for i, m := range bus.Modules() {
		b.modules[i] = m
	}
	return b, nil
}

func openBackend(cfg *config.DriveConfig, clock timeutil.Clock) (*backend, error) {
	if *simMode {
		log.Printf("using simulated drivetrain")
		return newSimBackend(cfg)
	}
	path := *port
	if path == "" {
		path = cfg.GetSerialPort()
	}
	mux, err := serialmux.NewRealSerialMux(path, cfg.GetSerial())
	if err != nil {
		return nil, fmt.Errorf("failed to open motor controller port: %w", err)
	}
	log.Printf("opened motor controller on %s (%s)", path, cfg.GetSerial())
	b, err := newHardwareBackend(mux, cfg, clock)
	if err != nil {
		mux.Close()
		return nil, err
	}
	return b, nil
}

func run(ctx context.Context, cfg *config.DriveConfig, defaultUnits units.Selection) error {
	clock := timeutil.RealClock{}

	b, err := openBackend(cfg, clock)
	if err != nil {
		return err
	}
	if b.mux != nil {
		defer b.mux.Close()
	}

	d, err := drive.New(drive.OptionsFromConfig(cfg), b.gyro, b.modules, clock)
	if err != nil {
		return fmt.Errorf("failed to build drive: %w", err)
	}

	var (
		database *db.DB
		recorder *db.Recorder
		runID    string
	)
	if *dbFile != "" {
		database, err = db.NewDB(*dbFile)
		if err != nil {
			return fmt.Errorf("failed to open telemetry database: %w", err)
		}
		defer database.Close()

		r, err := database.StartRun(*runLabel, cfg, clock.Now())
		if err != nil {
			return fmt.Errorf("failed to start telemetry run: %w", err)
		}
		runID = r.ID
		recorder = db.NewRecorder(database, db.RecorderConfig{
			RunID:         runID,
			Buffer:        cfg.GetTelemetryBuffer(),
			BatchSize:     cfg.GetTelemetryBatchSize(),
			FlushInterval: cfg.GetTelemetryFlushInterval(),
			Clock:         clock,
		})
		d.SetObserver(recorder)
		log.Printf("recording telemetry run %s to %s", runID, *dbFile)
	}

	loop := drive.NewLoop(d, clock)
	loop.BeforeCycle = b.beforeCycle

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// run the monitor routine to manage IO on the serial port
	if b.mux != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := b.mux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("monitor routine terminated")
		}()
		go func() {
			defer wg.Done()
			if err := b.bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("hardware bus stopped: %v", err)
			}
		}()
		if err := b.bus.Hello(); err != nil {
			log.Printf("failed to greet motor controller: %v", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			mapping := teleop.MappingFromConfig(cfg)
			if err := mapping.Run(ctx, b.bus.Axes(), d); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("teleop stopped: %v", err)
			}
		}()
	}

	if recorder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := recorder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("telemetry recorder stopped: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		// a dead control loop takes everything else down with it
		defer cancel()
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("control loop stopped: %v", err)
		}
	}()

	mux, err := newServeMux(d, b, database, recorder, runID, defaultUnits)
	if err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		serveHTTP(ctx, *listen, api.LoggingMiddleware(mux))
	}()

	wg.Wait()
	return ctx.Err()
}

func newServeMux(d *drive.Drive, b *backend, database *db.DB, recorder *db.Recorder, runID string, defaultUnits units.Selection) (*http.ServeMux, error) {
	server := api.NewServer(d, database, runID, defaultUnits)
	if b.bus != nil {
		server.AddStats("hardware", b.bus.Stats)
	}
	if recorder != nil {
		server.AddStats("telemetry", func() map[string]uint64 {
			return map[string]uint64{
				"written": recorder.Written(),
				"dropped": recorder.Dropped(),
				"failed":  recorder.Failed(),
			}
		})
	}

	mux := server.ServeMux()
	if b.mux != nil {
		b.mux.AttachAdminRoutes(mux)
	}
	if database != nil {
		if err := database.AttachAdminRoutes(mux); err != nil {
			return nil, fmt.Errorf("failed to attach database admin routes: %w", err)
		}
	}
	return mux, nil
}

func serveHTTP(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		monitoring.Logf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
}
