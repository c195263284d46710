// Command ttc-replay runs the TTC pipeline over a recorded frame sequence.
//
// Usage:
//
//	ttc-replay -sequence drive.json [-config tuning.json] [-db ttc.db]
//	           [-report ttc.html] [-plot ttc.png] [-units mph] [-verbose]
//	           [-serve :8080]
//
// For every consecutive frame pair it logs the range and camera TTC of each
// associated object. Results can be persisted to SQLite, rendered as an
// HTML chart or static image, and inspected live through tailsql.
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
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/fusion/pipeline"
	"github.com/banshee-data/collision.report/internal/fusion/report"
	"github.com/banshee-data/collision.report/internal/fusion/sequence"
	"github.com/banshee-data/collision.report/internal/fusion/storage/sqlite"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/security"
	"github.com/banshee-data/collision.report/internal/units"
	"github.com/banshee-data/collision.report/internal/version"
)

// Config holds the command-line options.
type Config struct {
	SequencePath string
	ConfigPath   string
	DBPath       string
	ReportPath   string
	PlotPath     string
	Units        string
	Verbose      bool
	ServeAddr    string
	ShowVersion  bool
}

func parseFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("ttc-replay", flag.ContinueOnError)
	fs.StringVar(&cfg.SequencePath, "sequence", "", "path to sequence JSON file (required)")
	fs.StringVar(&cfg.ConfigPath, "config", "", "path to tuning config JSON (defaults built in)")
	fs.StringVar(&cfg.DBPath, "db", "", "path to sqlite results database (optional)")
	fs.StringVar(&cfg.ReportPath, "report", "", "path to write the HTML TTC report (optional)")
	fs.StringVar(&cfg.PlotPath, "plot", "", "path to write a static TTC plot, format from extension (optional)")
	fs.StringVar(&cfg.Units, "units", "", "closing speed units: "+units.GetValidUnitsString()+" (overrides config)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log per-frame and per-object diagnostics")
	fs.StringVar(&cfg.ServeAddr, "serve", "", "after the run, serve tailsql and the report on this address")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.ShowVersion {
		return cfg, nil
	}
	if cfg.SequencePath == "" {
		return cfg, errors.New("-sequence is required")
	}
	if cfg.Units != "" && !units.IsValid(cfg.Units) {
		return cfg, fmt.Errorf("invalid -units %q: must be one of %s", cfg.Units, units.GetValidUnitsString())
	}
	if cfg.ServeAddr != "" && cfg.DBPath == "" {
		return cfg, errors.New("-serve requires -db")
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("ttc-replay: %v", err)
	}
	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("ttc-replay: %v", err)
	}
}

// replay holds everything produced by one run.
type replay struct {
	Results []*pipeline.FramePairResult
	RunID   string
	Store   *sqlite.ResultStore
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	if cfg.Verbose {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
		monitoring.SetDebug(true)
	} else {
		pipeline.SetLogWriters(os.Stderr, nil, nil)
	}

	tuning := config.DefaultTuningConfig()
	if cfg.ConfigPath != "" {
		loaded, err := config.LoadTuningConfig(cfg.ConfigPath)
		if err != nil {
			return err
		}
		tuning = loaded
	}
	speedUnits := tuning.GetSpeedUnits()
	if cfg.Units != "" {
		speedUnits = cfg.Units
	}

	seq, err := sequence.Load(cfg.SequencePath)
	if err != nil {
		return err
	}

	pcfg, err := pipeline.ConfigFromTuning(tuning)
	if err != nil {
		return err
	}
	if seq.FrameRate > 0 && seq.FrameRate != pcfg.FrameRate {
		monitoring.Logf("using sequence frame rate %.2f Hz (config %.2f Hz)", seq.FrameRate, pcfg.FrameRate)
		pcfg.FrameRate = seq.FrameRate
	}
	proc, err := pipeline.NewProcessor(pcfg)
	if err != nil {
		return err
	}

	rp, err := replaySequence(ctx, proc, seq, cfg.DBPath, tuning, speedUnits, out)
	if rp.Store != nil {
		defer rp.Store.Close()
	}
	if err != nil {
		return err
	}

	if cfg.ReportPath != "" {
		if err := writeReport(cfg.ReportPath, seq.Source, pcfg, rp.Results, speedUnits); err != nil {
			return err
		}
		monitoring.Logf("wrote report to %s", cfg.ReportPath)
	}
	if cfg.PlotPath != "" {
		series := report.BuildSeries(report.SamplesFromResults(rp.Results))
		if err := report.SaveTTCPlot(cfg.PlotPath, series, report.Options{Title: "TTC " + seq.Source}); err != nil {
			return err
		}
		monitoring.Logf("wrote plot to %s", cfg.PlotPath)
	}

	if cfg.ServeAddr != "" {
		return serve(ctx, cfg.ServeAddr, rp, seq.Source, pcfg, speedUnits)
	}
	return nil
}

func replaySequence(ctx context.Context, proc *pipeline.Processor, seq *sequence.Sequence, dbPath string, tuning *config.TuningConfig, speedUnits string, out io.Writer) (replay, error) {
	var rp replay
	pcfg := proc.Config()

	if dbPath != "" {
		store, err := sqlite.Open(dbPath)
		if err != nil {
			return rp, err
		}
		rp.Store = store
		rec, err := store.CreateRun(ctx, seq.Source, pcfg.FrameRate, tuning)
		if err != nil {
			return rp, err
		}
		rp.RunID = rec.RunID
		monitoring.Logf("recording run %s to %s", rec.RunID, dbPath)
	}

	pairs := seq.Pairs()
	start := time.Now()
	err := proc.Run(ctx, pairs, seq.Calibration, func(res *pipeline.FramePairResult) error {
		rp.Results = append(rp.Results, res)
		for _, obj := range res.Objects {
			fmt.Fprintf(out, "frame %4d  box %3d->%-3d  range %-28v camera %-28v closing %s\n",
				res.FrameIndex, obj.PrevBoxID, obj.CurrBoxID, obj.Range, obj.Camera,
				units.FormatSpeed(obj.ClosingSpeed, speedUnits))
		}
		if rp.Store != nil {
			return rp.Store.InsertFrameResult(ctx, rp.RunID, res)
		}
		return nil
	})
	if err != nil {
		return rp, err
	}

	monitoring.Logf("processed %d frame pairs in %v (%s, %d workers)",
		len(pairs), time.Since(start).Round(time.Millisecond), pcfg.Strategy, pcfg.Workers)
	return rp, nil
}

func writeReport(path, source string, pcfg pipeline.Config, results []*pipeline.FramePairResult, speedUnits string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := renderReport(f, source, pcfg, results, speedUnits); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func renderReport(w io.Writer, source string, pcfg pipeline.Config, results []*pipeline.FramePairResult, speedUnits string) error {
	series := report.BuildSeries(report.SamplesFromResults(results))
	return report.RenderTTCChart(w, series, report.Options{
		Title:      "TTC " + source,
		Subtitle:   fmt.Sprintf("%s association, %.1f Hz, %s", pcfg.Strategy, pcfg.FrameRate, version.String()),
		SpeedUnits: speedUnits,
	})
}

// reportHandler renders the report on each request. With ?download=1 the
// page is sent as an attachment named after the sequence.
func reportHandler(source string, pcfg pipeline.Config, results []*pipeline.FramePairResult, speedUnits string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Query().Get("download") != "" {
			name := security.SanitizeFilename(strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)))
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ttc_%s.html"`, name))
		}
		if err := renderReport(w, source, pcfg, results, speedUnits); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// serve exposes tailsql over the run database plus the rendered report
// until ctx is cancelled.
func serve(ctx context.Context, addr string, rp replay, source string, pcfg pipeline.Config, speedUnits string) error {
	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://ttc.db", rp.Store.DB(), &tailsql.DBOptions{
		Label: "TTC results",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	mux.Handle("/report", reportHandler(source, pcfg, rp.Results, speedUnits))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("serving run %s on http://%s/debug/ and /report", rp.RunID, addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
