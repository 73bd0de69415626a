// Package report drives the heatmap pipeline: load the sweep summary, aggregate it by
// (alpha, center), then pivot and render one figure per configured metric.
//
// Steps run in order and the first failure stops the run. Files written before the
// failure stay on disk and are listed in Result.Written.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clothsim/clothheatmap/src/analysis"
	"github.com/clothsim/clothheatmap/src/logging"
	"github.com/clothsim/clothheatmap/src/render"
	"github.com/clothsim/clothheatmap/src/summary"
)

// Pipeline stages named in StageError.
const (
	StageConfig    = "config"
	StageLoad      = "load"
	StageAggregate = "aggregate"
	StageRender    = "render"
)

// StageError reports which step failed and on what.
type StageError struct {
	Stage  string
	Target string // input file or output file
	Err    error
}

func (e *StageError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("[%s] %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Target, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Renderer writes one pivoted grid to path.
type Renderer interface {
	Render(grid *analysis.Grid, spec HeatmapSpec, path string) error
}

// FileRenderer writes vector figures; the format follows the file extension.
type FileRenderer struct{}

func (FileRenderer) Render(grid *analysis.Grid, spec HeatmapSpec, path string) error {
	return render.Save(path, grid, spec.Label, spec.Options())
}

// ScreenshotRenderer writes PNG screenshots instead, swapping the extension to .png.
type ScreenshotRenderer struct {
	Width, Height int
	Source        string        // stamped on each image when set
	Corner        render.Corner // where Source goes; bottom-right by default
}

func (s ScreenshotRenderer) Render(grid *analysis.Grid, spec HeatmapSpec, path string) error {
	path = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	opts := spec.Options()
	opts.Source = s.Source
	opts.SourceCorner = s.Corner
	var buf bytes.Buffer
	if err := render.Screenshot(&buf, grid, spec.Label, opts, s.Width, s.Height); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %v", render.ErrRender, err)
	}
	logging.Infof("[render] wrote screenshot %s", path)
	return nil
}

// Result summarizes a run.
type Result struct {
	Rows    int // raw rows loaded
	Groups  int
	Written []string
}

// Run executes the pipeline described by cfg. A nil renderer means FileRenderer.
func Run(cfg Config, r Renderer) (*Result, error) {
	defer logging.TimeTrack(time.Now(), "report")
	res := &Result{}
	if r == nil {
		r = FileRenderer{}
	}
	if err := cfg.Validate(); err != nil {
		return res, &StageError{Stage: StageConfig, Err: err}
	}
	policy, _ := analysis.ParseMissingKeyPolicy(cfg.MissingKeys)
	opts, _ := cfg.loadOptions()

	tab, err := summary.Load(cfg.InputPath, opts)
	if err != nil {
		return res, &StageError{Stage: StageLoad, Target: cfg.InputPath, Err: err}
	}
	res.Rows = len(tab.Records)

	agg, err := analysis.Aggregate(tab, policy)
	if err != nil {
		return res, &StageError{Stage: StageAggregate, Target: cfg.InputPath, Err: err}
	}
	res.Groups = len(agg.Rows)

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return res, &StageError{Stage: StageRender, Target: cfg.OutputDir, Err: fmt.Errorf("%w: %v", render.ErrRender, err)}
		}
	}
	for i, spec := range cfg.Heatmaps {
		path := filepath.Join(cfg.OutputDir, spec.File)
		grid, err := analysis.Pivot(agg, spec.Column)
		if err == nil {
			err = r.Render(grid, spec, path)
		}
		if err != nil {
			if skipped := len(cfg.Heatmaps) - i - 1; skipped > 0 {
				logging.Warnf("[report] stopping after failure; %d heatmaps skipped", skipped)
			}
			return res, &StageError{Stage: StageRender, Target: path, Err: err}
		}
		res.Written = append(res.Written, path)
		logging.Debugf("[report] %d/%d %s <- %s", i+1, len(cfg.Heatmaps), spec.File, spec.Column)
	}
	logging.Infof("[report] done: %d rows, %d groups, %d files in %s", res.Rows, res.Groups, len(res.Written), cfg.OutputDir)
	return res, nil
}

// IsStage reports whether err is a StageError from the given stage.
func IsStage(err error, stage string) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
