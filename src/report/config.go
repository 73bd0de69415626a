package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clothsim/clothheatmap/src/analysis"
	"github.com/clothsim/clothheatmap/src/render"
	"github.com/clothsim/clothheatmap/src/summary"
)

const (
	DefaultInputPath = "../result/summary.csv"
	DefaultOutputDir = "../result/"
)

// HeatmapSpec describes one output figure.
type HeatmapSpec struct {
	Column     string `yaml:"column"`
	File       string `yaml:"file"`
	Label      string `yaml:"label"`
	Format     string `yaml:"format,omitempty"`
	Scientific bool   `yaml:"scientific,omitempty"`
}

// Options converts the heatmap settings to renderer options.
func (h HeatmapSpec) Options() render.Options {
	return render.Options{Format: h.Format, Scientific: h.Scientific}
}

// Config is everything a report run needs. Zero fields are not defaulted by Run; start
// from DefaultConfig or LoadConfig.
type Config struct {
	InputPath   string        `yaml:"input"`
	OutputDir   string        `yaml:"output_dir"`
	Comma       string        `yaml:"delimiter,omitempty"`
	MissingKeys string        `yaml:"missing_keys,omitempty"`
	Heatmaps    []HeatmapSpec `yaml:"heatmaps"`
}

// DefaultConfig returns the stock nine-figure report over ../result/summary.csv.
func DefaultConfig() Config {
	return Config{
		InputPath:   DefaultInputPath,
		OutputDir:   DefaultOutputDir,
		MissingKeys: analysis.MissingKeysGroup.String(),
		Heatmaps: []HeatmapSpec{
			{Column: "success_rate", File: "heatmap_success_rate.pdf", Label: "Success Rate", Format: "%.4f"},
			{Column: "group_capacity/95-percentile", File: "heatmap_group_capacity_95p.pdf", Label: "Group Capacity (95th Percentile)", Scientific: true},
			{Column: "fail_no_alternative_path_rate", File: "heatmap_fasr.pdf", Label: "FASR", Format: "%.4f"},
			{Column: "time_success/average", File: "heatmap_latency_success.pdf", Label: "Latency (Success) [ms]", Format: "%.0f"},
			{Column: "time_fail/average", File: "heatmap_latency_fail.pdf", Label: "Latency (Fail) [ms]", Format: "%.0f"},
			{Column: "group_cover_rate", File: "heatmap_group_cover_rate.pdf", Label: "Group Cover Rate", Format: "%.4f"},
			{Column: "retry/average", File: "heatmap_retry_average.pdf", Label: "Retry Average", Format: "%.4f"},
			{Column: "cul/average", File: "heatmap_cul_average.pdf", Label: "CUL Average", Format: "%.4f"},
			{Column: "time_success/average", File: "heatmap_time_success_average.pdf", Label: "Time Success Average [ms]", Format: "%.2f"},
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys absent from the file keep their
// defaults; a heatmaps list, when present, replaces the default list entirely.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the config before any file is touched.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.InputPath) == "" {
		errs = append(errs, errors.New("input path is empty"))
	}
	if _, err := analysis.ParseMissingKeyPolicy(c.MissingKeys); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.delimiter(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Heatmaps) == 0 {
		errs = append(errs, errors.New("no heatmaps configured"))
	}
	seen := map[string]int{}
	for i, h := range c.Heatmaps {
		if h.Column == "" || h.File == "" {
			errs = append(errs, fmt.Errorf("heatmap %d: column and file are required", i))
			continue
		}
		key := filepath.Clean(h.File)
		if j, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("heatmap %d: file %q already used by heatmap %d", i, h.File, j))
		}
		seen[key] = i
		if !h.Scientific {
			if err := render.ValidateFormat(h.Format); err != nil {
				errs = append(errs, fmt.Errorf("heatmap %d: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Required lists the metric columns the configured heatmaps read, in config order and
// without repeats.
func (c Config) Required() []string {
	var out []string
	seen := map[string]bool{}
	for _, h := range c.Heatmaps {
		if !seen[h.Column] {
			seen[h.Column] = true
			out = append(out, h.Column)
		}
	}
	return out
}

func (c Config) delimiter() (rune, error) {
	switch c.Comma {
	case "", ",":
		return ',', nil
	case ";":
		return ';', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	}
	r := []rune(c.Comma)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", c.Comma)
	}
	return r[0], nil
}

func (c Config) loadOptions() (summary.LoadOptions, error) {
	comma, err := c.delimiter()
	if err != nil {
		return summary.LoadOptions{}, err
	}
	return summary.LoadOptions{Comma: comma, Required: c.Required()}, nil
}
