// clothheatmap renders the parameter-sweep heatmap report.
//
// It loads the per-run summary table, averages runs that share (alpha, center), and writes
// one annotated heatmap per configured metric. Defaults reproduce the stock report:
// ../result/summary.csv in, nine PDFs into ../result/.
//
// Settings are layered: built-in defaults, then -config YAML, then flags. A .env file in
// the working directory may supply CLOTH_HEATMAP_LOG_LEVEL.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/clothsim/clothheatmap/src/logging"
	"github.com/clothsim/clothheatmap/src/report"
)

const envLogLevel = "CLOTH_HEATMAP_LOG_LEVEL"

func main() {
	// .env is optional
	_ = godotenv.Load()

	defLevel := os.Getenv(envLogLevel)
	if _, ok := logging.ParseLevel(defLevel); !ok {
		defLevel = "info"
	}
	configPath := flag.String("config", "", "Optional YAML report config (input, output_dir, delimiter, missing_keys, heatmaps)")
	inPath := flag.String("in", "", "Summary CSV (overrides config; default "+report.DefaultInputPath+")")
	outDir := flag.String("out", "", "Output directory (overrides config; default "+report.DefaultOutputDir+")")
	missingKeys := flag.String("missing-keys", "", "Rows without alpha=/center= in simulation_id: group|exclude (default group)")
	logLevel := flag.String("log-level", defLevel, "Log level (debug|info|warn|error); env "+envLogLevel)
	shotsDir := flag.String("screenshots", "", "If set, write PNG screenshots into this directory instead of vector files")
	shotW := flag.Int("screenshot-width", 0, "Screenshot width in pixels (0 = default)")
	shotH := flag.Int("screenshot-height", 0, "Screenshot height in pixels (0 = default)")
	flag.Parse()

	logging.SetLogLevel(*logLevel)

	cfg := report.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = report.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] %v\n", report.StageConfig, err)
			os.Exit(1)
		}
		logging.Infof("[init] config loaded from %s", *configPath)
	}
	if *inPath != "" {
		cfg.InputPath = *inPath
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *missingKeys != "" {
		cfg.MissingKeys = *missingKeys
	}

	var r report.Renderer = report.FileRenderer{}
	if *shotsDir != "" {
		cfg.OutputDir = *shotsDir
		r = report.ScreenshotRenderer{Width: *shotW, Height: *shotH, Source: cfg.InputPath}
		logging.Infof("[init] screenshots mode: writing PNGs to %s", *shotsDir)
	}

	res, err := report.Run(cfg, r)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if res != nil && len(res.Written) > 0 {
			fmt.Fprintf(os.Stderr, "%d file(s) written before the failure\n", len(res.Written))
		}
		os.Exit(1)
	}
	for _, p := range res.Written {
		fmt.Println(p)
	}
}
