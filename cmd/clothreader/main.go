package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/clothsim/clothheatmap/src/analysis"
	"github.com/clothsim/clothheatmap/src/logging"
	"github.com/clothsim/clothheatmap/src/summary"
)

func main() {
	var file, missing, column string
	flag.StringVar(&file, "file", "../result/summary.csv", "Path to summary.csv")
	flag.StringVar(&missing, "missing-keys", "group", "Rows without alpha/center: group|exclude")
	flag.StringVar(&column, "column", "success_rate", "Metric column to print per group")
	flag.Parse()
	logging.SetLogLevel("warn")

	policy, err := analysis.ParseMissingKeyPolicy(missing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	tab, err := summary.Load(file, summary.LoadOptions{Required: []string{column}})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	agg, err := analysis.Aggregate(tab, policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	ci, err := agg.Column(column)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Total rows: %d\n", len(tab.Records))
	fmt.Printf("Total groups: %d\n", len(agg.Rows))
	for _, r := range agg.Rows {
		fmt.Printf("alpha=%s center=%s runs=%d %s=%g\n", r.Key.Alpha, r.Key.Center, r.Count, column, r.Values[ci])
	}
}
