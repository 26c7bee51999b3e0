// Package main implements benchcompare, which compares two benchmark result
// files and reports regressions against a ratio threshold.
package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// errRegression is returned when regressions are found and -fail-on-regression is set.
var errRegression = stderrors.New("performance regressions detected")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("benchcompare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	threshold := fs.Float64("threshold", 1.5, "Regression threshold multiplier (1.5 = 50% slower)")
	strict := fs.Bool("fail-on-regression", false, "Exit with an error when regressions are detected")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: benchcompare [options] baseline current\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected baseline and current files, got %d arguments", fs.NArg())
	}
	if *threshold <= 1 {
		return fmt.Errorf("threshold must be greater than 1, got %v", *threshold)
	}

	_, _ = fmt.Fprintf(stdout, "Loading baseline: %s\n", fs.Arg(0))
	baseline, err := LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Loading current: %s\n\n", fs.Arg(1))
	current, err := LoadFile(fs.Arg(1))
	if err != nil {
		return err
	}

	report := Compare(baseline, current, *threshold)
	report.Write(stdout)

	if report.Count(Regression) == 0 {
		_, _ = fmt.Fprintln(stdout, "No significant performance regressions")
		return nil
	}
	if *strict {
		return errRegression
	}
	return nil
}
