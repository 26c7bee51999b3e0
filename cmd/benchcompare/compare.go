package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/c360/semlink/errors"
)

// Stats are the timings of one benchmark in seconds.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type resultFile struct {
	Benchmarks []struct {
		Name  string `json:"name"`
		Stats Stats  `json:"stats"`
	} `json:"benchmarks"`
}

// Verdict classifies one benchmark.
type Verdict string

// Verdicts
const (
	Regression  Verdict = "regression"
	Improvement Verdict = "improvement"
	Unchanged   Verdict = "unchanged"
	Added       Verdict = "new"
	Removed     Verdict = "removed"
)

// Comparison is the outcome for one benchmark name. Baseline or Current is
// zero for added and removed benchmarks.
type Comparison struct {
	Name     string
	Baseline float64
	Current  float64
	Ratio    float64
	Verdict  Verdict
}

// Report holds every comparison sorted by name.
type Report struct {
	Threshold   float64
	Comparisons []Comparison
}

// Count returns the number of comparisons with verdict v.
func (r *Report) Count(v Verdict) int {
	n := 0
	for _, c := range r.Comparisons {
		if c.Verdict == v {
			n++
		}
	}
	return n
}

// LoadFile reads benchmark results. ".json" files hold {"benchmarks": [{"name",
// "stats": {"mean", ...}}]}; anything else is read as `go test -bench` output.
func LoadFile(path string) (map[string]Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "benchcompare", "LoadFile", "read "+path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseJSON(data)
	}
	return parseGoBench(bytes.NewReader(data))
}

func parseJSON(data []byte) (map[string]Stats, error) {
	var rf resultFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, errors.WrapInvalid(err, "benchcompare", "parseJSON", "decode results")
	}
	out := make(map[string]Stats, len(rf.Benchmarks))
	for _, b := range rf.Benchmarks {
		if b.Name == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "benchcompare", "parseJSON", "benchmark without name")
		}
		out[b.Name] = b.Stats
	}
	return out, nil
}

// parseGoBench reads lines like "BenchmarkResolve-8  1000  1234 ns/op". Repeated
// runs of one benchmark (-count) are folded into their mean, min and max.
func parseGoBench(r io.Reader) (map[string]Stats, error) {
	samples := make(map[string][]float64)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}
		for i := 2; i+1 < len(fields); i += 2 {
			if fields[i+1] != "ns/op" {
				continue
			}
			ns, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, errors.WrapInvalid(err, "benchcompare", "parseGoBench", fields[0])
			}
			samples[fields[0]] = append(samples[fields[0]], ns/1e9)
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "benchcompare", "parseGoBench", "scan")
	}

	out := make(map[string]Stats, len(samples))
	for name, s := range samples {
		out[name] = summarize(s)
	}
	return out, nil
}

func summarize(s []float64) Stats {
	sorted := append([]float64(nil), s...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, v := range sorted {
		sq += (v - mean) * (v - mean)
	}
	stddev := 0.0
	if len(sorted) > 1 {
		stddev = math.Sqrt(sq / float64(len(sorted)-1))
	}

	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	return Stats{Mean: mean, Median: median, StdDev: stddev, Min: sorted[0], Max: sorted[len(sorted)-1]}
}

// Compare classifies every benchmark by the ratio of current to baseline
// mean: above threshold is a regression, below 1/threshold an improvement.
func Compare(baseline, current map[string]Stats, threshold float64) *Report {
	r := &Report{Threshold: threshold}
	for name, cur := range current {
		base, ok := baseline[name]
		if !ok {
			r.Comparisons = append(r.Comparisons, Comparison{Name: name, Current: cur.Mean, Verdict: Added})
			continue
		}
		c := Comparison{Name: name, Baseline: base.Mean, Current: cur.Mean, Verdict: Unchanged}
		if base.Mean > 0 {
			c.Ratio = cur.Mean / base.Mean
		}
		switch {
		case base.Mean <= 0:
		case c.Ratio > threshold:
			c.Verdict = Regression
		case c.Ratio < 1/threshold:
			c.Verdict = Improvement
		}
		r.Comparisons = append(r.Comparisons, c)
	}
	for name, base := range baseline {
		if _, ok := current[name]; !ok {
			r.Comparisons = append(r.Comparisons, Comparison{Name: name, Baseline: base.Mean, Verdict: Removed})
		}
	}
	sort.Slice(r.Comparisons, func(i, j int) bool { return r.Comparisons[i].Name < r.Comparisons[j].Name })
	return r
}

// Write prints the report grouped by verdict followed by a summary line.
func (r *Report) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Comparison (threshold: %.2fx)\n\n", r.Threshold)

	sections := []struct {
		title   string
		verdict Verdict
	}{
		{"Performance regressions", Regression},
		{"Performance improvements", Improvement},
		{"Unchanged (within threshold)", Unchanged},
		{"New benchmarks", Added},
		{"Removed benchmarks", Removed},
	}
	for _, s := range sections {
		if r.Count(s.verdict) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s:\n", s.title)
		for _, c := range r.Comparisons {
			if c.Verdict != s.verdict {
				continue
			}
			switch c.Verdict {
			case Added:
				_, _ = fmt.Fprintf(w, "  %s: %.4fs\n", c.Name, c.Current)
			case Removed:
				_, _ = fmt.Fprintf(w, "  %s: %.4fs\n", c.Name, c.Baseline)
			default:
				_, _ = fmt.Fprintf(w, "  %s: %.4fs -> %.4fs (%+.1f%%, ratio: %.2fx)\n",
					c.Name, c.Baseline, c.Current, (c.Ratio-1)*100, c.Ratio)
			}
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "Summary: %d regressions, %d improvements, %d unchanged\n",
		r.Count(Regression), r.Count(Improvement), r.Count(Unchanged))
}
