package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/ivlev/prompt2path/internal/system"
)

// Stats are the stage timings of one generation.
type Stats struct {
	Analysis       time.Duration
	Generation     time.Duration
	Interpretation time.Duration
	Total          time.Duration
	Corrections    int
}

// Report formats the timings together with an optional host snapshot.
func (s Stats) Report(build string, host *system.HostStats) string {
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.3fs\n"+
			"Analysis: %.3fs\n"+
			"Generation: %.3fs\n"+
			"Interpretation: %.3fs\n"+
			"Clamp corrections: %d\n",
		build, s.Total.Seconds(), s.Analysis.Seconds(), s.Generation.Seconds(), s.Interpretation.Seconds(), s.Corrections,
	)
	if host != nil {
		report += "Host: " + host.String() + "\n"
	}
	return report + "----------------------------\n"
}

// AppendBenchmark adds one line per generation to a benchmark log.
func AppendBenchmark(file, build string, res *Result) error {
	entry := fmt.Sprintf("[%s] Build: %s | Model: %s | Provider: %s | Keyframes: %d | Total: %.3fs | Generation: %.3fs | Corrections: %d\n",
		time.Now().Format("2006-01-02 15:04:05"),
		build,
		res.ModelID,
		res.Provider,
		len(res.Path.Keyframes),
		res.Stats.Total.Seconds(),
		res.Stats.Generation.Seconds(),
		res.Stats.Corrections,
	)

	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}
