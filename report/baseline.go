package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrNoRuns = errors.New("report has no runs")

// ReadBaseline reads the measurement durations of every run of a JSON report
// written with IncludeRuns, keyed by measurement name.
func ReadBaseline(r io.Reader) (map[string][]float64, error) {
	var baseline struct {
		Runs []struct {
			Measurements []struct {
				Name     string  `json:"name"`
				Duration float64 `json:"duration"`
			} `json:"measurements"`
		} `json:"runs"`
	}
	if err := json.NewDecoder(r).Decode(&baseline); err != nil {
		return nil, fmt.Errorf("ReadBaseline() decoding report: %w", err)
	}
	if len(baseline.Runs) == 0 {
		return nil, fmt.Errorf("ReadBaseline(): %w", ErrNoRuns)
	}

	durations := map[string][]float64{}
	for _, run := range baseline.Runs {
		for _, m := range run.Measurements {
			durations[m.Name] = append(durations[m.Name], m.Duration)
		}
	}
	return durations, nil
}
