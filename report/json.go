package report

import (
	"encoding/json"
	"fmt"
)

type jsonReport struct {
	Version    string            `json:"version,omitempty"`
	PageData   map[string]string `json:"pageData"`
	Runs       []run             `json:"runs,omitempty"`
	Statistics []statistic       `json:"statistics"`
}

func (r report) json(pretty bool) ([]byte, error) {
	// encoding/json writes map keys sorted.
	pageData := make(map[string]string, len(r.pageData))
	for _, e := range r.pageData {
		pageData[e.Key] = e.Value
	}
	out := jsonReport{
		Version:    r.version,
		PageData:   pageData,
		Runs:       r.runs,
		Statistics: r.statistics,
	}

	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return nil, fmt.Errorf("report.json() marshalling: %w", err)
	}
	return append(data, '\n'), nil
}
