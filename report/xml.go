package report

import (
	"encoding/xml"
	"fmt"
)

type xmlReport struct {
	XMLName    xml.Name      `xml:"timingSession"`
	Version    string        `xml:"version,attr,omitempty"`
	PageData   xmlPageData   `xml:"pageData"`
	Runs       *xmlRuns      `xml:"runs,omitempty"`
	Statistics xmlStatistics `xml:"statistics"`
}

// xmlPageData and xmlStatistics keep their element when empty.
type xmlPageData struct {
	Entries []pageDataEntry `xml:"entry"`
}

type xmlStatistics struct {
	Statistics []statistic `xml:"statistic"`
}

type xmlRuns struct {
	Runs []xmlRun `xml:"run"`
}

type xmlRun struct {
	Marks                xmlMarks                `xml:"marks"`
	Measurements         xmlMeasurements         `xml:"measurements"`
	ResourceMeasurements xmlResourceMeasurements `xml:"resourceMeasurements"`
}

type xmlMarks struct {
	Marks []mark `xml:"mark"`
}

type xmlMeasurements struct {
	Measurements []measurement `xml:"measurement"`
}

type xmlResourceMeasurements struct {
	ResourceMeasurements []resourceMeasurement `xml:"resourceMeasurement"`
}

func (r report) xml(pretty bool) ([]byte, error) {
	out := xmlReport{
		Version:    r.version,
		PageData:   xmlPageData{Entries: r.pageData},
		Statistics: xmlStatistics{Statistics: r.statistics},
	}
	if r.runs != nil {
		out.Runs = &xmlRuns{}
		for _, run := range r.runs {
			out.Runs.Runs = append(out.Runs.Runs, xmlRun{
				Marks:                xmlMarks{Marks: run.Marks},
				Measurements:         xmlMeasurements{Measurements: run.Measurements},
				ResourceMeasurements: xmlResourceMeasurements{ResourceMeasurements: run.ResourceMeasurements},
			})
		}
	}

	var data []byte
	var err error
	if pretty {
		data, err = xml.MarshalIndent(out, "", "  ")
	} else {
		data, err = xml.Marshal(out)
	}
	if err != nil {
		return nil, fmt.Errorf("report.xml() marshalling: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	return append(data, '\n'), nil
}
