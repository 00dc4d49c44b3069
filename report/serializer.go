// Package report serializes a timing session into an XML or JSON report, and
// reads back and plots the durations of a session.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/kcz17/pagetime/stats"
	"github.com/kcz17/pagetime/timings"
)

type Format string

const (
	XML  Format = "xml"
	JSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case XML, JSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported report format %q; expected one of {xml|json}", s)
}

func (f Format) ContentType() string {
	if f == JSON {
		return "application/json"
	}
	return "application/xml"
}

type Options struct {
	Format      Format
	PrettyPrint bool
	// IncludeRuns adds every run to the report along with the statistics.
	IncludeRuns bool
	// Version is reported when not empty.
	Version string
}

// Serialize encodes session entirely in memory so that nothing is written
// when encoding fails.
func Serialize(session *timings.Session, opts Options) ([]byte, error) {
	r := newReport(session, opts)
	switch opts.Format {
	case XML:
		return r.xml(opts.PrettyPrint)
	case JSON:
		return r.json(opts.PrettyPrint)
	}
	return nil, fmt.Errorf("Serialize() unsupported format %q", opts.Format)
}

func Write(w io.Writer, session *timings.Session, opts Options) error {
	data, err := Serialize(session, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("Write() writing report: %w", err)
	}
	return nil
}

// number is a float printed in fixed notation with at most six fractional
// digits and no trailing zeros.
type number float64

func (n number) String() string {
	s := strconv.FormatFloat(float64(n), 'f', -1, 64)
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 6 {
		s = strconv.FormatFloat(float64(n), 'f', 6, 64)
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

func (n number) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(n.String()), nil
}

// optionalNumber returns nil for sub-timings that did not apply.
func optionalNumber(v float64) *number {
	if v <= 0 {
		return nil
	}
	n := number(v)
	return &n
}

// report is the format-independent content of a report.
type report struct {
	version    string
	pageData   []pageDataEntry
	runs       []run
	statistics []statistic
}

type pageDataEntry struct {
	Key   string `xml:"key"`
	Value string `xml:"value"`
}

type run struct {
	Marks                []mark                `json:"marks"`
	Measurements         []measurement         `json:"measurements"`
	ResourceMeasurements []resourceMeasurement `json:"resourceMeasurements"`
}

type mark struct {
	Name      string `json:"name" xml:"name,attr"`
	StartTime number `json:"startTime" xml:"startTime,attr"`
}

type measurement struct {
	Name      string `json:"name" xml:"name,attr"`
	StartTime number `json:"startTime" xml:"startTime,attr"`
	Duration  number `json:"duration" xml:"duration,attr"`
}

type resourceMeasurement struct {
	Name                  string  `json:"name" xml:"name,attr"`
	StartTime             number  `json:"startTime" xml:"startTime,attr"`
	Duration              number  `json:"duration" xml:"duration,attr"`
	InitiatorType         string  `json:"initiatorType" xml:"initiatorType,attr"`
	RedirectStart         *number `json:"redirectStart,omitempty" xml:"redirectStart,attr,omitempty"`
	RedirectEnd           *number `json:"redirectEnd,omitempty" xml:"redirectEnd,attr,omitempty"`
	FetchStart            number  `json:"fetchStart" xml:"fetchStart,attr"`
	DomainLookupStart     *number `json:"domainLookupStart,omitempty" xml:"domainLookupStart,attr,omitempty"`
	DomainLookupEnd       *number `json:"domainLookupEnd,omitempty" xml:"domainLookupEnd,attr,omitempty"`
	ConnectStart          *number `json:"connectStart,omitempty" xml:"connectStart,attr,omitempty"`
	ConnectEnd            *number `json:"connectEnd,omitempty" xml:"connectEnd,attr,omitempty"`
	SecureConnectionStart *number `json:"secureConnectionStart,omitempty" xml:"secureConnectionStart,attr,omitempty"`
	RequestStart          *number `json:"requestStart,omitempty" xml:"requestStart,attr,omitempty"`
	ResponseStart         *number `json:"responseStart,omitempty" xml:"responseStart,attr,omitempty"`
	ResponseEnd           number  `json:"responseEnd" xml:"responseEnd,attr"`
}

type statistic struct {
	Name   string `json:"name" xml:"name"`
	Min    number `json:"min" xml:"min"`
	Avg    number `json:"avg" xml:"avg"`
	Median number `json:"median" xml:"median"`
	P60    number `json:"p60" xml:"p60"`
	P70    number `json:"p70" xml:"p70"`
	P80    number `json:"p80" xml:"p80"`
	P90    number `json:"p90" xml:"p90"`
	Max    number `json:"max" xml:"max"`
}

func newReport(session *timings.Session, opts Options) report {
	data := session.PageData()
	keys := lo.Keys(data)
	sort.Strings(keys)

	r := report{
		version: opts.Version,
		pageData: lo.Map(keys, func(k string, _ int) pageDataEntry {
			return pageDataEntry{Key: k, Value: data[k]}
		}),
		statistics: lo.Map(session.Statistics(), func(s stats.Statistic, _ int) statistic {
			return statistic{
				Name:   s.Name,
				Min:    number(s.Min),
				Avg:    number(s.Avg),
				Median: number(s.Median),
				P60:    number(s.P60),
				P70:    number(s.P70),
				P80:    number(s.P80),
				P90:    number(s.P90),
				Max:    number(s.Max),
			}
		}),
	}
	if opts.IncludeRuns {
		r.runs = lo.Map(session.Runs(), func(tr *timings.Run, _ int) run {
			return newRun(tr)
		})
	}
	return r
}

func newRun(tr *timings.Run) run {
	return run{
		Marks: lo.Map(tr.Marks(), func(m timings.Mark, _ int) mark {
			return mark{Name: m.Name, StartTime: number(m.StartTime)}
		}),
		Measurements: lo.Map(tr.Measurements(), func(m timings.Measurement, _ int) measurement {
			return measurement{Name: m.Name, StartTime: number(m.StartTime), Duration: number(m.Duration)}
		}),
		ResourceMeasurements: lo.Map(tr.ResourceMeasurements(), func(r timings.ResourceMeasurement, _ int) resourceMeasurement {
			return resourceMeasurement{
				Name:                  r.Name,
				StartTime:             number(r.StartTime),
				Duration:              number(r.Duration),
				InitiatorType:         r.InitiatorType,
				RedirectStart:         optionalNumber(r.RedirectStart),
				RedirectEnd:           optionalNumber(r.RedirectEnd),
				FetchStart:            number(r.FetchStart),
				DomainLookupStart:     optionalNumber(r.DomainLookupStart),
				DomainLookupEnd:       optionalNumber(r.DomainLookupEnd),
				ConnectStart:          optionalNumber(r.ConnectStart),
				ConnectEnd:            optionalNumber(r.ConnectEnd),
				SecureConnectionStart: optionalNumber(r.SecureConnectionStart),
				RequestStart:          optionalNumber(r.RequestStart),
				ResponseStart:         optionalNumber(r.ResponseStart),
				ResponseEnd:           number(r.ResponseEnd),
			}
		}),
	}
}
