package collector

import (
	"context"
	"fmt"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/timings"
)

// ResourceTiming reads one ResourceMeasurement per Resource Timing entry.
type ResourceTiming struct {
	noPageData
}

func (ResourceTiming) CollectTimingData(ctx context.Context, s browser.Session, observed timings.Marks) (*timings.Collected, error) {
	collected := timings.NewCollected(observed)

	r := NewAttributeReader(s)
	supported, err := r.Bool(ctx, EntriesSupportedScript)
	if err != nil {
		return nil, fmt.Errorf("ResourceTiming.CollectTimingData() checking support: %w", err)
	}
	if !supported {
		return collected, nil
	}

	entries, err := r.Records(ctx, ResourceEntriesScript)
	if err != nil {
		return nil, fmt.Errorf("ResourceTiming.CollectTimingData() reading entries: %w", err)
	}
	for _, e := range entries {
		name, ok := e.String("name")
		if !ok || name == "" {
			continue
		}
		// Missing attributes read as zero, meaning "not applicable".
		number := func(key string) float64 {
			v, _ := e.Float(key)
			return v
		}
		initiatorType, _ := e.String("initiatorType")

		collected.AddResourceMeasurement(timings.ResourceMeasurement{
			Measurement: timings.Measurement{
				Mark:     timings.Mark{Name: name, StartTime: number("startTime")},
				Duration: number("duration"),
			},
			InitiatorType:         initiatorType,
			RedirectStart:         number("redirectStart"),
			RedirectEnd:           number("redirectEnd"),
			FetchStart:            number("fetchStart"),
			DomainLookupStart:     number("domainLookupStart"),
			DomainLookupEnd:       number("domainLookupEnd"),
			ConnectStart:          number("connectStart"),
			ConnectEnd:            number("connectEnd"),
			SecureConnectionStart: number("secureConnectionStart"),
			RequestStart:          number("requestStart"),
			ResponseStart:         number("responseStart"),
			ResponseEnd:           number("responseEnd"),
		})
	}
	return collected, nil
}
