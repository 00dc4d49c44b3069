package collector

import (
	"context"
	"fmt"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/timings"
)

// UserTiming reads the marks and measures the page defined through the User
// Timing API.
type UserTiming struct {
	noPageData
	MeasureMarks bool
}

func (u UserTiming) CollectTimingData(ctx context.Context, s browser.Session, observed timings.Marks) (*timings.Collected, error) {
	collected := timings.NewCollected(observed)

	r := NewAttributeReader(s)
	supported, err := r.Bool(ctx, EntriesSupportedScript)
	if err != nil {
		return nil, fmt.Errorf("UserTiming.CollectTimingData() checking support: %w", err)
	}
	if !supported {
		return collected, nil
	}

	marks, err := r.Records(ctx, UserMarksScript)
	if err != nil {
		return nil, fmt.Errorf("UserTiming.CollectTimingData() reading marks: %w", err)
	}
	for _, m := range marks {
		name, ok := m.String("name")
		if !ok || name == "" {
			continue
		}
		startTime, ok := m.Float("startTime")
		if !ok {
			continue
		}
		collected.AddMark(timings.Mark{Name: name, StartTime: startTime})
		if u.MeasureMarks {
			collected.AddMeasurement(timings.Measurement{
				Mark:     timings.Mark{Name: name},
				Duration: startTime,
			})
		}
	}

	measures, err := r.Records(ctx, UserMeasuresScript)
	if err != nil {
		return nil, fmt.Errorf("UserTiming.CollectTimingData() reading measures: %w", err)
	}
	for _, m := range measures {
		name, ok := m.String("name")
		if !ok || name == "" {
			continue
		}
		startTime, ok := m.Float("startTime")
		if !ok {
			continue
		}
		duration, ok := m.Float("duration")
		if !ok {
			continue
		}
		collected.AddMeasurement(timings.Measurement{
			Mark:     timings.Mark{Name: name, StartTime: startTime},
			Duration: duration,
		})
	}
	return collected, nil
}
