package collector

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/timings"
)

const firstContentfulPaint = "first-contentful-paint"

// PaintTiming reads the first contentful paint of the Paint Timing API.
type PaintTiming struct {
	noPageData
}

func (PaintTiming) CollectTimingData(ctx context.Context, s browser.Session, observed timings.Marks) (*timings.Collected, error) {
	collected := timings.NewCollected(observed)

	r := NewAttributeReader(s)
	supported, err := r.Bool(ctx, EntriesSupportedScript)
	if err != nil {
		return nil, fmt.Errorf("PaintTiming.CollectTimingData() checking support: %w", err)
	}
	if !supported {
		return collected, nil
	}

	entries, err := r.Records(ctx, PaintEntriesScript)
	if err != nil {
		return nil, fmt.Errorf("PaintTiming.CollectTimingData() reading entries: %w", err)
	}
	entry, found := lo.Find(entries, func(e Record) bool {
		name, _ := e.String("name")
		return name == firstContentfulPaint
	})
	if !found {
		return collected, nil
	}
	if startTime, ok := entry.Float("startTime"); ok && startTime > 0 {
		collected.AddMeasurement(timings.Measurement{
			Mark:     timings.Mark{Name: "firstContentfulPaintTime"},
			Duration: startTime,
		})
	}
	return collected, nil
}
