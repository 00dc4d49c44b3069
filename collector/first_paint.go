package collector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/timings"
)

// ChromeFirstPaint reads the first paint time of chrome.loadTimes().
type ChromeFirstPaint struct{}

func (ChromeFirstPaint) CollectPageData(ctx context.Context, s browser.Session) (map[string]string, error) {
	r := NewAttributeReader(s)
	supported, err := r.Bool(ctx, ChromeLoadTimesSupportedScript)
	if err != nil {
		return nil, fmt.Errorf("ChromeFirstPaint.CollectPageData() checking support: %w", err)
	}
	if !supported {
		return nil, nil
	}

	spdy, err := r.Bool(ctx, WasFetchedViaSpdyScript)
	if err != nil {
		return nil, fmt.Errorf("ChromeFirstPaint.CollectPageData() reading wasFetchedViaSpdy: %w", err)
	}
	return map[string]string{"wasFetchedViaSpdy": strconv.FormatBool(spdy)}, nil
}

func (ChromeFirstPaint) CollectTimingData(ctx context.Context, s browser.Session, observed timings.Marks) (*timings.Collected, error) {
	collected := timings.NewCollected(observed)

	r := NewAttributeReader(s)
	supported, err := r.Bool(ctx, ChromeLoadTimesSupportedScript)
	if err != nil {
		return nil, fmt.Errorf("ChromeFirstPaint.CollectTimingData() checking support: %w", err)
	}
	if !supported {
		return collected, nil
	}

	// chrome.loadTimes() reports seconds.
	seconds, ok, err := r.OptionalFloat(ctx, ChromeFirstPaintScript)
	if err != nil {
		return nil, fmt.Errorf("ChromeFirstPaint.CollectTimingData() reading firstPaintTime: %w", err)
	}
	if !ok || seconds <= 0 {
		return collected, nil
	}
	collected.AddMark(timings.Mark{Name: "firstPaint", StartTime: seconds * 1000})

	interval := timings.Interval{Name: "firstPaintTime", StartMark: "navigationStart", EndMark: "firstPaint"}
	if m, ok := interval.Measure(collected); ok {
		collected.AddMeasurement(m)
	}
	return collected, nil
}

// MSFirstPaint reads the msFirstPaint attribute of Internet Explorer.
type MSFirstPaint struct {
	noPageData
}

func (MSFirstPaint) CollectTimingData(ctx context.Context, s browser.Session, observed timings.Marks) (*timings.Collected, error) {
	collected := timings.NewCollected(observed)

	r := NewAttributeReader(s)
	supported, err := r.Bool(ctx, TimingSupportedScript)
	if err != nil {
		return nil, fmt.Errorf("MSFirstPaint.CollectTimingData() checking support: %w", err)
	}
	if !supported {
		return collected, nil
	}

	v, ok, err := r.OptionalFloat(ctx, MSFirstPaintScript)
	if err != nil {
		return nil, fmt.Errorf("MSFirstPaint.CollectTimingData() reading msFirstPaint: %w", err)
	}
	if !ok || v <= 0 {
		return collected, nil
	}
	collected.AddMark(timings.Mark{Name: "msFirstPaint", StartTime: v})

	interval := timings.Interval{Name: "firstPaintTime", StartMark: "navigationStart", EndMark: "msFirstPaint"}
	if m, ok := interval.Measure(collected); ok {
		collected.AddMeasurement(m)
	}
	return collected, nil
}
