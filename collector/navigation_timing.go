package collector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/timings"
)

// NavigationTiming reads the Navigation Timing attributes as marks.
type NavigationTiming struct{}

func (NavigationTiming) CollectPageData(ctx context.Context, s browser.Session) (map[string]string, error) {
	r := NewAttributeReader(s)
	supported, err := r.Bool(ctx, NavigationSupportedScript)
	if err != nil {
		return nil, fmt.Errorf("NavigationTiming.CollectPageData() checking support: %w", err)
	}
	if !supported {
		return nil, nil
	}

	redirectCount, err := r.Float(ctx, RedirectCountScript)
	if err != nil {
		return nil, fmt.Errorf("NavigationTiming.CollectPageData() reading redirect count: %w", err)
	}
	return map[string]string{
		"redirectCount": strconv.FormatInt(int64(redirectCount), 10),
	}, nil
}

func (NavigationTiming) CollectTimingData(ctx context.Context, s browser.Session, observed timings.Marks) (*timings.Collected, error) {
	collected := timings.NewCollected(observed)

	r := NewAttributeReader(s)
	supported, err := r.Bool(ctx, TimingSupportedScript)
	if err != nil {
		return nil, fmt.Errorf("NavigationTiming.CollectTimingData() checking support: %w", err)
	}
	if !supported {
		return collected, nil
	}

	for _, attribute := range NavigationTimingAttributes {
		v, ok, err := r.OptionalFloat(ctx, NavigationTimingAttributeScript(attribute))
		if err != nil {
			return nil, fmt.Errorf("NavigationTiming.CollectTimingData() reading %s: %w", attribute, err)
		}
		// Zero means the event did not happen.
		if ok && v > 0 {
			collected.AddMark(timings.Mark{Name: attribute, StartTime: v})
		}
	}
	return collected, nil
}
