// Package collector extracts page metadata and timing data from a loaded page
// by running scripts in a browser session.
package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/timings"
)

// Collector gathers one kind of data from a loaded page. Either method may
// return an empty result when the page does not support what it reads.
type Collector interface {
	CollectPageData(ctx context.Context, s browser.Session) (map[string]string, error)
	// CollectTimingData may look up marks added by earlier collectors of the
	// same page load through observed.
	CollectTimingData(ctx context.Context, s browser.Session, observed timings.Marks) (*timings.Collected, error)
}

const (
	Chrome  = "chrome"
	Firefox = "firefox"
	IE      = "ie"
)

type Options struct {
	// MeasureUserMarks adds a measurement from 0 to each user mark.
	MeasureUserMarks bool
}

// Browsers lists the browser names ForBrowser accepts.
func Browsers() []string {
	return []string{Chrome, Firefox, IE}
}

// ForBrowser returns the collectors for the named browser in the order they
// must run.
func ForBrowser(name string, opts Options) ([]Collector, error) {
	if !lo.Contains(Browsers(), name) {
		return nil, fmt.Errorf("unsupported browser %q; expected one of {%s}", name, strings.Join(Browsers(), "|"))
	}

	collectors := []Collector{NavigationTiming{}}
	switch name {
	case Chrome:
		collectors = append(collectors, ChromeFirstPaint{}, PaintTiming{})
	case Firefox:
		collectors = append(collectors, PaintTiming{})
	case IE:
		collectors = append(collectors, MSFirstPaint{})
	}
	return append(collectors,
		UserTiming{MeasureMarks: opts.MeasureUserMarks},
		ResourceTiming{},
		PageInfo{},
		Intervals{Table: DefaultIntervals},
	), nil
}

// noPageData is embedded by collectors that only gather timing data.
type noPageData struct{}

func (noPageData) CollectPageData(context.Context, browser.Session) (map[string]string, error) {
	return nil, nil
}

// noTimingData is embedded by collectors that only gather page data.
type noTimingData struct{}

func (noTimingData) CollectTimingData(_ context.Context, _ browser.Session, observed timings.Marks) (*timings.Collected, error) {
	return timings.NewCollected(observed), nil
}
