package collector

import (
	"context"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/timings"
)

// DefaultIntervals are the metrics derived from the Navigation Timing marks.
var DefaultIntervals = []timings.Interval{
	{Name: "domainLookupTime", StartMark: "domainLookupStart", EndMark: "domainLookupEnd"},
	{Name: "redirectionTime", StartMark: "navigationStart", EndMark: "fetchStart"},
	{Name: "serverConnectionTime", StartMark: "connectStart", EndMark: "connectEnd"},
	{Name: "serverResponseTime", StartMark: "requestStart", EndMark: "responseStart"},
	{Name: "pageDownloadTime", StartMark: "responseStart", EndMark: "responseEnd"},
	{Name: "domInteractiveTime", StartMark: "navigationStart", EndMark: "domInteractive"},
	{Name: "domContentLoadedTime", StartMark: "navigationStart", EndMark: "domContentLoadedEventStart"},
	{Name: "pageLoadTime", StartMark: "navigationStart", EndMark: "loadEventStart"},
	{Name: "frontEndTime", StartMark: "responseEnd", EndMark: "loadEventStart"},
	{Name: "backEndTime", StartMark: "navigationStart", EndMark: "responseStart"},
}

// Intervals derives measurements from the marks of earlier collectors. It
// runs no scripts.
type Intervals struct {
	noPageData
	Table []timings.Interval
}

func (i Intervals) CollectTimingData(_ context.Context, _ browser.Session, observed timings.Marks) (*timings.Collected, error) {
	collected := timings.NewCollected(observed)
	for _, m := range timings.DeriveIntervals(collected, i.Table...) {
		collected.AddMeasurement(m)
	}
	return collected, nil
}
