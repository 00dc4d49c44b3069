package simulated

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"

	"golang.org/x/exp/rand"

	"github.com/kcz17/pagetime/stats"
)

// baseEpoch is the navigationStart of the first simulated page load, in
// epoch milliseconds. Every later load starts a minute after the previous.
const baseEpoch = 1700000000000

// page is the synthetic model of one loaded page.
type page struct {
	url string
	// timing holds the Navigation Timing attributes in epoch milliseconds.
	// Events that did not happen are zero.
	timing map[string]int64
	// chromeFirstPaint is in seconds, as reported by chrome.loadTimes().
	chromeFirstPaint float64
	msFirstPaint     int64
	paintEntries     []interface{}
	userMarks        []interface{}
	userMeasures     []interface{}
	resources        []interface{}
}

// phase is the distribution of the duration of one page load phase, in
// milliseconds.
type phase struct {
	lo, hi, mu, sigma float64
}

var (
	fetchPhase        = phase{lo: 0, hi: 10, mu: 2, sigma: 2}
	dnsPhase          = phase{lo: 0, hi: 500, mu: 25, sigma: 20}
	tcpPhase          = phase{lo: 1, hi: 500, mu: 20, sigma: 10}
	tlsPhase          = phase{lo: 1, hi: 500, mu: 30, sigma: 15}
	ttfbPhase         = phase{lo: 10, hi: 3000, mu: 150, sigma: 80}
	downloadPhase     = phase{lo: 1, hi: 2000, mu: 40, sigma: 30}
	parsePhase        = phase{lo: 5, hi: 3000, mu: 180, sigma: 90}
	dclHandlerPhase   = phase{lo: 0, hi: 200, mu: 8, sigma: 6}
	subresourcePhase  = phase{lo: 10, hi: 10000, mu: 400, sigma: 200}
	loadHandlerPhase  = phase{lo: 0, hi: 200, mu: 4, sigma: 3}
	firstPaintPhase   = phase{lo: 1, hi: 2000, mu: 60, sigma: 40}
	contentPaintPhase = phase{lo: 0, hi: 1000, mu: 30, sigma: 25}
	resourcePhase     = phase{lo: 1, hi: 3000, mu: 90, sigma: 60}
)

type generator struct {
	src rand.Source
	rnd *rand.Rand
}

func newGenerator(seed uint64) *generator {
	src := rand.NewSource(seed)
	return &generator{src: src, rnd: rand.New(src)}
}

func (g *generator) sample(p phase) float64 {
	return stats.TruncatedNormal{Lo: p.lo, Hi: p.hi, Mu: p.mu, Sigma: p.sigma, Src: g.src}.Rand()
}

func (g *generator) ms(p phase) int64 {
	return int64(math.Round(g.sample(p)))
}

// generatePage builds the model of the n-th page load of rawURL.
func generatePage(g *generator, rawURL string, n int, opts Options) (*page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("generatePage() parsing %s: %w", rawURL, err)
	}
	secure := u.Scheme == "https"

	p := &page{url: rawURL, timing: map[string]int64{}}
	t := p.timing

	t["navigationStart"] = baseEpoch + int64(n)*60000
	t["fetchStart"] = t["navigationStart"] + g.ms(fetchPhase)
	t["domainLookupStart"] = t["fetchStart"]
	t["domainLookupEnd"] = t["domainLookupStart"] + g.ms(dnsPhase)
	t["connectStart"] = t["domainLookupEnd"]
	t["connectEnd"] = t["connectStart"] + g.ms(tcpPhase)
	if secure {
		t["secureConnectionStart"] = t["connectEnd"]
		t["connectEnd"] += g.ms(tlsPhase)
	}
	t["requestStart"] = t["connectEnd"]
	t["responseStart"] = t["requestStart"] + g.ms(ttfbPhase)
	t["responseEnd"] = t["responseStart"] + g.ms(downloadPhase)
	t["domLoading"] = t["responseStart"]
	t["domInteractive"] = t["responseEnd"] + g.ms(parsePhase)
	t["domContentLoadedEventStart"] = t["domInteractive"]
	t["domContentLoadedEventEnd"] = t["domContentLoadedEventStart"] + g.ms(dclHandlerPhase)
	t["domComplete"] = t["domContentLoadedEventEnd"] + g.ms(subresourcePhase)
	t["loadEventStart"] = t["domComplete"]
	t["loadEventEnd"] = t["loadEventStart"] + g.ms(loadHandlerPhase)
	// A fresh tab has no previous document to unload and the load is not
	// redirected, so unloadEvent* and redirect* stay zero.

	firstPaint := float64(t["responseEnd"]) + g.sample(firstPaintPhase)
	switch opts.Vendor {
	case Chrome:
		p.chromeFirstPaint = firstPaint / 1000
	case IE:
		p.msFirstPaint = int64(math.Round(firstPaint))
	}
	if opts.Vendor != IE {
		relative := firstPaint - float64(t["navigationStart"])
		p.paintEntries = []interface{}{
			map[string]interface{}{"name": "first-paint", "startTime": relative, "duration": 0.0},
			map[string]interface{}{"name": "first-contentful-paint", "startTime": relative + g.sample(contentPaintPhase), "duration": 0.0},
		}
	}

	p.userMarks, p.userMeasures = g.userTimings(opts.UserMarks, t)
	p.resources = g.resources(u, opts.Resources, t, secure)
	return p, nil
}

// userTimings places the user marks in order between responseEnd and
// loadEventStart, and measures the time between consecutive marks.
func (g *generator) userTimings(names []string, t map[string]int64) (marks, measures []interface{}) {
	from := float64(t["responseEnd"] - t["navigationStart"])
	to := float64(t["loadEventStart"] - t["navigationStart"])
	step := (to - from) / float64(len(names)+1)

	var previous map[string]interface{}
	for i, name := range names {
		startTime := from + step*float64(i) + g.rnd.Float64()*step
		mark := map[string]interface{}{"name": name, "startTime": startTime, "duration": 0.0}
		marks = append(marks, mark)
		if previous != nil {
			previousStart := previous["startTime"].(float64)
			measures = append(measures, map[string]interface{}{
				"name":      previous["name"].(string) + "-" + name,
				"startTime": previousStart,
				"duration":  startTime - previousStart,
			})
		}
		previous = mark
	}
	return marks, measures
}

var resourceKinds = []struct {
	initiatorType string
	extension     string
}{
	{initiatorType: "link", extension: "css"},
	{initiatorType: "script", extension: "js"},
	{initiatorType: "img", extension: "png"},
}

// resources generates n resource entries. Every third resource is
// cross-origin without Timing-Allow-Origin, so only its start, fetchStart,
// responseEnd and duration are exposed.
func (g *generator) resources(u *url.URL, n int, t map[string]int64, secure bool) []interface{} {
	entries := make([]interface{}, 0, n)
	start := float64(t["responseEnd"] - t["navigationStart"])
	for i := 0; i < n; i++ {
		kind := resourceKinds[i%len(resourceKinds)]
		crossOrigin := i%3 == 2

		host := u.Host
		if crossOrigin {
			host = "cdn." + strings.TrimPrefix(u.Host, "www.")
		}
		name := (&url.URL{
			Scheme: u.Scheme,
			Host:   host,
			Path:   path.Join("/static", fmt.Sprintf("resource-%d.%s", i, kind.extension)),
		}).String()

		startTime := start + g.rnd.Float64()*50
		duration := g.sample(resourcePhase)
		entry := map[string]interface{}{
			"name":                  name,
			"initiatorType":         kind.initiatorType,
			"startTime":             startTime,
			"duration":              duration,
			"fetchStart":            startTime,
			"responseEnd":           startTime + duration,
			"redirectStart":         0.0,
			"redirectEnd":           0.0,
			"domainLookupStart":     0.0,
			"domainLookupEnd":       0.0,
			"connectStart":          0.0,
			"connectEnd":            0.0,
			"secureConnectionStart": 0.0,
			"requestStart":          0.0,
			"responseStart":         0.0,
		}
		if !crossOrigin {
			// The connection to the page origin is reused.
			requestStart := startTime + duration*0.1
			responseStart := startTime + duration*0.7
			entry["domainLookupStart"] = startTime
			entry["domainLookupEnd"] = startTime
			entry["connectStart"] = startTime
			entry["connectEnd"] = startTime
			if secure {
				entry["secureConnectionStart"] = startTime
			}
			entry["requestStart"] = requestStart
			entry["responseStart"] = responseStart
		}
		entries = append(entries, entry)
	}
	return entries
}
