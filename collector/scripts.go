package collector

import "strings"

const (
	NavigationSupportedScript      = "return !!(window.performance && window.performance.navigation);"
	RedirectCountScript            = "return window.performance.navigation.redirectCount;"
	TimingSupportedScript          = "return !!(window.performance && window.performance.timing);"
	EntriesSupportedScript         = "return !!(window.performance && window.performance.getEntriesByType);"
	ChromeLoadTimesSupportedScript = "return !!(window.chrome && window.chrome.loadTimes);"
	WasFetchedViaSpdyScript        = "return window.chrome.loadTimes().wasFetchedViaSpdy;"
	ChromeFirstPaintScript         = "return window.chrome.loadTimes().firstPaintTime;"
	MSFirstPaintScript             = "return window.performance.timing.msFirstPaint;"
	LocationScript                 = "return window.location.href;"
	UserAgentScript                = "return window.navigator.userAgent;"
	WindowSizeScript               = "var w=window,d=document,e=d.documentElement,g=d.getElementsByTagName('body')[0]," +
		"x=w.innerWidth||e.clientWidth||g.clientWidth,y=w.innerHeight||e.clientHeight||g.clientHeight;" +
		"return [x,y];"
)

// NavigationTimingAttributes are the window.performance.timing attributes
// read as marks.
var NavigationTimingAttributes = []string{
	"navigationStart",
	"unloadEventStart",
	"unloadEventEnd",
	"redirectStart",
	"redirectEnd",
	"fetchStart",
	"domainLookupStart",
	"domainLookupEnd",
	"connectStart",
	"connectEnd",
	"secureConnectionStart",
	"requestStart",
	"responseStart",
	"responseEnd",
	"domLoading",
	"domInteractive",
	"domContentLoadedEventStart",
	"domContentLoadedEventEnd",
	"domComplete",
	"loadEventStart",
	"loadEventEnd",
}

func NavigationTimingAttributeScript(attribute string) string {
	return "return window.performance.timing." + attribute + ";"
}

var (
	userTimingAttributes     = []string{"name", "startTime", "duration"}
	resourceTimingAttributes = []string{
		"name",
		"startTime",
		"duration",
		"initiatorType",
		"redirectStart",
		"redirectEnd",
		"fetchStart",
		"domainLookupStart",
		"domainLookupEnd",
		"connectStart",
		"connectEnd",
		"secureConnectionStart",
		"requestStart",
		"responseStart",
		"responseEnd",
	}

	UserMarksScript       = EntriesScript("mark", userTimingAttributes...)
	UserMeasuresScript    = EntriesScript("measure", userTimingAttributes...)
	ResourceEntriesScript = EntriesScript("resource", resourceTimingAttributes...)
	PaintEntriesScript    = EntriesScript("paint", userTimingAttributes...)
)

// EntriesScript lists the performance entries of entryType, copying only the
// given attributes so that browser-specific properties never leak through.
func EntriesScript(entryType string, attributes ...string) string {
	var b strings.Builder
	b.WriteString("var entries = window.performance.getEntriesByType('" + entryType + "');\n")
	b.WriteString("var result = [];\n")
	b.WriteString("for (var i = 0; i < entries.length; i++) {\n")
	b.WriteString("var r = {};\n")
	for _, a := range attributes {
		b.WriteString("r." + a + " = entries[i]." + a + ";\n")
	}
	b.WriteString("result.push(r);\n")
	b.WriteString("}\n")
	b.WriteString("return result;")
	return b.String()
}
