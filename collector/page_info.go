package collector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kcz17/pagetime/browser"
)

// PageInfo reads the loaded URL, the browser and the window size.
type PageInfo struct {
	noTimingData
}

func (PageInfo) CollectPageData(ctx context.Context, s browser.Session) (map[string]string, error) {
	r := NewAttributeReader(s)
	caps := s.Capabilities()
	data := map[string]string{
		"browserName":    caps.BrowserName,
		"browserVersion": caps.BrowserVersion,
		"platform":       caps.Platform,
	}

	actualURL, err := r.String(ctx, LocationScript)
	if err != nil {
		return nil, fmt.Errorf("PageInfo.CollectPageData() reading location: %w", err)
	}
	data["actualUrl"] = actualURL

	userAgent, err := r.String(ctx, UserAgentScript)
	if err != nil {
		return nil, fmt.Errorf("PageInfo.CollectPageData() reading user agent: %w", err)
	}
	data["userAgent"] = userAgent

	size, err := r.List(ctx, WindowSizeScript)
	if err != nil {
		return nil, fmt.Errorf("PageInfo.CollectPageData() reading window size: %w", err)
	}
	if len(size) == 2 {
		width, widthOK := toFloat(size[0])
		height, heightOK := toFloat(size[1])
		if widthOK && heightOK {
			data["windowSize"] = formatDimension(width) + "x" + formatDimension(height)
		}
	}
	return data, nil
}

func formatDimension(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
