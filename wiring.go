package main

import (
	"fmt"
	"os"

	"github.com/samber/lo"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/browser/simulated"
	"github.com/kcz17/pagetime/config"
	"github.com/kcz17/pagetime/logging"
	"github.com/kcz17/pagetime/report"
	"github.com/kcz17/pagetime/stats"
	"github.com/kcz17/pagetime/timings"
)

func newSessionFactory(c *config.Config) (browser.Factory, error) {
	var width, height int
	if *c.Browser.WindowSize != "" {
		var err error
		if width, height, err = config.ParseWindowSize(*c.Browser.WindowSize); err != nil {
			return nil, err
		}
	}

	switch *c.Browser.Driver {
	case "simulated":
		return simulated.NewFactory(simulated.Options{
			Vendor:       *c.Browser.Name,
			Seed:         *c.Browser.Simulation.Seed,
			UserAgent:    *c.Browser.UserAgent,
			WindowWidth:  width,
			WindowHeight: height,
			UserMarks:    c.Browser.Simulation.UserMarks,
			Resources:    *c.Browser.Simulation.Resources,
		})
	case "cdp":
		return browser.NewCDPFactory(browser.CDPOptions{
			DevToolsURL:  *c.Browser.DevToolsURL,
			UserAgent:    *c.Browser.UserAgent,
			WindowWidth:  width,
			WindowHeight: height,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported browser driver %q", *c.Browser.Driver)
	}
}

// newLogger tags InfluxDB points with the tested url, if any, and the
// version.
func newLogger(c *config.Config, url string) logging.Logger {
	switch *c.Logging.Driver {
	case "noop":
		return logging.NewNoopLogger()
	case "influxdb":
		tags := map[string]string{"version": version}
		if url != "" {
			tags["url"] = url
		}
		influx := c.Logging.InfluxDB
		return logging.NewInfluxDBLogger(*influx.Host, *influx.Token, *influx.Org, *influx.Bucket, tags)
	default:
		return logging.NewStdoutLogger(*c.Logging.Verbose)
	}
}

// compareBaseline logs a comparison for every metric found in both the
// baseline report and session.
func compareBaseline(session *timings.Session, path string, confidence float64, logger logging.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open baseline: %w", err)
	}
	defer f.Close()

	baseline, err := report.ReadBaseline(f)
	if err != nil {
		return fmt.Errorf("could not read baseline %s: %w", path, err)
	}
	level, err := stats.ConfidenceLevelFromPercent(confidence)
	if err != nil {
		return err
	}

	shared := lo.Filter(session.MetricNames(), func(name string, _ int) bool {
		_, ok := baseline[name]
		return ok
	})
	for _, name := range shared {
		comparison, err := stats.Compare(name, baseline[name], session.Durations(name), level)
		if err != nil {
			return err
		}
		logger.LogComparison(comparison)
	}
	return nil
}
