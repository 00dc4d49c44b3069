package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kcz17/pagetime/collector"
	"github.com/kcz17/pagetime/config"
	"github.com/kcz17/pagetime/report"
	"github.com/kcz17/pagetime/runner"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// flagKeys maps command line flags to their configuration keys.
var flagKeys = map[string]string{
	"config":             "config",
	"times":              "test.iterations",
	"timeout":            "test.timeout",
	"measure-user-marks": "test.measureUserMarks",
	"browser":            "browser.name",
	"driver":             "browser.driver",
	"devtools-url":       "browser.devtoolsURL",
	"user-agent":         "browser.userAgent",
	"window-size":        "browser.windowSize",
	"format":             "output.format",
	"raw":                "output.raw",
	"output":             "output.file",
	"plot":               "output.plot",
	"log-driver":         "logging.driver",
	"verbose":            "logging.verbose",
	"baseline":           "baseline.file",
	"addr":               "serving.addr",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pagetime [flags] URL",
		Short:   "pagetime measures how long a web page takes to load in a real browser",
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if compact, _ := cmd.Flags().GetBool("compact"); compact {
				pretty := false
				c.Output.Pretty = &pretty
			}
			if *c.Output.Plot != "" {
				if _, err := report.PlotFormatFromPath(*c.Output.Plot); err != nil {
					return err
				}
			}

			// Past this point errors are not usage errors.
			cmd.SilenceUsage = true
			return runTest(cmd.Context(), c, args[0], stdout)
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.String("config", "", "config file (default is ./pagetime.yaml or /etc/pagetime/pagetime.yaml)")
	persistent.IntP("times", "n", 3, "number of times to load the page")
	persistent.IntP("timeout", "t", 60, "seconds to wait for each page load")
	persistent.Bool("measure-user-marks", false, "add a measurement from navigation start to each user mark")
	persistent.StringP("browser", "b", collector.Chrome, "browser whose timing features are collected {chrome|firefox|ie}")
	persistent.String("driver", "cdp", "browser driver {cdp|simulated}")
	persistent.String("devtools-url", "http://localhost:9222", "DevTools endpoint of a running browser")
	persistent.String("user-agent", "", "user agent override")
	persistent.StringP("window-size", "w", "", "window size as <width>x<height>")
	persistent.StringP("format", "f", string(report.XML), "report format {xml|json}")
	persistent.String("log-driver", "stdout", "logging driver {noop|stdout|influxdb}")
	persistent.Bool("verbose", false, "log the progress and timings of every run")

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "report file (default is stdout)")
	flags.Bool("compact", false, "do not indent the report")
	flags.Bool("raw", false, "include every run in the report")
	flags.String("baseline", "", "JSON report, written with --raw, to compare the timings against")
	flags.String("plot", "", "write a box plot of the timings to a .png or .svg file")

	cmd.AddCommand(newServeCmd())
	return cmd
}

// loadConfig reads the configuration with flags bound over every other
// source.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	v := viper.New()
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("loadConfig() binding flag %s: %w", name, err)
		}
	}
	return config.Load(v)
}

func runTest(ctx context.Context, c *config.Config, url string, stdout io.Writer) error {
	format, err := report.ParseFormat(*c.Output.Format)
	if err != nil {
		return err
	}
	sessions, err := newSessionFactory(c)
	if err != nil {
		return err
	}
	collectors, err := collector.ForBrowser(*c.Browser.Name, collector.Options{MeasureUserMarks: *c.Test.MeasureUserMarks})
	if err != nil {
		return err
	}
	logger := newLogger(c, url)
	defer logger.Close()

	r, err := runner.NewRunner(runner.Options{
		URL:        url,
		Iterations: *c.Test.Iterations,
		Timeout:    c.Test.TimeoutDuration(),
		Sessions:   sessions,
		Collectors: collectors,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	session, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if *c.Baseline.File != "" {
		if err := compareBaseline(session, *c.Baseline.File, *c.Baseline.Confidence, logger); err != nil {
			return err
		}
	}

	// The report is serialized before any file is created so that a failed
	// test never leaves a partial report behind.
	body, err := report.Serialize(session, report.Options{
		Format:      format,
		PrettyPrint: *c.Output.Pretty,
		IncludeRuns: *c.Output.Raw,
		Version:     version,
	})
	if err != nil {
		return err
	}

	if *c.Output.Plot != "" {
		plotFormat, err := report.PlotFormatFromPath(*c.Output.Plot)
		if err != nil {
			return err
		}
		var plot bytes.Buffer
		if err := report.WritePlot(&plot, session, plotFormat); err != nil {
			return err
		}
		if err := os.WriteFile(*c.Output.Plot, plot.Bytes(), 0o644); err != nil {
			return fmt.Errorf("could not write plot: %w", err)
		}
	}

	if *c.Output.File == "" {
		if _, err := stdout.Write(body); err != nil {
			return fmt.Errorf("could not write report: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(*c.Output.File, body, 0o644); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}
