package serving

import (
	"context"
	"fmt"
	"time"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/collector"
	"github.com/kcz17/pagetime/logging"
	"github.com/kcz17/pagetime/report"
	"github.com/kcz17/pagetime/runner"
)

type Executor interface {
	// Execute runs job and returns its serialized report.
	Execute(ctx context.Context, job Job) (body []byte, contentType string, err error)
}

// TestExecutor runs jobs with the browser and collectors the service was
// started with.
type TestExecutor struct {
	Sessions   browser.Factory
	Collectors []collector.Collector
	Timeout    time.Duration
	Logger     logging.Logger
	Version    string
}

func (e *TestExecutor) Execute(ctx context.Context, job Job) ([]byte, string, error) {
	format, err := report.ParseFormat(job.Format)
	if err != nil {
		return nil, "", err
	}
	r, err := runner.NewRunner(runner.Options{
		URL:        job.URL,
		Iterations: job.Iterations,
		Timeout:    e.Timeout,
		Sessions:   e.Sessions,
		Collectors: e.Collectors,
		Logger:     e.Logger,
	})
	if err != nil {
		return nil, "", err
	}
	session, err := r.Run(ctx)
	if err != nil {
		return nil, "", err
	}
	body, err := report.Serialize(session, report.Options{
		Format:      format,
		PrettyPrint: true,
		IncludeRuns: job.IncludeRuns,
		Version:     e.Version,
	})
	if err != nil {
		return nil, "", fmt.Errorf("TestExecutor.Execute() serializing report: %w", err)
	}
	return body, format.ContentType(), nil
}
