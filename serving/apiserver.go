package serving

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackwhelpton/fasthttp-routing/v2"
	"github.com/valyala/fasthttp"

	"github.com/kcz17/pagetime/report"
)

type APIServer struct {
	Queue             JobQueue
	Store             ResultStore
	// DefaultIterations is used by requests which leave iterations unset.
	DefaultIterations int
	// MaxIterations bounds the iterations of a single test.
	MaxIterations     int
	DefaultFormat     report.Format
}

type testRequest struct {
	URL         string `json:"url"`
	Iterations  *int   `json:"iterations"`
	Format      string `json:"format"`
	IncludeRuns bool   `json:"includeRuns"`
}

type statusResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (a *APIServer) Router() *routing.Router {
	router := routing.New()

	router.Get("/health", a.healthHandler())
	router.Post("/tests", a.submitTestHandler())
	router.Get("/tests/<id>", a.testResultHandler())

	return router
}

// NewServer returns a server for the API which the caller can Shutdown.
func (a *APIServer) NewServer() *fasthttp.Server {
	return &fasthttp.Server{
		Handler: a.Router().HandleRequest,
		Name:    "pagetime",
	}
}

func (a *APIServer) ListenAndServe(addr string) error {
	return a.NewServer().ListenAndServe(addr)
}

func (a *APIServer) healthHandler() routing.Handler {
	return func(c *routing.Context) error {
		return c.Write("ok\n")
	}
}

func (a *APIServer) submitTestHandler() routing.Handler {
	return func(c *routing.Context) error {
		var req testRequest
		if err := json.Unmarshal(c.PostBody(), &req); err != nil {
			return routing.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("could not parse request: %v", err))
		}
		job, err := a.newJob(req)
		if err != nil {
			return routing.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		if err := a.Store.Put(Result{ID: job.ID, Status: StatusQueued}); err != nil {
			return fmt.Errorf("could not store job: %w", err)
		}
		if err := a.Queue.Publish(job); err != nil {
			// The job never reached the queue.
			if putErr := a.Store.Put(Result{ID: job.ID, Status: StatusFailed, Error: "could not queue job"}); putErr != nil {
				return fmt.Errorf("could not queue job: %w; could not mark it failed: %v", err, putErr)
			}
			return fmt.Errorf("could not queue job: %w", err)
		}

		c.SetStatusCode(http.StatusAccepted)
		return writeJSON(c, statusResponse{ID: job.ID, Status: StatusQueued})
	}
}

func (a *APIServer) newJob(req testRequest) (Job, error) {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Job{}, fmt.Errorf("expected an absolute http or https url; got %q", req.URL)
	}

	iterations := a.DefaultIterations
	if req.Iterations != nil {
		iterations = *req.Iterations
	}
	if iterations < 1 {
		return Job{}, fmt.Errorf("expected at least one iteration; got %d", iterations)
	}
	if a.MaxIterations > 0 && iterations > a.MaxIterations {
		return Job{}, fmt.Errorf("expected at most %d iterations; got %d", a.MaxIterations, iterations)
	}

	format := a.DefaultFormat
	if req.Format != "" {
		if format, err = report.ParseFormat(req.Format); err != nil {
			return Job{}, err
		}
	}

	return Job{
		ID:          uuid.New().String(),
		URL:         req.URL,
		Iterations:  iterations,
		Format:      string(format),
		IncludeRuns: req.IncludeRuns,
	}, nil
}

func (a *APIServer) testResultHandler() routing.Handler {
	return func(c *routing.Context) error {
		id := c.Param("id")
		result, err := a.Store.Get(id)
		if errors.Is(err, ErrJobNotFound) {
			return routing.NewHTTPError(http.StatusNotFound, fmt.Sprintf("job %s not found", id))
		} else if err != nil {
			return fmt.Errorf("could not read job %s: %w", id, err)
		}

		if result.Status == StatusDone {
			c.SetContentType(result.ContentType)
			return c.Write(result.Report)
		}
		return writeJSON(c, statusResponse{ID: result.ID, Status: result.Status, Error: result.Error})
	}
}

func writeJSON(c *routing.Context, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal response: %w", err)
	}
	c.SetContentType("application/json")
	return c.Write(b)
}
