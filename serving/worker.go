package serving

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/adjust/rmq/v3"
)

// Only one browser session runs at a time, so the worker fetches a single
// delivery at a time.
const prefetchLimit = 1

// consumerQueue is the part of rmq.Queue used to consume jobs.
type consumerQueue interface {
	StartConsuming(prefetchLimit int64, pollDuration time.Duration) error
	AddConsumer(tag string, consumer rmq.Consumer) (string, error)
	StopConsuming() <-chan struct{}
}

type Worker struct {
	queue    consumerQueue
	store    ResultStore
	executor Executor
	// ctx is cancelled by Stop to abort the running job.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorker(store ResultStore, executor Executor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:    store,
		executor: executor,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start consumes jobs from queue until Stop is called.
func (w *Worker) Start(queue consumerQueue, pollDuration time.Duration) error {
	if w.queue != nil {
		return errors.New("Worker.Start() worker already started")
	}
	if err := queue.StartConsuming(prefetchLimit, pollDuration); err != nil {
		return fmt.Errorf("Worker.Start() starting consumption: %w", err)
	}
	if _, err := queue.AddConsumer("pagetime-worker", w); err != nil {
		return fmt.Errorf("Worker.Start() adding consumer: %w", err)
	}
	w.queue = queue
	return nil
}

// Stop aborts the running job and waits for the consumer to return.
func (w *Worker) Stop() {
	w.cancel()
	if w.queue != nil {
		<-w.queue.StopConsuming()
	}
}

func (w *Worker) Consume(delivery rmq.Delivery) {
	var job Job
	if err := json.Unmarshal([]byte(delivery.Payload()), &job); err != nil || job.ID == "" {
		log.Printf("rejecting malformed job payload %q: %v\n", delivery.Payload(), err)
		if err := delivery.Reject(); err != nil {
			log.Printf("could not reject delivery: %v\n", err)
		}
		return
	}

	w.put(Result{ID: job.ID, Status: StatusRunning})
	body, contentType, err := w.executor.Execute(w.ctx, job)
	if err != nil {
		w.put(Result{ID: job.ID, Status: StatusFailed, Error: err.Error()})
	} else {
		w.put(Result{ID: job.ID, Status: StatusDone, ContentType: contentType, Report: body})
	}

	if err := delivery.Ack(); err != nil {
		log.Printf("could not ack job %s: %v\n", job.ID, err)
	}
}

func (w *Worker) put(result Result) {
	if err := w.store.Put(result); err != nil {
		log.Printf("could not store result of job %s: %v\n", result.ID, err)
	}
}
