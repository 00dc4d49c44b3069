package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/spf13/cobra"

	"github.com/kcz17/pagetime/collector"
	"github.com/kcz17/pagetime/config"
	"github.com/kcz17/pagetime/report"
	"github.com/kcz17/pagetime/serving"
)

// queuePollDuration is how often the worker polls redis for new jobs.
const queuePollDuration = time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an HTTP API which runs page timing tests as queued jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return serve(cmd.Context(), c)
		},
	}
	cmd.Flags().String("addr", ":8080", "address the API listens on")
	return cmd
}

func serve(ctx context.Context, c *config.Config) error {
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

	client := redis.NewClient(&redis.Options{
		Addr:     *c.Serving.Redis.Addr,
		Password: *c.Serving.Redis.Password,
		DB:       *c.Serving.Redis.DB,
	})
	defer client.Close()

	queueErrors := make(chan error, 10)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for err := range queueErrors {
			log.Printf("job queue error: %v\n", err)
		}
	}()
	connection, queue, err := serving.OpenQueue(client, *c.Serving.Queue, queueErrors)
	if err != nil {
		close(queueErrors)
		<-drained
		return err
	}
	defer func() {
		<-connection.StopAllConsuming()
		close(queueErrors)
		<-drained
	}()
	store := serving.NewRedisResultStore(client, c.Serving.ResultTTL)

	logger := newLogger(c, "")
	defer logger.Close()

	worker := serving.NewWorker(store, &serving.TestExecutor{
		Sessions:   sessions,
		Collectors: collectors,
		Timeout:    c.Test.TimeoutDuration(),
		Logger:     logger,
		Version:    version,
	})
	if err := worker.Start(queue, queuePollDuration); err != nil {
		return err
	}
	defer worker.Stop()

	api := &serving.APIServer{
		Queue:             serving.NewRMQJobQueue(queue),
		Store:             store,
		DefaultIterations: *c.Test.Iterations,
		MaxIterations:     *c.Serving.MaxIterations,
		DefaultFormat:     format,
	}
	server := api.NewServer()
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe(*c.Serving.Addr)
	}()
	log.Printf("serving on %s\n", *c.Serving.Addr)

	select {
	case err := <-serverErr:
		return fmt.Errorf("API server stopped: %w", err)
	case <-ctx.Done():
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("could not shut down API server: %w", err)
		}
		return nil
	}
}
