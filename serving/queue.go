package serving

import (
	"encoding/json"
	"fmt"

	"github.com/adjust/rmq/v3"
	"github.com/go-redis/redis/v7"
)

const connectionTag = "pagetime"

// OpenQueue opens the named rmq queue on client. Errors raised by rmq's
// background heartbeat are sent to errChan until the connection's
// StopAllConsuming has finished.
func OpenQueue(client *redis.Client, name string, errChan chan<- error) (rmq.Connection, rmq.Queue, error) {
	connection, err := rmq.OpenConnectionWithRedisClient(connectionTag, client, errChan)
	if err != nil {
		return nil, nil, fmt.Errorf("OpenQueue() connecting to redis: %w", err)
	}
	queue, err := connection.OpenQueue(name)
	if err != nil {
		return nil, nil, fmt.Errorf("OpenQueue() opening queue %s: %w", name, err)
	}
	return connection, queue, nil
}

type JobQueue interface {
	Publish(job Job) error
}

// publisher is the part of rmq.Queue used to enqueue jobs.
type publisher interface {
	Publish(payload ...string) error
}

type rmqJobQueue struct {
	queue publisher
}

func NewRMQJobQueue(queue publisher) *rmqJobQueue {
	return &rmqJobQueue{queue: queue}
}

func (q *rmqJobQueue) Publish(job Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("rmqJobQueue.Publish() marshalling job %s: %w", job.ID, err)
	}
	if err := q.queue.Publish(string(b)); err != nil {
		return fmt.Errorf("rmqJobQueue.Publish() publishing job %s: %w", job.ID, err)
	}
	return nil
}
