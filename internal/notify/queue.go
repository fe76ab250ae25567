package notify

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

// Task types on the Redis queue.
const (
	TaskEmail = "notify:email"
)

// EmailTask is the payload of a queued email delivery.
type EmailTask struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Queue is the explicit hand-off between the primary transaction and its
// side-effect deliveries: the coordinator's commit is done before anything
// lands here, and a worker drains the queue independently.
type Queue struct {
	client *asynq.Client
	server *asynq.Server
}

func redisOpt() asynq.RedisClientOpt {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return asynq.RedisClientOpt{Addr: addr}
}

// NewQueue initializes the shared client and starts the worker.
func NewQueue() *Queue {
	opt := redisOpt()
	q := &Queue{client: asynq.NewClient(opt)}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskEmail, handleEmail)

	q.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
		},
	})
	go func() {
		if err := q.server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", opt.Addr)
	return q
}

// Close releases the client and stops the worker.
func (q *Queue) Close() {
	if q.client != nil {
		_ = q.client.Close()
	}
	if q.server != nil {
		q.server.Shutdown()
	}
}

// EnqueueEmail schedules one email delivery.
func (q *Queue) EnqueueEmail(to, subject, body string) error {
	payload, _ := json.Marshal(EmailTask{To: to, Subject: subject, Body: body, SentAt: time.Now()})
	task := asynq.NewTask(TaskEmail, payload)
	_, err := q.client.Enqueue(task, asynq.Queue("emails"))
	return err
}

func handleEmail(_ context.Context, t *asynq.Task) error {
	var p EmailTask
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.To, p.Subject, p.Body); err != nil {
		log.Printf("[notify][ERROR] email send failed: %v", err)
		return err
	}
	log.Printf("[notify] email sent -> to=%s subject=%q", p.To, p.Subject)
	return nil
}
