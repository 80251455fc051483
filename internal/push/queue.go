package push

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"homeservices/backend/internal/models"
)

// ErrQueueDisabled is returned by a nil Queue, i.e. when no Redis is configured.
var ErrQueueDisabled = errors.New("push queue disabled")

// Job is a mobile push hand-off for a recipient that was not reachable over
// the realtime channel.
type Job struct {
	ID        string         `json:"id"`
	Role      models.Role    `json:"role"`
	SubjectID int64          `json:"subject_id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewJob(recipient models.Identity, title, body string, data map[string]any) Job {
	return Job{
		ID:        uuid.NewString(),
		Role:      recipient.Role,
		SubjectID: recipient.SubjectID,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

type Queue struct {
	client *redis.Client
	key    string
}

func NewQueue(redisURL, key string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = DefaultQueueKey
	}
	return &Queue{client: redis.NewClient(opt), key: key}, nil
}

const DefaultQueueKey = "push:queue"

func (q *Queue) Ping(ctx context.Context) error {
	if q == nil {
		return ErrQueueDisabled
	}
	return q.client.Ping(ctx).Err()
}

func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if q == nil {
		return ErrQueueDisabled
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// DequeueBatch pops up to batchSize jobs in FIFO order.
func (q *Queue) DequeueBatch(ctx context.Context, batchSize int) ([][]byte, error) {
	if q == nil {
		return nil, ErrQueueDisabled
	}
	var items [][]byte
	for i := 0; i < batchSize; i++ {
		item, err := q.client.RPop(ctx, q.key).Bytes()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (q *Queue) Close() error {
	if q == nil {
		return nil
	}
	return q.client.Close()
}
