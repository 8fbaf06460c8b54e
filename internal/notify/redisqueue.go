package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/users"
	"github.com/Spok95/meetapp/internal/infra/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultQueueKey = "meetapp:subscription_mail"
	pushTimeout     = 3 * time.Second
	popTimeout      = 5 * time.Second
)

// RedisQueue кладёт задачи в список Redis; забирает их Worker (возможно, в другом процессе).
// LPUSH делают несколько горутин из ограниченного буфера: при недоступном Redis
// лишние задачи отбрасываются, а не копятся в памяти.
type RedisQueue struct {
	rdb  redis.Cmdable
	key  string
	log  *slog.Logger
	jobs chan queued
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type queued struct {
	raw      []byte
	meetupID int64
	userID   int64
}

func NewRedisQueue(rdb redis.Cmdable, key string, log *slog.Logger, workers, buffer int) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	q := &RedisQueue{rdb: rdb, key: key, log: log, jobs: make(chan queued, buffer)}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.pusher()
	}
	return q
}

func EncodeJob(job Job) ([]byte, error) {
	return json.Marshal(job)
}

func DecodeJob(raw []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if job.Meetup.ID == 0 || job.Subscriber.ID == 0 {
		return Job{}, errors.New("decode job: meetup and subscriber are required")
	}
	return job, nil
}

// Notify не ждёт Redis: задача уходит в буфер, LPUSH делают pusher'ы.
func (q *RedisQueue) Notify(_ context.Context, m meetups.Meetup, subscriber users.User) {
	raw, err := EncodeJob(Job{Meetup: m, Subscriber: subscriber, QueuedAt: time.Now().UTC()})
	if err != nil {
		q.log.Error("notification encode failed", "meetup_id", m.ID, "err", err)
		metrics.ObserveNotification("dropped")
		return
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.Warn("notification dropped: dispatcher closed", "meetup_id", m.ID, "user_id", subscriber.ID)
		metrics.ObserveNotification("dropped")
		return
	}
	select {
	case q.jobs <- queued{raw: raw, meetupID: m.ID, userID: subscriber.ID}:
	default:
		q.log.Warn("notification dropped: queue is full", "meetup_id", m.ID, "user_id", subscriber.ID)
		metrics.ObserveNotification("dropped")
	}
}

func (q *RedisQueue) pusher() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.push(j)
	}
}

func (q *RedisQueue) push(j queued) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := q.rdb.LPush(ctx, q.key, j.raw).Err(); err != nil {
		q.log.Error("notification enqueue failed", "meetup_id", j.meetupID, "user_id", j.userID, "err", err)
		metrics.ObserveNotification("dropped")
		return
	}
	metrics.ObserveNotification("queued")
}

// Close перестаёт принимать задачи и дожидается, пока буфер уйдёт в Redis.
func (q *RedisQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

// Worker разбирает очередь и отдаёт задачи Sender'у.
type Worker struct {
	rdb    redis.Cmdable
	key    string
	sender Sender
	log    *slog.Logger
}

func NewWorker(rdb redis.Cmdable, key string, sender Sender, log *slog.Logger) *Worker {
	if key == "" {
		key = DefaultQueueKey
	}
	return &Worker{rdb: rdb, key: key, sender: sender, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("notification worker started", "queue", w.key)
	for {
		res, err := w.rdb.BRPop(ctx, popTimeout, w.key).Result()
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			w.log.Error("queue pop failed", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		// BRPOP возвращает пару [key, value]
		if len(res) == 2 {
			w.handle([]byte(res[1]))
		}
	}
}

func (w *Worker) handle(raw []byte) {
	job, err := DecodeJob(raw)
	if err != nil {
		w.log.Error("bad job in queue", "err", err)
		metrics.ObserveNotification("failed")
		return
	}
	deliver(w.log, w.sender, job)
}
