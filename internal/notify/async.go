package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/users"
	"github.com/Spok95/meetapp/internal/infra/metrics"
)

// Async: очередь в памяти с фиксированным числом воркеров.
// Если буфер заполнен, задача отбрасывается: вызывающий не ждёт никогда.
type Async struct {
	log    *slog.Logger
	sender Sender
	jobs   chan Job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsync(log *slog.Logger, sender Sender, workers, buffer int) *Async {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	a := &Async{log: log, sender: sender, jobs: make(chan Job, buffer)}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

func (a *Async) Notify(_ context.Context, m meetups.Meetup, subscriber users.User) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.log.Warn("notification dropped: dispatcher closed", "meetup_id", m.ID, "user_id", subscriber.ID)
		metrics.ObserveNotification("dropped")
		return
	}

	select {
	case a.jobs <- Job{Meetup: m, Subscriber: subscriber, QueuedAt: time.Now().UTC()}:
		metrics.ObserveNotification("queued")
	default:
		a.log.Warn("notification dropped: queue is full", "meetup_id", m.ID, "user_id", subscriber.ID)
		metrics.ObserveNotification("dropped")
	}
}

func (a *Async) worker() {
	defer a.wg.Done()
	for job := range a.jobs {
		deliver(a.log, a.sender, job)
	}
}

// Close перестаёт принимать задачи и дожидается отправки уже поставленных.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()
	a.wg.Wait()
}

func deliver(log *slog.Logger, sender Sender, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := sender.Send(ctx, job); err != nil {
		log.Error("notification send failed",
			"meetup_id", job.Meetup.ID,
			"user_id", job.Subscriber.ID,
			"err", err,
		)
		metrics.ObserveNotification("failed")
		return
	}
	metrics.ObserveNotification("sent")
}
