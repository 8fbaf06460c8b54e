package notify

import (
	"context"
	"sync"

	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/Spok95/meetapp/internal/domain/users"
)

// Recorder подменяет Dispatcher в тестах. Ничего не отправляет, только запоминает вызовы.
type Recorder struct {
	mu   sync.Mutex
	jobs []Job
}

func (r *Recorder) Notify(_ context.Context, m meetups.Meetup, subscriber users.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, Job{Meetup: m, Subscriber: subscriber})
}

func (r *Recorder) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
