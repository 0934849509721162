package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
)

type jobState int

const (
	jobPending jobState = iota
	jobRunning
	jobCompleted
	jobFailed
)

type memoryJob struct {
	domain.WebhookJob
	state jobState
}

// MemoryOutbox is a process-local outbox for runs without Postgres.
type MemoryOutbox struct {
	mu   sync.Mutex
	jobs map[string]*memoryJob
	now  func() time.Time
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{jobs: make(map[string]*memoryJob), now: time.Now}
}

func (o *MemoryOutbox) Enqueue(_ context.Context, url string, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	id := uuid.NewString()
	o.jobs[id] = &memoryJob{WebhookJob: domain.WebhookJob{
		ID:        id,
		URL:       url,
		Payload:   append([]byte(nil), payload...),
		NextRunAt: now,
		CreatedAt: now,
	}}
	return nil
}

func (o *MemoryOutbox) Claim(_ context.Context, now time.Time) (*domain.WebhookJob, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var due []*memoryJob
	for _, j := range o.jobs {
		if j.state == jobPending && !j.NextRunAt.After(now) {
			due = append(due, j)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(a, b int) bool { return due[a].CreatedAt.Before(due[b].CreatedAt) })
	j := due[0]
	j.state = jobRunning
	job := j.WebhookJob
	return &job, nil
}

func (o *MemoryOutbox) Complete(_ context.Context, id string) error {
	return o.setState(id, jobCompleted, nil)
}

func (o *MemoryOutbox) Fail(_ context.Context, id string) error {
	return o.setState(id, jobFailed, nil)
}

func (o *MemoryOutbox) Retry(_ context.Context, id string, next time.Time) error {
	return o.setState(id, jobPending, func(j *memoryJob) {
		j.Attempts++
		j.NextRunAt = next
	})
}

func (o *MemoryOutbox) setState(id string, state jobState, mutate func(*memoryJob)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.state = state
	if mutate != nil {
		mutate(j)
	}
	return nil
}

// Pending counts jobs still waiting for delivery.
func (o *MemoryOutbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, j := range o.jobs {
		if j.state == jobPending {
			n++
		}
	}
	return n
}
