package scheduler

import (
	"container/heap"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrMissingID          = errors.New("scheduler: job id is required")
	ErrStopped            = errors.New("scheduler: engine stopped")
)

// Job is a single timer. Owner groups jobs so they can be cancelled
// together (all reminders of one event, for example).
type Job struct {
	ID        string
	Owner     string
	TriggerAt time.Time
	Payload   any
}

type queueItem struct {
	job   Job
	index int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].job.TriggerAt.Before(pq[j].job.TriggerAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	byID    map[string]*queueItem
	out     chan Job
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
	now     func() time.Time
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(priorityQueue, 0),
		byID:   make(map[string]*queueItem),
		out:    make(chan Job, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		now:    time.Now,
	}
}

func (e *Engine) C() <-chan Job {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule adds a job, replacing any pending job with the same ID.
func (e *Engine) Schedule(job Job) error {
	if job.ID == "" {
		return ErrMissingID
	}
	if job.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}

	if existing, ok := e.byID[job.ID]; ok {
		existing.job = job
		heap.Fix(&e.queue, existing.index)
	} else {
		item := &queueItem{job: job}
		heap.Push(&e.queue, item)
		e.byID[job.ID] = item
	}
	e.signalWakeup()
	return nil
}

// Cancel removes a pending job. It reports whether the job was pending.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.removeLocked(id) {
		return false
	}
	e.signalWakeup()
	return true
}

// CancelOwner removes every pending job of owner and returns how many went.
func (e *Engine) CancelOwner(owner string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0)
	for id, item := range e.byID {
		if item.job.Owner == owner {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		e.removeLocked(id)
	}
	if len(ids) > 0 {
		e.signalWakeup()
	}
	return len(ids)
}

// CancelAll empties the queue.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = e.queue[:0]
	e.byID = make(map[string]*queueItem)
	e.signalWakeup()
}

func (e *Engine) IsPending(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.byID[id]
	return ok
}

// Pending returns the pending jobs ordered by trigger time.
func (e *Engine) Pending() []Job {
	e.mu.Lock()
	out := make([]Job, 0, len(e.queue))
	for _, item := range e.queue {
		out = append(out, item.job)
	}
	e.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TriggerAt.Equal(out[j].TriggerAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].TriggerAt.Before(out[j].TriggerAt)
	})
	return out
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) removeLocked(id string) bool {
	item, ok := e.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&e.queue, item.index)
	delete(e.byID, id)
	return true
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := next.TriggerAt.Sub(e.now())
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(e.now())
			for _, job := range due {
				select {
				case e.out <- job:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Job{}, false
	}
	return e.queue[0].job, true
}

func (e *Engine) popDue(now time.Time) []Job {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Job, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].job
		if next.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(*queueItem)
		delete(e.byID, item.job.ID)
		out = append(out, item.job)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
