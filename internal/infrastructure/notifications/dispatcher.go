package notifications

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
)

var _ interfaces.INotificationGateway = (*Dispatcher)(nil)

// Dispatcher delivers notifications asynchronously through a worker pool.
// Notify never blocks the caller: when the queue is full the notification
// is dropped and ErrQueueFull returned.
type Dispatcher struct {
	queue       chan entities.Notification
	downstream  interfaces.INotificationGateway
	workers     int
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(downstream interfaces.INotificationGateway, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Dispatcher{
		queue:       make(chan entities.Notification, queueSize),
		downstream:  downstream,
		workers:     workers,
		sendTimeout: 5 * time.Second,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *Dispatcher) Notify(_ context.Context, n entities.Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- n:
		return nil
	default:
		log.Printf("[notify][dispatcher] queue full, dropping recipient=%s job_id=%s event=%s", n.RecipientID, n.JobID, n.Event)
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		if err := d.downstream.Notify(ctx, n); err != nil {
			log.Printf("[notify][dispatcher] worker=%d delivery failed recipient=%s job_id=%s event=%s err=%v", id, n.RecipientID, n.JobID, n.Event, err)
		}
		cancel()
	}
}

// Shutdown stops accepting notifications and waits for the queue to drain.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
