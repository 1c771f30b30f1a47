package workers

import (
	"log"
	"runtime/debug"
	"sync"
)

// Dispatcher runs jobs with bounded concurrency while keeping jobs that share a key
// strictly in submission order. Each key has a FIFO mailbox drained by at most one
// goroutine; different keys run in parallel up to maxWorkers.
type Dispatcher struct {
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu     sync.Mutex
	queues map[string][]func()
}

func NewDispatcher(maxWorkers int) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Dispatcher{
		semaphore: make(chan struct{}, maxWorkers),
		queues:    make(map[string][]func()),
	}
}

// Submit enqueues job behind every earlier job with the same key. It never blocks.
func (d *Dispatcher) Submit(key string, job func()) {
	d.wg.Add(1)

	d.mu.Lock()
	q, active := d.queues[key]
	d.queues[key] = append(q, job)
	d.mu.Unlock()

	if !active {
		go d.drain(key)
	}
}

// Wait blocks until all submitted jobs have completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Pending reports how many keys currently have queued or running jobs.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

func (d *Dispatcher) drain(key string) {
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := q[0]
		d.mu.Unlock()

		d.semaphore <- struct{}{}
		d.run(key, job)
		<-d.semaphore

		// o job só sai da fila depois de rodar; enquanto isso a chave continua "ativa"
		d.mu.Lock()
		d.queues[key] = d.queues[key][1:]
		d.mu.Unlock()
		d.wg.Done()
	}
}

func (d *Dispatcher) run(key string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatcher: job for %s panicked: %v\n%s", key, r, debug.Stack())
		}
	}()
	job()
}
