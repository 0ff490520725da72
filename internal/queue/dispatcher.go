// Package queue procesa mensajes entrantes de WhatsApp con un pool acotado de workers.
package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"cobranza-bot/internal/metrics"
)

var (
	ErrQueueFull    = errors.New("inbound queue is full")
	ErrQueueStopped = errors.New("inbound queue is stopped")
)

// Job es un mensaje entrante pendiente de respuesta.
type Job struct {
	Source     string // twilio | meta
	From       string
	Body       string
	ReceivedAt time.Time
}

// Handler procesa un Job. Los errores se loguean; el job no se reintenta.
type Handler func(ctx context.Context, job Job) error

// Dispatcher reparte los jobs por remitente: cada número cae siempre en el
// mismo worker, así sus mensajes se procesan en orden y de a uno.
type Dispatcher struct {
	mu      sync.RWMutex
	shards  []chan Job
	stopped bool
	started bool

	handler    Handler
	workers    int
	jobTimeout time.Duration
	logger     *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDispatcher(workers, size int, jobTimeout time.Duration, handler Handler, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	perShard := (size + workers - 1) / workers
	shards := make([]chan Job, workers)
	for i := range shards {
		shards[i] = make(chan Job, perShard)
	}
	return &Dispatcher{
		shards:     shards,
		handler:    handler,
		workers:    workers,
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

// Start lanza los workers. Llamadas repetidas no hacen nada.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info("inbound dispatcher started", zap.Int("workers", d.workers), zap.Int("shard_size", cap(d.shards[0])))
}

// Enqueue no bloquea: si la cola está llena devuelve ErrQueueFull.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		metrics.InboundQueued.WithLabelValues("stopped").Inc()
		return ErrQueueStopped
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = time.Now()
	}
	select {
	case d.shardFor(job.From) <- job:
		metrics.InboundQueued.WithLabelValues("accepted").Inc()
		metrics.QueueDepth.Set(float64(d.depth()))
		return nil
	default:
		metrics.InboundQueued.WithLabelValues("full").Inc()
		return ErrQueueFull
	}
}

// Stop deja de aceptar trabajos y espera a que se procesen los pendientes.
// Si ctx vence antes, cancela los jobs en curso y devuelve ctx.Err().
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	for _, ch := range d.shards {
		close(ch)
	}
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info("inbound dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		d.logger.Warn("inbound dispatcher drain timeout; in-flight jobs cancelled")
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for job := range d.shards[id] {
		metrics.QueueDepth.Set(float64(d.depth()))
		d.process(ctx, id, job)
	}
}

func (d *Dispatcher) shardFor(from string) chan Job {
	h := fnv.New32a()
	_, _ = h.Write([]byte(from))
	return d.shards[h.Sum32()%uint32(len(d.shards))]
}

func (d *Dispatcher) depth() int {
	n := 0
	for _, ch := range d.shards {
		n += len(ch)
	}
	return n
}

func (d *Dispatcher) process(ctx context.Context, id int, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("inbound job panic", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()

	if err := d.handler(jobCtx, job); err != nil {
		d.logger.Warn("inbound job failed",
			zap.Int("worker", id),
			zap.String("source", job.Source),
			zap.String("from", job.From),
			zap.Error(err),
		)
	}
}
