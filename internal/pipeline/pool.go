package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/vijay-2155/VignanEcap/internal/errors"
	"github.com/vijay-2155/VignanEcap/internal/infrastructure"
	"github.com/vijay-2155/VignanEcap/internal/portal"
)

// ErrQueueFull is returned by Submit when the pending queue is at capacity.
// Callers should tell the user to try again rather than block.
var ErrQueueFull = errors.New("fetch queue is full")

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = errors.New("fetch pool is stopped")

// Runner executes one fetch. Satisfied by *Orchestrator.
type Runner interface {
	Run(ctx context.Context, creds portal.Credentials) Result
}

type job struct {
	creds  portal.Credentials
	result chan Result
}

// Metrics aggregates the pool's Prometheus collectors.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	queued   prometheus.Gauge
}

// NewMetrics registers the pool collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecap",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome and failure reason.",
		}, []string{"outcome", "reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ecap",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete pipeline run.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ecap",
			Subsystem: "pipeline",
			Name:      "queued_jobs",
			Help:      "Jobs waiting for a worker.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.queued)
	return m
}

func (m *Metrics) observe(res Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome, reason := "success", ""
	if res.Failed() {
		outcome, reason = "failure", string(res.Reason)
	}
	m.runs.WithLabelValues(outcome, reason).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Pool fans fetch jobs out to a fixed set of workers, each driving its own
// browser session. The queue bounds how many requests may wait; beyond that
// Submit fails fast.
type Pool struct {
	runner  Runner
	jobs    chan job
	metrics *Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	stopped bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool starts workers goroutines consuming from a queue of queueSize.
func NewPool(runner Runner, workers, queueSize int, metrics *Metrics, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		runner:  runner,
		jobs:    make(chan job, queueSize),
		metrics: metrics,
		logger:  logger.With(slog.String("component", "pool")),
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	return p
}

// Submit enqueues a fetch and returns a channel that receives exactly one
// Result. It never blocks: a full queue or a stopped pool is an error.
func (p *Pool) Submit(creds portal.Credentials) (<-chan Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, ErrPoolStopped
	}
	j := job{creds: creds, result: make(chan Result, 1)}
	select {
	case p.jobs <- j:
		if p.metrics != nil {
			p.metrics.queued.Inc()
		}
		return j.result, nil
	default:
		return nil, ErrQueueFull
	}
}

// Accepting reports whether Submit can currently succeed.
func (p *Pool) Accepting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.stopped
}

// Stop drains the queue and waits up to timeout for in-flight runs to
// finish, then cancels whatever remains.
func (p *Pool) Stop(timeout time.Duration) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		p.logger.Warn("pool stop timed out, cancelling in-flight runs")
		p.cancel()
		<-done
	}
	p.cancel()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		if p.metrics != nil {
			p.metrics.queued.Dec()
		}
		j.result <- p.execute(ctx, id, j.creds)
	}
}

// execute runs one job with panic containment so a misbehaving run never
// takes down its worker.
func (p *Pool) execute(ctx context.Context, worker int, creds portal.Credentials) (res Result) {
	invocation := uuid.NewString()
	runCtx := infrastructure.WithInvocationID(ctx, invocation)
	logger := p.logger.With(slog.String("invocation_id", invocation), slog.Int("worker", worker))

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker panic recovered", slog.Any("panic", r))
			res = failure(apperrors.New(apperrors.ReasonUnknown, fmt.Sprintf("internal error: %v", r), nil))
		}
		p.metrics.observe(res, time.Since(start))
		logger.Info("job finished",
			slog.Bool("failed", res.Failed()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}()

	logger.Info("job started")
	return p.runner.Run(runCtx, creds)
}
