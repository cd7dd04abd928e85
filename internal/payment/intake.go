package payment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/sos-checkout/internal"
)

// ReconcileJob identifies one gateway notification to resolve. Only the
// gateway-side charge id is carried; the authoritative status is always
// re-fetched from the gateway, never taken from the webhook body.
type ReconcileJob struct {
	GatewayID string
}

type IntakeConfig struct {
	MaxWorkers   int
	JobQueueSize int
	// JobTimeout bounds one fetch-and-reconcile pass.
	JobTimeout time.Duration
	// Synchronous processes jobs inline instead of through the pool. Used
	// in tests and single-instance deployments.
	Synchronous bool
}

type intakeWorker struct {
	id         int
	workerPool chan chan ReconcileJob
	jobChannel chan ReconcileJob
	logger     *slog.Logger
}

func newIntakeWorker(id int, workerPool chan chan ReconcileJob, logger *slog.Logger) *intakeWorker {
	return &intakeWorker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan ReconcileJob),
		logger:     logger,
	}
}

func (w *intakeWorker) start(ctx context.Context, wg *sync.WaitGroup, processFunc func(ReconcileJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				w.logger.Debug("intake worker processing job", "worker_id", w.id, "gateway_id", job.GatewayID)
				processFunc(job)
			case <-ctx.Done():
				w.logger.Debug("intake worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

// Intake drains webhook notifications off the request path. The handler
// acknowledges receipt immediately; workers fetch the authoritative charge
// state and feed it through Reconcile.
type Intake struct {
	gateway GatewayAPI
	service ServiceAPI
	logger  *slog.Logger

	jobQueue    chan ReconcileJob
	workerPool  chan chan ReconcileJob
	maxWorkers  int
	jobTimeout  time.Duration
	synchronous bool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	once        sync.Once
}

func NewIntake(cfg IntakeConfig, gateway GatewayAPI, service ServiceAPI, logger *slog.Logger) *Intake {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	jobQueueSize := cfg.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	intake := &Intake{
		gateway:     gateway,
		service:     service,
		logger:      logger,
		maxWorkers:  maxWorkers,
		jobTimeout:  cfg.JobTimeout,
		synchronous: cfg.Synchronous,
		jobQueue:    make(chan ReconcileJob, jobQueueSize),
		workerPool:  make(chan chan ReconcileJob, maxWorkers),
		ctx:         ctx,
		cancel:      cancel,
	}

	if !intake.synchronous {
		intake.startWorkerPool()
	}

	return intake
}

func (i *Intake) startWorkerPool() {
	i.once.Do(func() {
		for w := 0; w < i.maxWorkers; w++ {
			worker := newIntakeWorker(w, i.workerPool, i.logger)
			worker.start(i.ctx, &i.wg, i.process)
		}

		i.wg.Add(1)
		go i.dispatch()

		i.logger.Info("webhook intake worker pool started",
			"max_workers", i.maxWorkers,
			"queue_size", cap(i.jobQueue))
	})
}

func (i *Intake) dispatch() {
	defer i.wg.Done()

	for {
		select {
		case job := <-i.jobQueue:
			select {
			case jobChannel := <-i.workerPool:
				select {
				case jobChannel <- job:
				case <-i.ctx.Done():
					return
				}
			case <-i.ctx.Done():
				return
			}
		case <-i.ctx.Done():
			return
		}
	}
}

// Dispatch hands a notification to the pool. A full queue falls back to
// inline processing rather than dropping the notification; a lost one
// would otherwise sit unresolved until the next client poll.
func (i *Intake) Dispatch(job ReconcileJob) {
	if i.synchronous {
		i.process(job)
		return
	}

	select {
	case i.jobQueue <- job:
		i.logger.Debug("reconcile job queued",
			"gateway_id", job.GatewayID,
			"queue_length", len(i.jobQueue))
	default:
		i.logger.Warn("intake queue full, processing notification inline",
			"gateway_id", job.GatewayID,
			"queue_capacity", cap(i.jobQueue))
		i.process(job)
	}
}

func (i *Intake) process(job ReconcileJob) {
	ctx, cancel := internal.WithTimeout(i.ctx, i.jobTimeout)
	defer cancel()

	charge, err := i.gateway.FetchCharge(ctx, job.GatewayID)
	if err != nil {
		// Left for a later poll; the gateway will also redeliver.
		i.logger.Error("failed to fetch charge for notification",
			"gateway_id", job.GatewayID,
			"error", err)
		return
	}

	view, err := i.service.GetStatus(ctx, job.GatewayID)
	if err != nil {
		i.logger.Warn("notification for unknown charge",
			"gateway_id", job.GatewayID,
			"error", err)
		return
	}

	if _, err := i.service.Reconcile(ctx, view.ID, charge.Status, charge.StatusDetail); err != nil {
		// Duplicate deliveries racing a terminal state land here; that is
		// the expected at-least-once noise, logged and dropped.
		i.logger.Warn("notification reconcile not applied",
			"payment_id", view.ID,
			"gateway_id", job.GatewayID,
			"gateway_status", charge.Status,
			"error", err)
		return
	}

	i.logger.Info("notification reconciled",
		"payment_id", view.ID,
		"gateway_id", job.GatewayID,
		"gateway_status", charge.Status)
}

func (i *Intake) Shutdown() {
	i.logger.Info("shutting down webhook intake")
	i.cancel()
	i.wg.Wait()
	i.logger.Info("webhook intake shutdown complete")
}
