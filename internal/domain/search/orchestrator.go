package search

import (
	"context"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// Outcome is what Execute returns: the result plus whether it was served from
// cache.
type Outcome struct {
	Result    *Result `json:"result"`
	FromCache bool    `json:"from_cache"`
}

// Orchestrator runs a patent search end to end: quota gate, cache lookup,
// job submission and polling, cache and history writes, usage billing.
type Orchestrator interface {
	Execute(ctx context.Context, userID string, req Request) (*Outcome, error)
	// JobStatus is a passthrough for progress UIs polling a running job.
	JobStatus(ctx context.Context, jobID string) (*JobUpdate, error)
	History(ctx context.Context, userID string, limit int) ([]*HistoryRecord, error)
}

// Options tunes the polling loop.
type Options struct {
	// PollInterval is the fixed delay between status polls.
	PollInterval time.Duration
	// PollBudget bounds the total wait for a terminal state.
	PollBudget time.Duration
}

type orchestrator struct {
	gate    billing.QuotaGate
	jobs    JobClient
	cache   ResultCache
	history HistoryRepository
	opts    Options
	log     logging.Logger
}

// NewOrchestrator constructs the search orchestrator.
func NewOrchestrator(gate billing.QuotaGate, jobs JobClient, cache ResultCache, history HistoryRepository, opts Options, log logging.Logger) Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Second
	}
	if opts.PollBudget <= 0 {
		opts.PollBudget = 15 * time.Minute
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &orchestrator{
		gate:    gate,
		jobs:    jobs,
		cache:   cache,
		history: history,
		opts:    opts,
		log:     log.Named("search"),
	}
}

func (o *orchestrator) Execute(ctx context.Context, userID string, req Request) (*Outcome, error) {
	if userID == "" {
		return nil, apperrors.NewValidation("userID required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	allowed, err := o.gate.CanUserSearch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrCodeQuotaExceeded,
			"search quota exhausted").WithDetail("user=" + userID)
	}

	key := req.CacheKey()
	if cached, err := o.cache.Lookup(ctx, key); err == nil {
		o.log.Info("search served from cache",
			logging.String("user_id", userID),
			logging.String("molecule", req.Molecule),
			logging.String("job_id", cached.JobID),
		)
		o.finish(ctx, userID, req, cached, true)
		return &Outcome{Result: cached, FromCache: true}, nil
	} else if !apperrors.IsNotFound(err) {
		o.log.Warn("cache lookup failed, submitting fresh job",
			logging.String("molecule", req.Molecule), logging.Err(err))
	}

	jobID, err := o.jobs.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	o.log.Info("search job submitted",
		logging.String("user_id", userID),
		logging.String("job_id", jobID),
		logging.String("molecule", req.Molecule),
	)

	result, err := o.await(ctx, jobID)
	if err != nil {
		return nil, err
	}
	result.Molecule = req.Molecule
	result.Brand = req.Brand
	result.Countries = append([]string(nil), req.Countries...)

	if err := o.cache.Store(ctx, key, result); err != nil {
		o.log.Warn("failed to cache search result",
			logging.String("job_id", jobID), logging.Err(err))
	}
	o.finish(ctx, userID, req, result, false)
	return &Outcome{Result: result}, nil
}

func (o *orchestrator) JobStatus(ctx context.Context, jobID string) (*JobUpdate, error) {
	if jobID == "" {
		return nil, apperrors.NewValidation("jobID required")
	}
	update, _, err := o.jobs.Poll(ctx, jobID)
	return update, err
}

func (o *orchestrator) History(ctx context.Context, userID string, limit int) ([]*HistoryRecord, error) {
	if userID == "" {
		return nil, apperrors.NewValidation("userID required")
	}
	return o.history.ListByUser(ctx, userID, limit)
}

// await polls the job at the configured interval until it reaches a terminal
// state, the budget runs out, or ctx is cancelled.  Failed jobs are not
// retried; the user re-submits manually.
func (o *orchestrator) await(ctx context.Context, jobID string) (*Result, error) {
	deadline := time.NewTimer(o.opts.PollBudget)
	defer deadline.Stop()
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		update, result, err := o.jobs.Poll(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch update.Status {
		case JobCompleted:
			if result == nil {
				return nil, apperrors.New(apperrors.ErrCodeSearchJobFailed,
					"job completed without a result").WithDetail("job=" + jobID)
			}
			return result, nil
		case JobFailed:
			return nil, apperrors.New(apperrors.ErrCodeSearchJobFailed,
				"search job failed").WithDetail("job=" + jobID + " error=" + update.Error)
		}

		o.log.Debug("search job pending",
			logging.String("job_id", jobID),
			logging.String("status", string(update.Status)),
			logging.Int("progress", update.Progress),
			logging.Int("queue_position", update.QueuePosition),
		)

		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeSearchTimeout,
				"search cancelled while waiting for job "+jobID)
		case <-deadline.C:
			return nil, apperrors.New(apperrors.ErrCodeSearchTimeout,
				"search job did not finish within the polling budget").WithDetail("job=" + jobID)
		case <-ticker.C:
		}
	}
}

// finish writes the history record and bills the search.  Billing is keyed by
// job id, so a cache hit for a job the user already paid for is free, while a
// first-time cache hit still consumes quota.
func (o *orchestrator) finish(ctx context.Context, userID string, req Request, result *Result, fromCache bool) {
	record := &HistoryRecord{
		UserID:    userID,
		JobID:     result.JobID,
		Molecule:  req.Molecule,
		Brand:     req.Brand,
		Countries: append([]string(nil), req.Countries...),
		FromCache: fromCache,
	}
	if err := o.history.Add(ctx, record); err != nil {
		o.log.Warn("failed to write search history",
			logging.String("user_id", userID),
			logging.String("job_id", result.JobID),
			logging.Err(err),
		)
	}
	if err := o.gate.IncrementSearchUsage(ctx, userID, result.JobID); err != nil {
		o.log.Warn("failed to bill search usage",
			logging.String("user_id", userID),
			logging.String("job_id", result.JobID),
			logging.Err(err),
		)
	}
}
