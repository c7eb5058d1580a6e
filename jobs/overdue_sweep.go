package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Invalidator drops derived dashboard views after the sweep mutates invoices.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// OverdueSweepJob flips pending invoices to overdue once their due date is in
// the past. The sweep persists what list endpoints would otherwise have to
// derive per request, so dashboards and exports agree on a stable state.
type OverdueSweepJob struct {
	Pool       *pgxpool.Pool
	Logger     *slog.Logger
	Invalidate Invalidator
	clock      func() time.Time
}

// NewOverdueSweepJob initialises the sweep handler. invalidate may be nil.
func NewOverdueSweepJob(pool *pgxpool.Pool, logger *slog.Logger, invalidate Invalidator) *OverdueSweepJob {
	return &OverdueSweepJob{
		Pool:       pool,
		Logger:     logger,
		Invalidate: invalidate,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one sweep run.
func (j *OverdueSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("overdue sweep: handler not configured")
	}
	var payload OverdueSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	logger := j.logger()
	logger.Info("starting overdue sweep")

	flipped, err := j.sweep(ctx, payload, start)
	if err != nil {
		logger.Error("sweep failed", slog.Any("error", err))
		return err
	}

	if flipped > 0 && j.Invalidate != nil {
		if err := j.Invalidate.Bump(ctx); err != nil {
			logger.Warn("invalidate dashboard cache", slog.Any("error", err))
		}
	}

	logger.Info("completed overdue sweep",
		slog.Int64("flipped", flipped),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *OverdueSweepJob) sweep(ctx context.Context, payload OverdueSweepPayload, now time.Time) (int64, error) {
	if j.Pool == nil {
		return 0, errors.New("overdue sweep: pool not configured")
	}
	today := now.Format("2006-01-02")

	query := `
		UPDATE deals SET invoice_status = 'overdue', updated_at = NOW()
		WHERE status = 'invoice' AND invoice_status = 'pending'
		  AND due_date IS NOT NULL AND due_date < $1
	`
	args := []interface{}{today}
	if payload.BatchLimit > 0 {
		query = `
			UPDATE deals SET invoice_status = 'overdue', updated_at = NOW()
			WHERE id IN (
				SELECT id FROM deals
				WHERE status = 'invoice' AND invoice_status = 'pending'
				  AND due_date IS NOT NULL AND due_date < $1
				ORDER BY due_date ASC
				LIMIT $2
			)
		`
		args = append(args, payload.BatchLimit)
	}

	tag, err := j.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (j *OverdueSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeOverdueSweep))
	}
	return slog.Default().With(slog.String("job", TaskTypeOverdueSweep))
}

func (j *OverdueSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
