package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/ideasdevops/lead-ia/internal/searches"
	"github.com/ideasdevops/lead-ia/pkg/logger"
)

const defaultStaleAfter = 30 * time.Minute

type staleSearchLister interface {
	ListStale(ctx context.Context, olderThan time.Duration) ([]searches.Search, error)
}

type pendingOutboxCounter interface {
	CountPending(ctx context.Context) (int64, error)
}

type StaleSearchJobParams struct {
	Logger     *logger.Logger
	Searches   staleSearchLister
	Outbox     pendingOutboxCounter
	StaleAfter time.Duration
}

// NewStaleSearchJob reports searches stuck in running and the undelivered outbox backlog.
// Stuck searches are only reported; an operator decides what to do with them.
func NewStaleSearchJob(params StaleSearchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Searches == nil {
		return nil, fmt.Errorf("search service required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &staleSearchJob{
		logg:       params.Logger,
		searches:   params.Searches,
		outbox:     params.Outbox,
		staleAfter: staleAfter,
	}, nil
}

type staleSearchJob struct {
	logg       *logger.Logger
	searches   staleSearchLister
	outbox     pendingOutboxCounter
	staleAfter time.Duration
}

func (j *staleSearchJob) Name() string { return "stale-searches" }

func (j *staleSearchJob) Run(ctx context.Context) error {
	return multierr.Combine(j.reportStale(ctx), j.reportBacklog(ctx))
}

func (j *staleSearchJob) reportStale(ctx context.Context) error {
	stale, err := j.searches.ListStale(ctx, j.staleAfter)
	if err != nil {
		return fmt.Errorf("list stale searches: %w", err)
	}
	for _, s := range stale {
		fields := map[string]any{
			"user_id": s.UserID,
			"source":  s.Source,
		}
		if s.StartedAt != nil {
			fields["started_at"] = s.StartedAt.UTC()
		}
		j.logg.Warn(j.logg.WithFields(j.logg.WithSearchID(ctx, s.ID), fields), "search stuck in running")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"stale_count":   len(stale),
		"stale_after_s": int64(j.staleAfter.Seconds()),
	}), "stale search scan complete")
	return nil
}

func (j *staleSearchJob) reportBacklog(ctx context.Context) error {
	if j.outbox == nil {
		return nil
	}
	pending, err := j.outbox.CountPending(ctx)
	if err != nil {
		return fmt.Errorf("count pending outbox rows: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "outbox_pending", pending), "outbox backlog")
	return nil
}
