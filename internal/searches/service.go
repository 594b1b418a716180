package searches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/logger"
	"github.com/ideasdevops/lead-ia/pkg/metrics"
	"github.com/ideasdevops/lead-ia/pkg/outbox"
	"github.com/ideasdevops/lead-ia/pkg/outbox/payloads"
	"github.com/ideasdevops/lead-ia/pkg/providers"
)

// DefaultProviderTimeout bounds a single provider call when none is configured.
const DefaultProviderTimeout = 2 * time.Minute

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type fetcherLookup interface {
	Fetcher(source enums.SearchSource) (providers.Fetcher, error)
}

// ServiceParams bundles the dependencies required to build the search registry.
type ServiceParams struct {
	DB              txRunner
	Providers       fetcherLookup
	Outbox          outboxEmitter
	Metrics         *metrics.SearchMetrics
	Executor        *Executor
	ProviderTimeout time.Duration
	Async           bool
	Logger          *logger.Logger
	Now             func() time.Time
}

// Service owns the search lifecycle: pending, running, then completed or failed.
type Service struct {
	db        txRunner
	repo      *Repository
	providers fetcherLookup
	outbox    outboxEmitter
	metrics   *metrics.SearchMetrics
	executor  *Executor
	timeout   time.Duration
	async     bool
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	timeout := params.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	executor := params.Executor
	if executor == nil {
		executor = NewExecutor()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:        params.DB,
		repo:      NewRepository(params.DB.DB()),
		providers: params.Providers,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		executor:  executor,
		timeout:   timeout,
		async:     params.Async,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Repository exposes the non-transactional repository for read paths.
func (s *Service) Repository() *Repository { return s.repo }

// Wait drains background executions started in async mode.
func (s *Service) Wait() { s.executor.Wait() }

// StartSearch records a pending search. It never contacts the provider.
func (s *Service) StartSearch(ctx context.Context, userID uint, in StartInput) (*Search, error) {
	query := strings.TrimSpace(in.Query)
	location := strings.TrimSpace(in.Location)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query is required")
	}
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}
	source, err := enums.ParseSearchSource(in.Source)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown source").
			WithDetails(map[string]any{"source": in.Source})
	}

	var zoom *float64
	if source.SupportsZoom() {
		z := enums.DefaultGoogleMapsZoom
		if in.Zoom != nil {
			z = *in.Zoom
		}
		zoom = &z
	}

	search := &models.SearchQuery{
		UserID:   userID,
		Query:    query,
		Location: location,
		Source:   source,
		Zoom:     zoom,
		Status:   enums.SearchStatusPending,
	}
	if err := s.repo.Create(ctx, search); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create search")
	}
	return &Search{SearchQuery: *search}, nil
}

// ExecuteSearch claims a pending search and runs its provider query. Provider failures end up
// as a failed search, not as an error. In async mode the running search is returned right away.
func (s *Service) ExecuteSearch(ctx context.Context, searchID, callerID uint, override bool) (*Search, error) {
	search, err := s.repo.FindByID(ctx, searchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "search not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load search")
	}
	if search.UserID != callerID && !override {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "search belongs to another user")
	}

	startedAt := s.now().UTC()
	claimed, err := s.repo.Claim(ctx, searchID, startedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim search")
	}
	if !claimed {
		s.metrics.IncClaimConflict()
		current := search.Status
		if fresh, err := s.repo.FindByID(ctx, searchID); err == nil {
			current = fresh.Status
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "search is not pending").
			WithDetails(map[string]any{"status": current})
	}
	search.Status = enums.SearchStatusRunning
	search.StartedAt = &startedAt

	runCtx := context.WithoutCancel(ctx)
	if s.logg != nil {
		runCtx = s.logg.WithSearchID(runCtx, search.ID)
	}

	if s.async {
		claimedSearch := *search
		s.executor.Go(func() {
			if _, err := s.run(runCtx, claimedSearch); err != nil && s.logg != nil {
				s.logg.Error(runCtx, "background search execution failed", err)
			}
		})
		return &Search{SearchQuery: *search}, nil
	}
	return s.run(runCtx, *search)
}

// run calls the provider once and persists the terminal state.
func (s *Service) run(ctx context.Context, search models.SearchQuery) (*Search, error) {
	begin := time.Now()
	listings, fetchErr := s.fetch(ctx, search)

	var (
		status enums.SearchStatus
		stored int
		err    error
	)
	if fetchErr != nil {
		status = enums.SearchStatusFailed
		err = s.finishFailed(ctx, search, fetchErr)
	} else {
		status = enums.SearchStatusCompleted
		stored, err = s.finishCompleted(ctx, search, listings)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveExecution(search.Source.String(), status.String(), time.Since(begin), stored)

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"status":      status,
			"source":      search.Source,
			"leads_count": stored,
		})
		if fetchErr != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", fetchErr.Error()), "search failed")
		} else {
			s.logg.Info(logCtx, "search completed")
		}
	}
	return s.GetSearch(ctx, search.ID)
}

func (s *Service) fetch(ctx context.Context, search models.SearchQuery) ([]providers.RawListing, error) {
	fetcher, err := s.providers.Fetcher(search.Source)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	listings, err := fetcher.FetchListings(callCtx, providers.Request{
		Query:    search.Query,
		Location: search.Location,
		Zoom:     search.Zoom,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, providers.Failure(callCtx.Err(), fmt.Sprintf("provider timed out after %s", s.timeout))
		}
		return nil, err
	}
	return listings, nil
}

func (s *Service) finishCompleted(ctx context.Context, search models.SearchQuery, listings []providers.RawListing) (int, error) {
	unique := Dedupe(listings)
	completedAt := s.now().UTC()

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		leads := make([]models.Lead, 0, len(unique))
		for _, l := range unique {
			leads = append(leads, models.Lead{
				SearchQueryID: search.ID,
				Title:         l.Title,
				Address:       l.Address,
				PhoneNumber:   l.PhoneNumber,
				WebsiteURL:    l.WebsiteURL,
				Tags:          l.Tags,
				SourceURL:     l.SourceURL,
			})
		}
		if err := repo.InsertLeads(ctx, leads); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert leads")
		}
		if err := s.transition(ctx, repo, search.ID, enums.SearchStatusCompleted, completedAt); err != nil {
			return err
		}
		count, err := repo.CountLeads(ctx, search.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count leads")
		}
		return s.emit(ctx, tx, search, enums.EventSearchCompleted, payloads.SearchCompletedEvent{
			SearchQueryID: search.ID,
			UserID:        search.UserID,
			Source:        search.Source,
			Query:         search.Query,
			Location:      search.Location,
			LeadsCount:    count,
			CompletedAt:   completedAt,
		}, completedAt)
	})
	if err != nil {
		return 0, err
	}
	return len(unique), nil
}

func (s *Service) finishFailed(ctx context.Context, search models.SearchQuery, cause error) error {
	failedAt := s.now().UTC()
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if err := s.transition(ctx, repo, search.ID, enums.SearchStatusFailed, failedAt); err != nil {
			return err
		}
		return s.emit(ctx, tx, search, enums.EventSearchFailed, payloads.SearchFailedEvent{
			SearchQueryID: search.ID,
			UserID:        search.UserID,
			Source:        search.Source,
			Error:         failureMessage(cause),
			FailedAt:      failedAt,
		}, failedAt)
	})
}

func (s *Service) transition(ctx context.Context, repo *Repository, id uint, status enums.SearchStatus, at time.Time) error {
	ok, err := repo.Finish(ctx, id, status, at)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finish search")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "search is not running")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, search models.SearchQuery, eventType enums.OutboxEventType, data any, at time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateSearchQuery,
		AggregateID:   search.ID,
		Actor:         &outbox.ActorRef{UserID: search.UserID},
		Data:          data,
		OccurredAt:    at,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit search event")
	}
	return nil
}

// GetSearch loads one search with its lead count. Ownership is checked by the caller.
func (s *Service) GetSearch(ctx context.Context, searchID uint) (*Search, error) {
	search, err := s.repo.FindByID(ctx, searchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "search not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load search")
	}
	count, err := s.repo.CountLeads(ctx, searchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count leads")
	}
	return &Search{SearchQuery: *search, LeadsCount: count}, nil
}

// ListSearches returns the caller's searches, or everyone's for ScopeAll, newest first.
func (s *Service) ListSearches(ctx context.Context, userID uint, scope Scope) ([]Search, error) {
	var owner *uint
	if scope != ScopeAll {
		owner = &userID
	}
	rows, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list searches")
	}
	return s.withCounts(ctx, rows)
}

// ListStale returns running searches whose claim is older than olderThan.
func (s *Service) ListStale(ctx context.Context, olderThan time.Duration) ([]Search, error) {
	if olderThan <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staleness threshold must be positive")
	}
	cutoff := s.now().UTC().Add(-olderThan)
	rows, err := s.repo.ListRunningStartedBefore(ctx, cutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale searches")
	}
	s.metrics.SetStaleRunning(len(rows))
	return s.withCounts(ctx, rows)
}

func (s *Service) withCounts(ctx context.Context, rows []models.SearchQuery) ([]Search, error) {
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	counts, err := s.repo.CountLeadsFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count leads")
	}
	out := make([]Search, 0, len(rows))
	for _, r := range rows {
		out = append(out, Search{SearchQuery: r, LeadsCount: counts[r.ID]})
	}
	return out, nil
}

// failureMessage prefers the typed message and appends the underlying cause.
func failureMessage(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err.Error()
	}
	if cause := errors.Unwrap(typed); cause != nil {
		return typed.Message() + ": " + cause.Error()
	}
	return typed.Message()
}
