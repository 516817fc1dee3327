// Package controller implements the core business logic (service layer)
// for consulting engagements, orchestrating store operations, lifecycle
// transitions and event production.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/consulting/internal/engagement/auth"
	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/events"
	"github.com/gartstein/consulting/internal/engagement/lifecycle"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/gartstein/consulting/internal/engagement/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, engagement *models.Engagement)
}

// Repository defines the storage interface for engagements and members.
type Repository interface {
	CreateEngagement(ctx context.Context, engagement *models.Engagement) error
	GetEngagement(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	SaveEngagement(ctx context.Context, engagement *models.Engagement, expectedVersion int64) error
	ListEngagements(ctx context.Context, filter models.EngagementFilter) ([]models.Engagement, error)
	CreateMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error)
	ListMembers(ctx context.Context) ([]models.Member, error)
	LoadSizeDeadlinePolicy(ctx context.Context) (policy.DeadlinePolicy, error)
	Close() error
}

// Clock supplies the current time to lifecycle transitions.
type Clock func() time.Time

// EngagementService provides methods to manage engagements via repository
// operations, lifecycle transitions and event production.
type EngagementService struct {
	repo       Repository
	producer   EventProducer
	calculator *policy.Calculator
	logger     *zap.Logger
	now        Clock
}

// Option customises an EngagementService.
type Option func(*EngagementService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *EngagementService) { s.now = c }
}

// NewEngagementService constructs an EngagementService with a repository,
// an event producer, a commission calculator and a logger.
func NewEngagementService(
	repo Repository,
	producer EventProducer,
	calculator *policy.Calculator,
	logger *zap.Logger,
	opts ...Option,
) *EngagementService {
	s := &EngagementService{
		repo:       repo,
		producer:   producer,
		calculator: calculator,
		logger:     logger.Named("engagement_service"),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	// Postgres keeps microseconds; stored timestamps must read back unchanged.
	clock := s.now
	s.now = func() time.Time { return clock().Truncate(time.Microsecond) }
	return s
}

// CreateEngagement validates and registers a new engagement in progress.
// The input is left untouched; the stored record is returned.
func (s *EngagementService) CreateEngagement(ctx context.Context, in *models.Engagement) (*models.Engagement, error) {
	en := in.Clone()
	en.Client = strings.TrimSpace(en.Client)
	if en.Client == "" || len(en.Client) > 200 {
		return nil, fmt.Errorf("%w: invalid client", e.ErrValidation)
	}
	typ, err := models.ParseType(string(en.Type))
	if err != nil {
		return nil, err
	}
	size, err := models.ParseSize(string(en.Size))
	if err != nil {
		return nil, err
	}
	en.Type, en.Size = typ, size
	if en.Value.IsNegative() {
		return nil, fmt.Errorf("%w: value must not be negative", e.ErrValidation)
	}
	if !en.Value.Equal(en.Value.Round(2)) {
		return nil, fmt.Errorf("%w: value has more than two decimal places", e.ErrValidation)
	}
	en.Value = en.Value.Round(2)
	if en.StartDate.IsZero() || en.PlannedEndDate.IsZero() {
		return nil, fmt.Errorf("%w: start and planned end dates are required", e.ErrValidation)
	}
	en.StartDate = models.DateOnly(en.StartDate)
	en.PlannedEndDate = models.DateOnly(en.PlannedEndDate)
	if en.PlannedEndDate.Before(en.StartDate) {
		return nil, fmt.Errorf("%w: planned end date is before start date", e.ErrValidation)
	}
	if en.PlannedDurationDays == 0 {
		en.PlannedDurationDays = models.DaysBetween(en.StartDate, en.PlannedEndDate)
	}
	if en.PlannedDurationDays < 1 {
		return nil, fmt.Errorf("%w: planned duration must be at least one day", e.ErrValidation)
	}

	if en.ConsultantID != nil {
		if _, err := s.repo.GetMember(ctx, *en.ConsultantID); err != nil {
			if errors.Is(err, e.ErrNotFound) {
				return nil, fmt.Errorf("%w: consultant %s does not exist", e.ErrValidation, en.ConsultantID)
			}
			return nil, fmt.Errorf("failed to check consultant: %w", err)
		}
	}

	now := s.now()
	en.ID = uuid.New()
	en.Status = models.StatusInProgress
	en.PauseStartedAt = nil
	en.PausedDaysTotal = 0
	en.CreatedAt = now
	en.UpdatedAt = now
	en.Version = 1

	if err := s.repo.CreateEngagement(ctx, en); err != nil {
		return nil, fmt.Errorf("failed to create engagement: %w", err)
	}
	s.producer.Produce(events.EngagementCreated, en)
	return en, nil
}

// GetEngagement retrieves an engagement by ID, returning an error if not found.
func (s *EngagementService) GetEngagement(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	en, err := s.repo.GetEngagement(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get engagement: %w", err)
	}
	return en, nil
}

func (s *EngagementService) ListEngagements(ctx context.Context, filter models.EngagementFilter) ([]models.Engagement, error) {
	list, err := s.repo.ListEngagements(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagements: %w", err)
	}
	return list, nil
}

// Pause opens a pause window on an in-progress engagement.
func (s *EngagementService) Pause(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	return s.transition(ctx, id, events.EngagementPaused, func(en *models.Engagement, now time.Time) error {
		return lifecycle.Pause(en, now)
	})
}

// Resume closes the pause window and accumulates its days.
func (s *EngagementService) Resume(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	return s.transition(ctx, id, events.EngagementResumed, func(en *models.Engagement, now time.Time) error {
		return lifecycle.Resume(en, now)
	})
}

// Cancel terminates the engagement without computing a commission.
func (s *EngagementService) Cancel(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	return s.transition(ctx, id, events.EngagementCancelled, func(en *models.Engagement, now time.Time) error {
		return lifecycle.Cancel(en, now)
	})
}

// Finalize completes the engagement, fixing its deadline outcome and commission.
func (s *EngagementService) Finalize(ctx context.Context, id uuid.UUID, in lifecycle.FinalizeInput) (*models.Engagement, error) {
	if err := policy.ValidateRating(in.Rating); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, events.EngagementFinalized, func(en *models.Engagement, now time.Time) error {
		deadlines, err := s.repo.LoadSizeDeadlinePolicy(ctx)
		if err != nil {
			return fmt.Errorf("failed to load deadline policy: %w", err)
		}
		f := lifecycle.Finalizer{Deadlines: deadlines, Commission: s.calculator}
		return f.Finalize(en, in, now)
	})
}

// transition loads the current engagement, applies fn and saves it against
// the loaded version. A concurrent modification is retried once with a fresh
// copy; any other failure is returned as is.
func (s *EngagementService) transition(
	ctx context.Context,
	id uuid.UUID,
	eventType events.EventType,
	fn func(*models.Engagement, time.Time) error,
) (*models.Engagement, error) {
	var saved *models.Engagement
	attempt := 0

	op := func() error {
		attempt++
		current, err := s.repo.GetEngagement(ctx, id)
		if err != nil {
			if errors.Is(err, e.ErrNotFound) {
				return backoff.Permanent(err)
			}
			return backoff.Permanent(fmt.Errorf("failed to get engagement: %w", err))
		}

		expected := current.Version
		if err := fn(current, s.now()); err != nil {
			return backoff.Permanent(err)
		}

		if err := s.repo.SaveEngagement(ctx, current, expected); err != nil {
			if errors.Is(err, e.ErrConcurrentModification) {
				s.logger.Warn("Concurrent modification, reloading",
					zap.String("engagement_id", id.String()),
					zap.Int("attempt", attempt),
				)
				return err
			}
			if errors.Is(err, e.ErrNotFound) {
				return backoff.Permanent(err)
			}
			return backoff.Permanent(fmt.Errorf("failed to save engagement: %w", err))
		}
		saved = current
		return nil
	}

	retry := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1), ctx)
	if err := backoff.Retry(op, retry); err != nil {
		return nil, err
	}

	s.logger.Info("Engagement transitioned",
		zap.String("engagement_id", saved.ID.String()),
		zap.String("event_type", string(eventType)),
		zap.String("status", string(saved.Status)),
		zap.Int("paused_days_total", saved.PausedDaysTotal),
		zap.String("actor", auth.SubjectFromContext(ctx)),
	)
	s.producer.Produce(eventType, saved)
	return saved, nil
}
