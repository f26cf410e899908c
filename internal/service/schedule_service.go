package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "kintai/internal/errors"
	"kintai/internal/logging"
	"kintai/internal/metrics"
	"kintai/internal/model"
	"kintai/internal/policy"
	"kintai/internal/repository"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ScheduleService runs the schedule lifecycle. Every mutation loads a
// snapshot, checks the policy, and writes conditionally inside a single
// transaction.
type ScheduleService interface {
	Create(ctx context.Context, actor policy.Actor, username string, start, end time.Time) (*model.Schedule, error)
	Get(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error)
	List(ctx context.Context, actor policy.Actor, q repository.ScheduleQuery) ([]model.Schedule, error)
	// ListForExport returns every schedule overlapping [start, end). Admin only.
	ListForExport(ctx context.Context, actor policy.Actor, start, end time.Time) ([]model.Schedule, error)
	EditDuration(ctx context.Context, actor policy.Actor, id int64, start, end time.Time) (*model.Schedule, error)
	Approve(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error)
	MarkAbsent(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error)
	RevertAbsence(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error)
	Disable(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error)
	Delete(ctx context.Context, actor policy.Actor, id int64) error
}

type scheduleService struct {
	repo  repository.ScheduleRepository
	users repository.UserRepository
	log   *zap.Logger
}

// NewScheduleService creates a new schedule service.
func NewScheduleService(repo repository.ScheduleRepository, users repository.UserRepository, log *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, users: users, log: logging.OrNop(log)}
}

func (s *scheduleService) Create(ctx context.Context, actor policy.Actor, username string, start, end time.Time) (sched *model.Schedule, err error) {
	defer func() { s.observe(model.TransitionCreate, err) }()

	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	if !policy.CanCreate(actor, username) {
		return nil, apperrors.ErrForbidden
	}
	if _, err := s.users.FindByID(ctx, username); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %q", apperrors.ErrValidation, username)
		}
		return nil, err
	}

	created := model.NewSchedule(username, actor.ID, start, end)
	if err := s.repo.Create(ctx, &created); err != nil {
		return nil, err
	}
	s.log.Info("schedule created",
		zap.Int64("schedule_id", created.ID),
		zap.String("actor", actor.ID),
		zap.String("username", username),
	)
	return &created, nil
}

// Get hides schedules the actor may not view behind ErrNotFound.
func (s *scheduleService) Get(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error) {
	sched, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, *sched) {
		return nil, apperrors.ErrNotFound
	}
	return sched, nil
}

func (s *scheduleService) List(ctx context.Context, actor policy.Actor, q repository.ScheduleQuery) ([]model.Schedule, error) {
	if q.RangeStart != nil && q.RangeEnd != nil && !q.RangeEnd.After(*q.RangeStart) {
		return nil, fmt.Errorf("%w: end must be after start", apperrors.ErrValidation)
	}
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", apperrors.ErrValidation)
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultListLimit
	case q.Limit > MaxListLimit:
		q.Limit = MaxListLimit
	}
	q.VisibleTo = ""
	if !actor.IsAdmin {
		q.VisibleTo = actor.ID
	}
	return s.repo.Query(ctx, q)
}

func (s *scheduleService) ListForExport(ctx context.Context, actor policy.Actor, start, end time.Time) ([]model.Schedule, error) {
	if !actor.IsAdmin {
		return nil, apperrors.ErrForbidden
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	return s.repo.Query(ctx, repository.ScheduleQuery{RangeStart: &start, RangeEnd: &end})
}

func (s *scheduleService) EditDuration(ctx context.Context, actor policy.Actor, id int64, start, end time.Time) (*model.Schedule, error) {
	if err := validateRange(start, end); err != nil {
		s.observe(model.TransitionEditDuration, err)
		return nil, err
	}
	return s.transition(ctx, actor, id, model.TransitionEditDuration, map[string]interface{}{
		"start_time": start,
		"end_time":   end,
	})
}

func (s *scheduleService) Approve(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error) {
	return s.transition(ctx, actor, id, model.TransitionApprove, nil)
}

func (s *scheduleService) MarkAbsent(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error) {
	return s.transition(ctx, actor, id, model.TransitionMarkAbsent, nil)
}

func (s *scheduleService) RevertAbsence(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error) {
	return s.transition(ctx, actor, id, model.TransitionRevertAbsence, nil)
}

func (s *scheduleService) Disable(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error) {
	return s.transition(ctx, actor, id, model.TransitionDisable, nil)
}

func (s *scheduleService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	_, err := s.transition(ctx, actor, id, model.TransitionDelete, nil)
	return err
}

// transition applies t to schedule id. extra holds non-flag columns to write
// alongside the new state. Returns nil for a successful delete.
func (s *scheduleService) transition(ctx context.Context, actor policy.Actor, id int64, t model.Transition, extra map[string]interface{}) (result *model.Schedule, err error) {
	defer func() { s.observe(t, err) }()

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.ScheduleRepository) error {
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrForbidden
			}
			return err
		}
		if _, err := current.State(); err != nil {
			s.log.Error("schedule flags violate invariant", zap.Int64("schedule_id", id), zap.Error(err))
			return fmt.Errorf("%w: %v", apperrors.ErrStoreFailure, err)
		}
		if !policy.CanTransition(actor, *current, t) {
			return apperrors.ErrForbidden
		}
		next, err := current.Apply(t)
		if err != nil {
			return err
		}

		guard := policy.Guard(actor, *current, t)
		var n int64
		if t == model.TransitionDelete {
			n, err = repo.ConditionalDelete(ctx, guard)
		} else {
			fields := map[string]interface{}{
				"permitted": next.Permitted,
				"absent":    next.Absent,
				"enable":    next.Enable,
			}
			for k, v := range extra {
				fields[k] = v
			}
			n, err = repo.ConditionalUpdate(ctx, guard, fields)
		}
		if err != nil {
			return err
		}
		switch {
		case n == 0:
			return apperrors.ErrConflict
		case n > 1:
			s.log.Error("conditional write matched more than one row",
				zap.Int64("schedule_id", id),
				zap.String("transition", string(t)),
				zap.Int64("rows", n),
			)
			return fmt.Errorf("%w: %d rows matched schedule %d", apperrors.ErrStoreFailure, n, id)
		}

		if t == model.TransitionDelete {
			return nil
		}
		result, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("schedule transition",
		zap.Int64("schedule_id", id),
		zap.String("transition", string(t)),
		zap.String("actor", actor.ID),
	)
	return result, nil
}

func (s *scheduleService) observe(t model.Transition, err error) {
	metrics.ObserveTransition(string(t), outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, apperrors.ErrForbidden), errors.Is(err, apperrors.ErrIllegalTransition):
		return metrics.OutcomeForbidden
	case errors.Is(err, apperrors.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, apperrors.ErrValidation):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end are required", apperrors.ErrValidation)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end must be after start", apperrors.ErrValidation)
	}
	return nil
}
