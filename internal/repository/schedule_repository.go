package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"kintai/internal/model"
)

// Guard is the predicate a conditional write must still match at write time.
// Empty strings and nil flags are not constrained.
type Guard struct {
	ID        int64
	Username  string
	CreatedBy string
	Permitted *bool
	Absent    *bool
	Enable    *bool
}

// Is returns a pointer to b for use in Guard flag fields.
func Is(b bool) *bool {
	return &b
}

func (g Guard) apply(db *gorm.DB) *gorm.DB {
	db = db.Where("id = ?", g.ID)
	if g.Username != "" {
		db = db.Where("username = ?", g.Username)
	}
	if g.CreatedBy != "" {
		db = db.Where("created_by = ?", g.CreatedBy)
	}
	if g.Permitted != nil {
		db = db.Where("permitted = ?", *g.Permitted)
	}
	if g.Absent != nil {
		db = db.Where("absent = ?", *g.Absent)
	}
	if g.Enable != nil {
		db = db.Where("enable = ?", *g.Enable)
	}
	return db
}

// Matches reports whether s satisfies the guard. Used by in-memory stores.
func (g Guard) Matches(s model.Schedule) bool {
	switch {
	case s.ID != g.ID:
		return false
	case g.Username != "" && s.Username != g.Username:
		return false
	case g.CreatedBy != "" && s.CreatedBy != g.CreatedBy:
		return false
	case g.Permitted != nil && s.Permitted != *g.Permitted:
		return false
	case g.Absent != nil && s.Absent != *g.Absent:
		return false
	case g.Enable != nil && s.Enable != *g.Enable:
		return false
	}
	return true
}

// ScheduleQuery filters a schedule listing. The time range is half-open:
// a schedule matches when it overlaps [RangeStart, RangeEnd).
type ScheduleQuery struct {
	Username   string
	VisibleTo  string
	RangeStart *time.Time
	RangeEnd   *time.Time
	Offset     int
	Limit      int
}

// ScheduleRepository defines schedule persistence operations.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	FindByID(ctx context.Context, id int64) (*model.Schedule, error)
	// ConditionalUpdate writes fields to the row matching guard and returns
	// the number of rows affected.
	ConditionalUpdate(ctx context.Context, guard Guard, fields map[string]interface{}) (int64, error)
	ConditionalDelete(ctx context.Context, guard Guard) (int64, error)
	Query(ctx context.Context, q ScheduleQuery) ([]model.Schedule, error)
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo ScheduleRepository) error) error
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

// Create inserts a schedule and fills in its ID.
func (r *scheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

// FindByID finds a schedule by ID.
func (r *scheduleRepository) FindByID(ctx context.Context, id int64) (*model.Schedule, error) {
	var schedule model.Schedule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error; err != nil {
		return nil, storeErr(err)
	}
	return &schedule, nil
}

func (r *scheduleRepository) ConditionalUpdate(ctx context.Context, guard Guard, fields map[string]interface{}) (int64, error) {
	res := guard.apply(r.db.WithContext(ctx).Model(&model.Schedule{})).Updates(fields)
	if res.Error != nil {
		return 0, storeErr(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *scheduleRepository) ConditionalDelete(ctx context.Context, guard Guard) (int64, error) {
	res := guard.apply(r.db.WithContext(ctx)).Delete(&model.Schedule{})
	if res.Error != nil {
		return 0, storeErr(res.Error)
	}
	return res.RowsAffected, nil
}

// Query lists schedules newest first. A zero Limit is unbounded.
func (r *scheduleRepository) Query(ctx context.Context, q ScheduleQuery) ([]model.Schedule, error) {
	db := r.db.WithContext(ctx).Model(&model.Schedule{})
	if q.Username != "" {
		db = db.Where("username = ?", q.Username)
	}
	if q.VisibleTo != "" {
		db = db.Where("username = ? OR created_by = ?", q.VisibleTo, q.VisibleTo)
	}
	if q.RangeStart != nil {
		db = db.Where("end_time > ?", *q.RangeStart)
	}
	if q.RangeEnd != nil {
		db = db.Where("start_time < ?", *q.RangeEnd)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var schedules []model.Schedule
	if err := db.Order("start_time DESC").Order("id DESC").Find(&schedules).Error; err != nil {
		return nil, storeErr(err)
	}
	return schedules, nil
}

// WithTransaction runs fn in a database transaction. Any error returned by fn,
// or a panic, rolls back.
func (r *scheduleRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo ScheduleRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &scheduleRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
