package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	apperrors "kintai/internal/errors"
	"kintai/internal/model"
	"kintai/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id, currentHash, newHash string) error {
	args := m.Called(ctx, id, currentHash, newHash)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsRevoked(ctx context.Context, tokenID string) bool {
	args := m.Called(ctx, tokenID)
	return args.Bool(0)
}

// memScheduleRepository is an in-memory ScheduleRepository. Conditional
// writes are atomic under mu, which is all the service relies on.
type memScheduleRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Schedule

	// beforeWrite, when set, runs before every conditional write without
	// holding mu.
	beforeWrite func()
	// extraMatches forces conditional writes to report more rows.
	extraMatches int64
}

func newMemScheduleRepository() *memScheduleRepository {
	return &memScheduleRepository{rows: map[int64]model.Schedule{}}
}

func (r *memScheduleRepository) Create(_ context.Context, s *model.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	r.rows[s.ID] = *s
	return nil
}

func (r *memScheduleRepository) FindByID(_ context.Context, id int64) (*model.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (r *memScheduleRepository) ConditionalUpdate(_ context.Context, g repository.Guard, fields map[string]interface{}) (int64, error) {
	if r.beforeWrite != nil {
		r.beforeWrite()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[g.ID]
	if !ok || !g.Matches(s) {
		return 0, nil
	}
	for k, v := range fields {
		switch k {
		case "permitted":
			s.Permitted = v.(bool)
		case "absent":
			s.Absent = v.(bool)
		case "enable":
			s.Enable = v.(bool)
		case "start_time":
			s.StartTime = v.(time.Time)
		case "end_time":
			s.EndTime = v.(time.Time)
		}
	}
	r.rows[g.ID] = s
	return 1 + r.extraMatches, nil
}

func (r *memScheduleRepository) ConditionalDelete(_ context.Context, g repository.Guard) (int64, error) {
	if r.beforeWrite != nil {
		r.beforeWrite()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[g.ID]
	if !ok || !g.Matches(s) {
		return 0, nil
	}
	delete(r.rows, g.ID)
	return 1, nil
}

func (r *memScheduleRepository) Query(_ context.Context, q repository.ScheduleQuery) ([]model.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Schedule
	for _, s := range r.rows {
		if q.Username != "" && s.Username != q.Username {
			continue
		}
		if q.VisibleTo != "" && s.Username != q.VisibleTo && s.CreatedBy != q.VisibleTo {
			continue
		}
		if q.RangeStart != nil && !s.EndTime.After(*q.RangeStart) {
			continue
		}
		if q.RangeEnd != nil && !s.StartTime.Before(*q.RangeEnd) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// WithTransaction has no isolation; conditional writes carry the guarantees.
func (r *memScheduleRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.ScheduleRepository) error) error {
	return fn(ctx, r)
}

func (r *memScheduleRepository) get(id int64) model.Schedule {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}
