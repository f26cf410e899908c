package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_State(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		want     ScheduleState
		wantErr  bool
	}{
		{name: "proposed", schedule: Schedule{Enable: true}, want: ScheduleStateProposed},
		{name: "permitted", schedule: Schedule{Enable: true, Permitted: true}, want: ScheduleStatePermitted},
		{name: "absent marked", schedule: Schedule{Enable: true, Permitted: true, Absent: true}, want: ScheduleStateAbsentMarked},
		{name: "disabled from proposed", schedule: Schedule{}, want: ScheduleStateDisabled},
		{name: "disabled from absent", schedule: Schedule{Permitted: true, Absent: true}, want: ScheduleStateDisabled},
		{name: "absent without permit", schedule: Schedule{Enable: true, Absent: true}, wantErr: true},
		{name: "disabled absent without permit", schedule: Schedule{Absent: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.schedule.State()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFlags)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleState_Next(t *testing.T) {
	states := []ScheduleState{ScheduleStateProposed, ScheduleStatePermitted, ScheduleStateAbsentMarked, ScheduleStateDisabled}
	transitions := []Transition{TransitionEditDuration, TransitionApprove, TransitionMarkAbsent, TransitionRevertAbsence, TransitionDisable}

	legal := map[ScheduleState]map[Transition]ScheduleState{
		ScheduleStateProposed: {
			TransitionEditDuration: ScheduleStateProposed,
			TransitionApprove:      ScheduleStatePermitted,
			TransitionDisable:      ScheduleStateDisabled,
		},
		ScheduleStatePermitted: {
			TransitionMarkAbsent: ScheduleStateAbsentMarked,
		},
		ScheduleStateAbsentMarked: {
			TransitionRevertAbsence: ScheduleStatePermitted,
			TransitionDisable:       ScheduleStateDisabled,
		},
	}

	for _, from := range states {
		for _, tr := range transitions {
			got, err := from.Next(tr)
			want, ok := legal[from][tr]
			if ok {
				assert.NoError(t, err, "%s via %s", from, tr)
				assert.Equal(t, want, got, "%s via %s", from, tr)
			} else {
				assert.True(t, errors.Is(err, ErrIllegalTransition), "%s via %s should be illegal", from, tr)
				assert.Equal(t, from, got)
			}
		}
	}
}

func TestSchedule_ApplyKeepsAbsentImpliesPermitted(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := NewSchedule("alice", "alice", start, start.Add(8*time.Hour))

	sequence := []Transition{TransitionApprove, TransitionMarkAbsent, TransitionRevertAbsence, TransitionMarkAbsent, TransitionDisable}
	for _, tr := range sequence {
		next, err := s.Apply(tr)
		require.NoError(t, err, tr)
		if next.Absent {
			assert.True(t, next.Permitted, "absent implies permitted after %s", tr)
		}
		s = next
	}
	assert.False(t, s.Enable)

	for _, tr := range []Transition{TransitionEditDuration, TransitionApprove, TransitionMarkAbsent, TransitionRevertAbsence, TransitionDisable} {
		next, err := s.Apply(tr)
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, s, next)
	}
}

func TestSchedule_ApplyDelete(t *testing.T) {
	proposed := Schedule{ID: 1, Enable: true}
	_, err := proposed.Apply(TransitionDelete)
	assert.NoError(t, err)

	permitted := Schedule{ID: 2, Enable: true, Permitted: true}
	_, err = permitted.Apply(TransitionDelete)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}
