package model

import (
	"errors"
	"fmt"
	"time"
)

// ScheduleState is the closed set of lifecycle states a schedule can be in.
type ScheduleState string

const (
	ScheduleStateProposed     ScheduleState = "proposed"
	ScheduleStatePermitted    ScheduleState = "permitted"
	ScheduleStateAbsentMarked ScheduleState = "absent_marked"
	ScheduleStateDisabled     ScheduleState = "disabled"
)

// Transition names a requested change to a schedule.
type Transition string

const (
	TransitionCreate        Transition = "create"
	TransitionEditDuration  Transition = "edit_duration"
	TransitionApprove       Transition = "approve"
	TransitionMarkAbsent    Transition = "mark_absent"
	TransitionRevertAbsence Transition = "revert_absence"
	TransitionDisable       Transition = "disable"
	TransitionDelete        Transition = "delete"
)

var (
	// ErrIllegalTransition is returned when a transition is not defined for the current state.
	ErrIllegalTransition = errors.New("illegal schedule transition")
	// ErrInvalidFlags is returned when persisted flags do not decode to a known state.
	ErrInvalidFlags = errors.New("invalid schedule flags")
)

// Schedule is one proposed or confirmed attendance window.
type Schedule struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"type:varchar(64);not null;index"`
	CreatedBy string    `json:"created_by" gorm:"type:varchar(64);not null;index"`
	StartTime time.Time `json:"start_time" gorm:"not null;index"`
	EndTime   time.Time `json:"end_time" gorm:"not null"`
	Permitted bool      `json:"permitted" gorm:"not null;default:false"`
	Absent    bool      `json:"absent" gorm:"not null;default:false"`
	Enable    bool      `json:"enable" gorm:"not null;default:true"`
}

// TableName pins the table name used by the schema.
func (Schedule) TableName() string { return "schedules" }

// NewSchedule returns a schedule in the Proposed state.
func NewSchedule(username, createdBy string, start, end time.Time) Schedule {
	return Schedule{
		Username:  username,
		CreatedBy: createdBy,
		StartTime: start,
		EndTime:   end,
		Enable:    true,
	}
}

// State decodes the persisted flags into a lifecycle state.
func (s Schedule) State() (ScheduleState, error) {
	if s.Absent && !s.Permitted {
		return "", fmt.Errorf("%w: schedule %d is absent but not permitted", ErrInvalidFlags, s.ID)
	}
	switch {
	case !s.Enable:
		return ScheduleStateDisabled, nil
	case s.Absent:
		return ScheduleStateAbsentMarked, nil
	case s.Permitted:
		return ScheduleStatePermitted, nil
	default:
		return ScheduleStateProposed, nil
	}
}

// Next returns the state reached by applying t, or ErrIllegalTransition.
// Delete is only defined for schedules that were never permitted, which the
// state alone cannot express for Disabled rows; see Schedule.Deletable.
func (st ScheduleState) Next(t Transition) (ScheduleState, error) {
	switch {
	case st == ScheduleStateProposed && t == TransitionEditDuration:
		return ScheduleStateProposed, nil
	case st == ScheduleStateProposed && t == TransitionApprove:
		return ScheduleStatePermitted, nil
	case st == ScheduleStatePermitted && t == TransitionMarkAbsent:
		return ScheduleStateAbsentMarked, nil
	case st == ScheduleStateAbsentMarked && t == TransitionRevertAbsence:
		return ScheduleStatePermitted, nil
	case (st == ScheduleStateProposed || st == ScheduleStateAbsentMarked) && t == TransitionDisable:
		return ScheduleStateDisabled, nil
	}
	return st, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, t, st)
}

// Deletable reports whether the row may still be removed. Approval leaves an
// audit trail, so only never-permitted schedules can be deleted.
func (s Schedule) Deletable() bool {
	return !s.Permitted
}

// Apply returns a copy of s with the flags of the target state. The receiver
// is not modified.
func (s Schedule) Apply(t Transition) (Schedule, error) {
	if t == TransitionDelete {
		if !s.Deletable() {
			return s, fmt.Errorf("%w: delete of permitted schedule %d", ErrIllegalTransition, s.ID)
		}
		return s, nil
	}
	from, err := s.State()
	if err != nil {
		return s, err
	}
	to, err := from.Next(t)
	if err != nil {
		return s, err
	}
	next := s
	switch to {
	case ScheduleStatePermitted:
		next.Permitted, next.Absent = true, false
	case ScheduleStateAbsentMarked:
		next.Permitted, next.Absent = true, true
	case ScheduleStateDisabled:
		next.Enable = false
	}
	return next, nil
}

// StateName returns the decoded state, or "invalid" for undecodable flags.
func (s Schedule) StateName() string {
	st, err := s.State()
	if err != nil {
		return "invalid"
	}
	return string(st)
}
