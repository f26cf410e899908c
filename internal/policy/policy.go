// Package policy decides who may do what to a schedule or user. It is pure:
// no I/O, no clock, and the same inputs always give the same answer.
package policy

import (
	"kintai/internal/model"
	"kintai/internal/repository"
)

// Actor is an authenticated caller.
type Actor struct {
	ID      string
	IsAdmin bool
}

// CanCreate reports whether actor may propose a schedule for username.
func CanCreate(actor Actor, username string) bool {
	return actor.IsAdmin || actor.ID == username
}

// CanTransition reports whether actor may apply t to s.
func CanTransition(actor Actor, s model.Schedule, t model.Transition) bool {
	switch t {
	case model.TransitionCreate:
		return CanCreate(actor, s.Username)
	case model.TransitionEditDuration:
		return actor.ID == s.CreatedBy && !s.Permitted && !s.Absent && s.Enable
	case model.TransitionApprove:
		return isProposed(s) && (adminApproves(actor, s) || subjectApproves(actor, s))
	case model.TransitionMarkAbsent:
		return actor.ID == s.Username && s.Permitted && !s.Absent && s.Enable
	case model.TransitionRevertAbsence:
		return actor.IsAdmin && s.Permitted && s.Absent && s.Enable
	case model.TransitionDisable:
		return s.Enable && (subjectWithdraws(actor, s) || adminDisablesAbsence(actor, s))
	case model.TransitionDelete:
		return actor.ID == s.CreatedBy && !s.Permitted
	}
	return false
}

// CanView reports whether actor may read s.
func CanView(actor Actor, s model.Schedule) bool {
	return actor.IsAdmin || actor.ID == s.Username || actor.ID == s.CreatedBy
}

// CanManageUsers covers listing and creating users.
func CanManageUsers(actor Actor) bool {
	return actor.IsAdmin
}

// CanDeleteUser reports whether actor may delete target. Admins may remove
// themselves but no other admin.
func CanDeleteUser(actor Actor, target model.User) bool {
	return actor.IsAdmin && (!target.IsAdmin || target.ID == actor.ID)
}

// Guard restates the branch of the rule that allowed t as a write predicate,
// so a concurrent change that would have denied the request also fails the
// write. Call it only after CanTransition returned true.
func Guard(actor Actor, s model.Schedule, t model.Transition) repository.Guard {
	g := repository.Guard{ID: s.ID}
	switch t {
	case model.TransitionEditDuration:
		g.CreatedBy = actor.ID
		g.Permitted, g.Absent, g.Enable = repository.Is(false), repository.Is(false), repository.Is(true)
	case model.TransitionApprove:
		g.Username, g.CreatedBy = s.Username, s.CreatedBy
		g.Permitted, g.Absent, g.Enable = repository.Is(false), repository.Is(false), repository.Is(true)
	case model.TransitionMarkAbsent:
		g.Username = actor.ID
		g.Permitted, g.Absent, g.Enable = repository.Is(true), repository.Is(false), repository.Is(true)
	case model.TransitionRevertAbsence:
		g.Permitted, g.Absent, g.Enable = repository.Is(true), repository.Is(true), repository.Is(true)
	case model.TransitionDisable:
		if subjectWithdraws(actor, s) {
			g.Username = actor.ID
			g.Permitted, g.Absent = repository.Is(false), repository.Is(false)
		} else {
			g.Permitted, g.Absent = repository.Is(true), repository.Is(true)
		}
		g.Enable = repository.Is(true)
	case model.TransitionDelete:
		g.CreatedBy = actor.ID
		g.Permitted = repository.Is(false)
	}
	return g
}

func isProposed(s model.Schedule) bool {
	return s.Enable && !s.Permitted && !s.Absent
}

// An admin approves a schedule someone proposed for themselves.
func adminApproves(actor Actor, s model.Schedule) bool {
	return actor.IsAdmin && s.Username == s.CreatedBy && actor.ID != s.Username
}

// The subject approves a schedule someone else proposed for them.
func subjectApproves(actor Actor, s model.Schedule) bool {
	return actor.ID == s.Username && actor.ID != s.CreatedBy
}

func subjectWithdraws(actor Actor, s model.Schedule) bool {
	return actor.ID == s.Username && !s.Permitted && !s.Absent
}

func adminDisablesAbsence(actor Actor, s model.Schedule) bool {
	return actor.IsAdmin && s.Permitted && s.Absent
}
