package timesheet

import (
	"slices"
	"time"
)

// Action is a workflow operation.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionApproveForeman  Action = "approve_foreman"
	ActionApproveIncharge Action = "approve_incharge"
	ActionApproveChecking Action = "approve_checking"
	ActionApproveManager  Action = "approve_manager"
	ActionReject          Action = "reject"
	ActionCancel          Action = "cancel"
)

// transitions is the whole workflow graph: current status x action -> next status.
// A missing entry is an illegal transition.
var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSubmit: StatusSubmitted,
		ActionCancel: StatusCancelled,
	},
	StatusPending: {
		ActionCancel: StatusCancelled,
	},
	StatusSubmitted: {
		ActionApproveForeman: StatusForemanApproved,
		ActionReject:         StatusRejected,
	},
	StatusForemanApproved: {
		ActionApproveIncharge: StatusInchargeApproved,
		ActionReject:          StatusRejected,
	},
	StatusInchargeApproved: {
		ActionApproveChecking: StatusCheckingApproved,
		ActionReject:          StatusRejected,
	},
	StatusCheckingApproved: {
		ActionApproveManager: StatusManagerApproved,
		ActionReject:         StatusRejected,
	},
	StatusRejected: {
		ActionSubmit: StatusSubmitted,
		ActionCancel: StatusCancelled,
	},
}

var approveActions = map[Stage]Action{
	StageForeman:  ActionApproveForeman,
	StageIncharge: ActionApproveIncharge,
	StageChecking: ActionApproveChecking,
	StageManager:  ActionApproveManager,
}

// NextStatus looks up the transition table.
func NextStatus(from Status, action Action) (Status, bool) {
	next, ok := transitions[from][action]
	return next, ok
}

// ApproveAction returns the approval action of a stage.
func ApproveAction(stage Stage) (Action, bool) {
	a, ok := approveActions[stage]
	return a, ok
}

// Every transition method below returns a new value and true on success, or
// the receiver unchanged and false when the transition is not allowed.

func (t Timesheet) Submit(actorID string, at time.Time) (Timesheet, bool) {
	return t.apply(ActionSubmit, actorID, nil, nil, at, func(next *Timesheet) {
		next.SubmittedAt = &at
		// rejection_stage only describes the current rejection; history stays in the events
		next.RejectionStage = nil
	})
}

func (t Timesheet) ApproveByForeman(approverID string, notes *string, at time.Time) (Timesheet, bool) {
	return t.Approve(StageForeman, approverID, notes, at)
}

func (t Timesheet) ApproveByIncharge(approverID string, notes *string, at time.Time) (Timesheet, bool) {
	return t.Approve(StageIncharge, approverID, notes, at)
}

func (t Timesheet) ApproveByChecking(approverID string, notes *string, at time.Time) (Timesheet, bool) {
	return t.Approve(StageChecking, approverID, notes, at)
}

func (t Timesheet) ApproveByManager(approverID string, notes *string, at time.Time) (Timesheet, bool) {
	return t.Approve(StageManager, approverID, notes, at)
}

// Approve runs the approval of the given stage.
func (t Timesheet) Approve(stage Stage, approverID string, notes *string, at time.Time) (Timesheet, bool) {
	action, ok := ApproveAction(stage)
	if !ok {
		return t, false
	}
	return t.apply(action, approverID, &stage, notes, at, func(next *Timesheet) {
		by := approverID
		switch stage {
		case StageForeman:
			next.ForemanApprovalBy, next.ForemanApprovalAt = &by, &at
			next.ForemanApprovalNotes = keepNotes(next.ForemanApprovalNotes, notes)
		case StageIncharge:
			next.InchargeApprovalBy, next.InchargeApprovalAt = &by, &at
			next.InchargeApprovalNotes = keepNotes(next.InchargeApprovalNotes, notes)
		case StageChecking:
			next.CheckingApprovalBy, next.CheckingApprovalAt = &by, &at
			next.CheckingApprovalNotes = keepNotes(next.CheckingApprovalNotes, notes)
		case StageManager:
			next.ManagerApprovalBy, next.ManagerApprovalAt = &by, &at
			next.ManagerApprovalNotes = keepNotes(next.ManagerApprovalNotes, notes)
		}
	})
}

// keepNotes never clears notes left by an earlier approval of the same stage.
func keepNotes(prev, notes *string) *string {
	if notes == nil {
		return prev
	}
	return notes
}

// Reject moves the timesheet to rejected. stage names the reviewer step
// that rejected it and must be valid.
func (t Timesheet) Reject(rejectorID string, reason string, stage Stage, at time.Time) (Timesheet, bool) {
	if !stage.IsValid() {
		return t, false
	}
	return t.apply(ActionReject, rejectorID, &stage, &reason, at, func(next *Timesheet) {
		by := rejectorID
		next.RejectedBy = &by
		next.RejectedAt = &at
		next.RejectionReason = &reason
		next.RejectionStage = &stage
	})
}

// Cancel withdraws a timesheet that has not entered review.
func (t Timesheet) Cancel(actorID string, reason *string, at time.Time) (Timesheet, bool) {
	return t.apply(ActionCancel, actorID, nil, reason, at, func(next *Timesheet) {
		next.RejectionStage = nil
	})
}

func (t Timesheet) apply(action Action, actorID string, stage *Stage, notes *string, at time.Time, mutate func(next *Timesheet)) (Timesheet, bool) {
	to, ok := NextStatus(t.Status, action)
	if !ok {
		return t, false
	}

	next := t
	next.Status = to
	mutate(&next)
	next.ApprovalEvents = append(slices.Clip(t.ApprovalEvents), ApprovalEvent{
		TimesheetID: t.ID,
		Action:      action,
		Stage:       stage,
		ActorID:     actorID,
		Notes:       notes,
		FromStatus:  t.Status,
		ToStatus:    to,
		OccurredAt:  at,
	})
	return next, true
}

// CurrentApprovalStep is the number of completed review stages, or -1 when rejected.
func (t Timesheet) CurrentApprovalStep() int {
	switch t.Status {
	case StatusForemanApproved:
		return 1
	case StatusInchargeApproved:
		return 2
	case StatusCheckingApproved:
		return 3
	case StatusManagerApproved:
		return 4
	case StatusRejected, StatusCancelled:
		return -1
	default:
		return 0
	}
}

func (t Timesheet) ApprovalProgressPercentage() int {
	switch t.Status {
	case StatusSubmitted:
		return 10
	case StatusForemanApproved:
		return 40
	case StatusInchargeApproved:
		return 60
	case StatusCheckingApproved:
		return 80
	case StatusManagerApproved:
		return 100
	default:
		return 0
	}
}

func (t Timesheet) CanBeEdited() bool {
	return t.Status == StatusDraft || t.Status == StatusRejected
}

func (t Timesheet) CanBeSubmitted() bool {
	_, ok := NextStatus(t.Status, ActionSubmit)
	return ok
}

// NextStage returns the stage that has to approve next, if any.
func (t Timesheet) NextStage() (Stage, bool) {
	for _, s := range Stages {
		action := approveActions[s]
		if _, ok := NextStatus(t.Status, action); ok {
			return s, true
		}
	}
	return "", false
}
