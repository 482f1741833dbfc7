package timesheet

import (
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
)

func mapTimesheetToResponse(ts timesheet.Timesheet) timesheet.TimesheetResponse {
	violations := ts.GeofenceViolations
	if violations == nil {
		violations = []timesheet.GeofenceViolation{}
	}

	resp := timesheet.TimesheetResponse{
		ID:             ts.ID,
		EmployeeID:     ts.EmployeeID,
		ProjectID:      ts.ProjectID,
		GeofenceZoneID: ts.GeofenceZoneID,
		Date:           ts.Date.Format("2006-01-02"),
		StartTime:      formatTime(ts.StartTime),
		EndTime:        formatTime(ts.EndTime),
		Description:    ts.Description,

		RegularHours:  ts.RegularHours,
		OvertimeHours: ts.OvertimeHours,
		TotalHours:    ts.TotalHours,

		StartLatitude:      ts.StartLatitude,
		StartLongitude:     ts.StartLongitude,
		EndLatitude:        ts.EndLatitude,
		EndLongitude:       ts.EndLongitude,
		IsWithinGeofence:   ts.IsWithinGeofence,
		DistanceFromSite:   ts.DistanceFromSite,
		GeofenceViolations: violations,
		AccuracyMeters:     ts.AccuracyMeters,
		LocationVerified:   ts.LocationVerified,
		VerificationMethod: ts.VerificationMethod,

		Status:                     string(ts.Status),
		CurrentApprovalStep:        ts.CurrentApprovalStep(),
		ApprovalProgressPercentage: ts.ApprovalProgressPercentage(),
		CanBeEdited:                ts.CanBeEdited(),
		CanBeSubmitted:             ts.CanBeSubmitted(),
		SubmittedAt:                formatTime(ts.SubmittedAt),
		Approvals: map[timesheet.Stage]*timesheet.StageApprovalResponse{
			timesheet.StageForeman:  stageApproval(ts.ForemanApprovalBy, ts.ForemanApprovalAt, ts.ForemanApprovalNotes),
			timesheet.StageIncharge: stageApproval(ts.InchargeApprovalBy, ts.InchargeApprovalAt, ts.InchargeApprovalNotes),
			timesheet.StageChecking: stageApproval(ts.CheckingApprovalBy, ts.CheckingApprovalAt, ts.CheckingApprovalNotes),
			timesheet.StageManager:  stageApproval(ts.ManagerApprovalBy, ts.ManagerApprovalAt, ts.ManagerApprovalNotes),
		},

		Version:   ts.Version,
		CreatedAt: ts.CreatedAt.Format(time.RFC3339),
		UpdatedAt: ts.UpdatedAt.Format(time.RFC3339),
	}

	if next, ok := ts.NextStage(); ok {
		stage := string(next)
		resp.NextStage = &stage
	}

	if ts.Status == timesheet.StatusRejected {
		resp.Rejection = &timesheet.RejectionResponse{
			RejectedBy: ts.RejectedBy,
			RejectedAt: formatTime(ts.RejectedAt),
			Reason:     ts.RejectionReason,
		}
		if ts.RejectionStage != nil {
			stage := string(*ts.RejectionStage)
			resp.Rejection.Stage = &stage
		}
	}

	return resp
}

// stageApproval returns nil for a stage nobody has approved yet.
func stageApproval(by *string, at *time.Time, notes *string) *timesheet.StageApprovalResponse {
	if by == nil {
		return nil
	}
	return &timesheet.StageApprovalResponse{
		ApprovedBy: by,
		ApprovedAt: formatTime(at),
		Notes:      notes,
	}
}

func mapEventToResponse(e timesheet.ApprovalEvent) timesheet.ApprovalEventResponse {
	resp := timesheet.ApprovalEventResponse{
		ID:         e.ID,
		Action:     string(e.Action),
		ActorID:    e.ActorID,
		Notes:      e.Notes,
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		OccurredAt: e.OccurredAt.Format(time.RFC3339),
	}
	if e.Stage != nil {
		stage := string(*e.Stage)
		resp.Stage = &stage
	}
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
