package timesheet

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft            Status = "draft"
	StatusPending          Status = "pending"
	StatusSubmitted        Status = "submitted"
	StatusForemanApproved  Status = "foreman_approved"
	StatusInchargeApproved Status = "incharge_approved"
	StatusCheckingApproved Status = "checking_approved"
	StatusManagerApproved  Status = "manager_approved"
	StatusRejected         Status = "rejected"
	StatusCancelled        Status = "cancelled"
)

var validStatuses = map[Status]bool{
	StatusDraft:            true,
	StatusPending:          true,
	StatusSubmitted:        true,
	StatusForemanApproved:  true,
	StatusInchargeApproved: true,
	StatusCheckingApproved: true,
	StatusManagerApproved:  true,
	StatusRejected:         true,
	StatusCancelled:        true,
}

func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Stage is one of the four review steps.
type Stage string

const (
	StageForeman  Stage = "foreman"
	StageIncharge Stage = "incharge"
	StageChecking Stage = "checking"
	StageManager  Stage = "manager"
)

// Stages lists the review steps in pipeline order.
var Stages = []Stage{StageForeman, StageIncharge, StageChecking, StageManager}

func (s Stage) IsValid() bool {
	switch s {
	case StageForeman, StageIncharge, StageChecking, StageManager:
		return true
	}
	return false
}

type LocationKind string

const (
	LocationStart LocationKind = "start"
	LocationEnd   LocationKind = "end"
)

// GeofenceViolation is one out-of-zone location report, stored as JSONB on the timesheet.
type GeofenceViolation struct {
	Kind           LocationKind `json:"kind"`
	ZoneID         string       `json:"zone_id"`
	ZoneName       string       `json:"zone_name"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	DistanceMeters float64      `json:"distance_meters"`
	AccuracyMeters *float64     `json:"accuracy_meters,omitempty"`
	Strict         bool         `json:"strict"`
	RecordedAt     time.Time    `json:"recorded_at"`
}

// ApprovalEvent is an append-only audit row written for every workflow transition.
type ApprovalEvent struct {
	ID          string
	TimesheetID string
	Action      Action
	Stage       *Stage
	ActorID     string
	Notes       *string
	FromStatus  Status
	ToStatus    Status
	OccurredAt  time.Time
}

type Timesheet struct {
	ID             string
	CompanyID      string
	EmployeeID     string
	ProjectID      *string
	GeofenceZoneID *string
	Date           time.Time
	StartTime      *time.Time
	EndTime        *time.Time
	Description    *string

	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	// TotalHours is derived; call Recalculate after changing hours.
	TotalHours decimal.Decimal

	StartLatitude      *float64
	StartLongitude     *float64
	EndLatitude        *float64
	EndLongitude       *float64
	IsWithinGeofence   *bool
	DistanceFromSite   *float64
	GeofenceViolations []GeofenceViolation
	AccuracyMeters     *float64
	LocationVerified   bool
	VerificationMethod *string

	Status      Status
	SubmittedAt *time.Time

	ForemanApprovalBy     *string
	ForemanApprovalAt     *time.Time
	ForemanApprovalNotes  *string
	InchargeApprovalBy    *string
	InchargeApprovalAt    *time.Time
	InchargeApprovalNotes *string
	CheckingApprovalBy    *string
	CheckingApprovalAt    *time.Time
	CheckingApprovalNotes *string
	ManagerApprovalBy     *string
	ManagerApprovalAt     *time.Time
	ManagerApprovalNotes  *string

	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string
	RejectionStage  *Stage

	// Version is bumped on every persisted write and checked on status changes.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time

	// Events appended by workflow transitions that are not yet persisted.
	ApprovalEvents []ApprovalEvent
}

// New builds a draft timesheet with derived fields computed.
func New(companyID, employeeID string, date time.Time, regular, overtime decimal.Decimal) Timesheet {
	t := Timesheet{
		CompanyID:     companyID,
		EmployeeID:    employeeID,
		Date:          DateOnly(date),
		RegularHours:  regular,
		OvertimeHours: overtime,
		Status:        StatusDraft,
	}
	return t.Recalculate()
}

// Recalculate refreshes derived fields.
func (t Timesheet) Recalculate() Timesheet {
	t.TotalHours = t.RegularHours.Add(t.OvertimeHours)
	return t
}

// DateOnly truncates t to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
