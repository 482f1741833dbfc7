package timesheet

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultWeeklyHoursLimit     = 60
	DefaultMonthlyOvertimeLimit = 40
)

// Limits are the hour caps checked before a timesheet is saved.
type Limits struct {
	WeeklyHours     decimal.Decimal
	MonthlyOvertime decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{
		WeeklyHours:     decimal.NewFromInt(DefaultWeeklyHoursLimit),
		MonthlyOvertime: decimal.NewFromInt(DefaultMonthlyOvertimeLimit),
	}
}

// WeekBounds returns [Monday, next Monday) around date.
func WeekBounds(date time.Time) (time.Time, time.Time) {
	d := DateOnly(date)
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns [first of month, first of next month) around date.
func MonthBounds(date time.Time) (time.Time, time.Time) {
	d := DateOnly(date)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// RuleWindow is the date range the rules need existing entries for.
func RuleWindow(date time.Time) (time.Time, time.Time) {
	weekStart, weekEnd := WeekBounds(date)
	monthStart, monthEnd := MonthBounds(date)
	if weekStart.After(monthStart) {
		weekStart = monthStart
	}
	if weekEnd.Before(monthEnd) {
		weekEnd = monthEnd
	}
	return weekStart, weekEnd
}

// HasOverlap reports whether existing already holds an entry for the same
// employee on the candidate's date.
func HasOverlap(existing []Timesheet, candidate Timesheet) bool {
	day := DateOnly(candidate.Date)
	for _, e := range peers(existing, candidate) {
		if DateOnly(e.Date).Equal(day) {
			return true
		}
	}
	return false
}

// HasExceededWeeklyLimit reports whether regular+overtime hours for the
// candidate's calendar week would go over limit once the candidate is added.
func HasExceededWeeklyLimit(existing []Timesheet, candidate Timesheet, limit decimal.Decimal) bool {
	start, end := WeekBounds(candidate.Date)
	total := candidate.RegularHours.Add(candidate.OvertimeHours)
	for _, e := range peers(existing, candidate) {
		if inRange(e.Date, start, end) {
			total = total.Add(e.RegularHours).Add(e.OvertimeHours)
		}
	}
	return total.GreaterThan(limit)
}

// HasExceededMonthlyOvertimeLimit reports whether overtime hours for the
// candidate's calendar month would go over limit once the candidate is added.
func HasExceededMonthlyOvertimeLimit(existing []Timesheet, candidate Timesheet, limit decimal.Decimal) bool {
	start, end := MonthBounds(candidate.Date)
	total := candidate.OvertimeHours
	for _, e := range peers(existing, candidate) {
		if inRange(e.Date, start, end) {
			total = total.Add(e.OvertimeHours)
		}
	}
	return total.GreaterThan(limit)
}

// peers filters existing down to live entries of the same employee,
// excluding the candidate itself when it is already persisted.
func peers(existing []Timesheet, candidate Timesheet) []Timesheet {
	out := make([]Timesheet, 0, len(existing))
	for _, e := range existing {
		if e.EmployeeID != candidate.EmployeeID {
			continue
		}
		if e.DeletedAt != nil || e.Status == StatusCancelled {
			continue
		}
		if candidate.ID != "" && e.ID == candidate.ID {
			continue
		}
		out = append(out, e)
	}
	return out
}

func inRange(date, start, end time.Time) bool {
	d := DateOnly(date)
	return !d.Before(start) && d.Before(end)
}
