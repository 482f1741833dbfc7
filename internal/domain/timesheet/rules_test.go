package timesheet

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func entry(id, employee, date string, regular, overtime int64) Timesheet {
	ts := New("company-1", employee, day(date), decimal.NewFromInt(regular), decimal.NewFromInt(overtime))
	ts.ID = id
	return ts
}

func TestWeekBounds(t *testing.T) {
	// 2024-03-13 is a Wednesday
	start, end := WeekBounds(day("2024-03-13"))
	assert.Equal(t, day("2024-03-11"), start)
	assert.Equal(t, day("2024-03-18"), end)

	// Sunday belongs to the week that started the previous Monday
	start, _ = WeekBounds(day("2024-03-17"))
	assert.Equal(t, day("2024-03-11"), start)

	start, _ = WeekBounds(day("2024-03-11"))
	assert.Equal(t, day("2024-03-11"), start)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(day("2024-02-15"))
	assert.Equal(t, day("2024-02-01"), start)
	assert.Equal(t, day("2024-03-01"), end)
}

func TestRuleWindow(t *testing.T) {
	// week of 2024-02-26 runs into March
	start, end := RuleWindow(day("2024-02-28"))
	assert.Equal(t, day("2024-02-01"), start)
	assert.Equal(t, day("2024-03-04"), end)
}

func TestHasOverlap(t *testing.T) {
	existing := []Timesheet{
		entry("a", "employee-1", "2024-03-11", 8, 0),
		entry("b", "employee-2", "2024-03-12", 8, 0),
	}

	assert.True(t, HasOverlap(existing, entry("", "employee-1", "2024-03-11", 4, 0)))
	assert.False(t, HasOverlap(existing, entry("", "employee-1", "2024-03-12", 4, 0)))

	t.Run("an entry does not overlap itself", func(t *testing.T) {
		assert.False(t, HasOverlap(existing, entry("a", "employee-1", "2024-03-11", 9, 0)))
	})

	t.Run("deleted and cancelled entries are ignored", func(t *testing.T) {
		deleted := entry("c", "employee-1", "2024-03-13", 8, 0)
		now := time.Now()
		deleted.DeletedAt = &now
		cancelled := entry("d", "employee-1", "2024-03-14", 8, 0)
		cancelled.Status = StatusCancelled

		list := []Timesheet{deleted, cancelled}
		assert.False(t, HasOverlap(list, entry("", "employee-1", "2024-03-13", 8, 0)))
		assert.False(t, HasOverlap(list, entry("", "employee-1", "2024-03-14", 8, 0)))
	})
}

func TestHasExceededWeeklyLimit(t *testing.T) {
	limit := decimal.NewFromInt(DefaultWeeklyHoursLimit)
	// 55 hours in the week of 2024-03-11
	existing := []Timesheet{
		entry("a", "employee-1", "2024-03-11", 10, 1),
		entry("b", "employee-1", "2024-03-12", 10, 1),
		entry("c", "employee-1", "2024-03-13", 10, 1),
		entry("d", "employee-1", "2024-03-14", 10, 1),
		entry("e", "employee-1", "2024-03-15", 10, 1),
		// previous week and another employee do not count
		entry("f", "employee-1", "2024-03-10", 12, 0),
		entry("g", "employee-2", "2024-03-11", 12, 0),
	}

	assert.True(t, HasExceededWeeklyLimit(existing, entry("", "employee-1", "2024-03-16", 6, 0), limit))
	assert.False(t, HasExceededWeeklyLimit(existing, entry("", "employee-1", "2024-03-16", 5, 0), limit))
	assert.True(t, HasExceededWeeklyLimit(existing, entry("", "employee-1", "2024-03-16", 4, 2), limit))

	t.Run("editing an existing entry replaces its hours", func(t *testing.T) {
		edited := entry("e", "employee-1", "2024-03-15", 12, 4)
		assert.False(t, HasExceededWeeklyLimit(existing, edited, limit))
	})

	t.Run("next week starts fresh", func(t *testing.T) {
		assert.False(t, HasExceededWeeklyLimit(existing, entry("", "employee-1", "2024-03-18", 12, 4), limit))
	})
}

func TestHasExceededMonthlyOvertimeLimit(t *testing.T) {
	limit := decimal.NewFromInt(DefaultMonthlyOvertimeLimit)
	existing := []Timesheet{
		entry("a", "employee-1", "2024-03-01", 8, 10),
		entry("b", "employee-1", "2024-03-08", 8, 10),
		entry("c", "employee-1", "2024-03-15", 8, 10),
		entry("d", "employee-1", "2024-02-29", 8, 10),
	}

	assert.False(t, HasExceededMonthlyOvertimeLimit(existing, entry("", "employee-1", "2024-03-20", 8, 10), limit))
	assert.True(t, HasExceededMonthlyOvertimeLimit(existing, entry("", "employee-1", "2024-03-20", 8, 11), limit))
	assert.False(t, HasExceededMonthlyOvertimeLimit(existing, entry("", "employee-1", "2024-04-01", 8, 11), limit))
}
