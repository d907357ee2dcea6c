// Package budget evaluates configured budgets against newly recorded
// transactions and renders progress and alert text.
//
// This file implements the period-window strategies. Each budget period
// (daily, weekly, monthly, yearly) has its own resolver that derives the
// concrete [start, end) window containing a transaction instant, so the
// boundary arithmetic of each period stays independently testable.
package budget

import (
	"fmt"
	"time"

	"duitbot/internal/core"
)

// PeriodWindow is the [Start, End) instant range a budget is evaluated
// against for one transaction. Derived per evaluation, never stored.
type PeriodWindow struct {
	Start time.Time
	End   time.Time // exclusive
}

// WindowResolver derives the period window containing a transaction instant.
type WindowResolver interface {
	Window(at time.Time) PeriodWindow
}

// DailyResolver resolves the midnight-to-midnight UTC day.
type DailyResolver struct{}

func (DailyResolver) Window(at time.Time) PeriodWindow {
	at = at.UTC()
	start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return PeriodWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeeklyResolver resolves the 7-day window starting at the most recent
// Sunday (UTC) at or before the instant.
type WeeklyResolver struct{}

func (WeeklyResolver) Window(at time.Time) PeriodWindow {
	at = at.UTC()
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, -int(day.Weekday()))
	return PeriodWindow{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthlyResolver resolves first-of-month to first-of-next-month, UTC.
type MonthlyResolver struct{}

func (MonthlyResolver) Window(at time.Time) PeriodWindow {
	at = at.UTC()
	start := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	return PeriodWindow{Start: start, End: start.AddDate(0, 1, 0)}
}

// YearlyResolver resolves Jan 1 to Jan 1 of the next year, UTC.
type YearlyResolver struct{}

func (YearlyResolver) Window(at time.Time) PeriodWindow {
	at = at.UTC()
	start := time.Date(at.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return PeriodWindow{Start: start, End: start.AddDate(1, 0, 0)}
}

var windowResolvers = map[core.BudgetPeriod]WindowResolver{
	core.Daily:   DailyResolver{},
	core.Weekly:  WeeklyResolver{},
	core.Monthly: MonthlyResolver{},
	core.Yearly:  YearlyResolver{},
}

// ResolverFor returns the window resolver for a budget period.
func ResolverFor(period core.BudgetPeriod) (WindowResolver, error) {
	resolver, ok := windowResolvers[period]
	if !ok {
		return nil, fmt.Errorf("unknown budget period: %s", period)
	}
	return resolver, nil
}

// Clamp restricts the window to the budget's own [StartDate, EndDate) bounds.
func (w PeriodWindow) Clamp(b core.Budget) PeriodWindow {
	clamped := w
	if b.StartDate.After(clamped.Start) {
		clamped.Start = b.StartDate
	}
	if b.EndDate != nil && b.EndDate.Before(clamped.End) {
		clamped.End = *b.EndDate
	}
	return clamped
}

// Empty reports whether clamping collapsed the window.
func (w PeriodWindow) Empty() bool {
	return !w.Start.Before(w.End)
}
