// Package calendar computes the date windows used by the reservation calendars and the routine generator.
//
// Dates are civil dates in the venue's timezone, carried as YYYY-MM-DD strings at package boundaries
// and as midnight UTC [time.Time] values internally so that day arithmetic never crosses a DST change.
package calendar

import (
	"fmt"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// Day is one cell of a calendar grid.
type Day struct {
	Date    string `json:"date"`
	Weekday int    `json:"weekday"` // 1 = Monday .. 7 = Sunday
	InMonth bool   `json:"in_month"`
}

// Week is seven consecutive days starting on Monday.
type Week struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  [7]Day `json:"days"`
}

// Month is the grid of Monday-first weeks covering a calendar month.
type Month struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	First string `json:"first"` // first grid day, a Monday
	Last  string `json:"last"`  // last grid day, a Sunday
	Weeks []Week `json:"weeks"`
}

// Parse parses a YYYY-MM-DD date as midnight UTC.
func Parse(s string) (time.Time, error) {
	return models.ParseDate(s)
}

// Format formats t as YYYY-MM-DD.
func Format(t time.Time) string {
	return models.FormatDate(t)
}

// Today returns the current civil date in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format(models.DateLayout)
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekdayName returns the short English name of an ISO weekday, "Mon" for 1 through "Sun" for 7.
func WeekdayName(dow int) string {
	if dow < 1 || dow > 7 {
		return "?"
	}
	return time.Weekday(dow % 7).String()[:3]
}

// AddDays shifts a YYYY-MM-DD date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// WeekStart returns the Monday of the week containing date.
func WeekStart(date string) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return Format(mondayOf(t)), nil
}

func mondayOf(t time.Time) time.Time {
	return t.AddDate(0, 0, 1-ISOWeekday(t))
}

// WeekOf builds the Monday-first week containing date.
func WeekOf(date string) (Week, error) {
	t, err := Parse(date)
	if err != nil {
		return Week{}, err
	}
	return buildWeek(mondayOf(t), -1), nil
}

func buildWeek(monday time.Time, month time.Month) Week {
	w := Week{Start: Format(monday), End: Format(monday.AddDate(0, 0, 6))}
	for i := range w.Days {
		d := monday.AddDate(0, 0, i)
		w.Days[i] = Day{Date: Format(d), Weekday: i + 1, InMonth: month < 0 || d.Month() == month}
	}
	return w
}

// MonthGrid builds the weeks covering year-month, padded to whole weeks with days of the adjacent months.
func MonthGrid(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: month %d out of range", shared.ErrInvalidInput, month)
	}
	if year < 1900 || year > 9999 {
		return Month{}, fmt.Errorf("%w: year %d out of range", shared.ErrInvalidInput, year)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	m := Month{Year: year, Month: month}
	for monday := mondayOf(first); !monday.After(last); monday = monday.AddDate(0, 0, 7) {
		m.Weeks = append(m.Weeks, buildWeek(monday, time.Month(month)))
	}

	m.First = m.Weeks[0].Start
	m.Last = m.Weeks[len(m.Weeks)-1].End
	return m, nil
}

// Window is an inclusive date range.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains reports whether date falls inside the window.
func (w Window) Contains(date string) bool {
	return w.Start <= date && date <= w.End
}

// RoutineWindow returns the dates a routine covers in the week starting on monday.
//
// Days of week run 1 (Monday) to 7 (Sunday) and the window never wraps into the next week.
func RoutineWindow(monday string, startDOW, endDOW int) (Window, error) {
	t, err := Parse(monday)
	if err != nil {
		return Window{}, err
	}
	if ISOWeekday(t) != 1 {
		return Window{}, fmt.Errorf("%w: %s is not a Monday", shared.ErrInvalidInput, monday)
	}
	if startDOW < 1 || endDOW > 7 || endDOW < startDOW {
		return Window{}, fmt.Errorf("%w: day range %d-%d", shared.ErrInvalidInput, startDOW, endDOW)
	}

	return Window{
		Start: Format(t.AddDate(0, 0, startDOW-1)),
		End:   Format(t.AddDate(0, 0, endDOW-1)),
	}, nil
}
