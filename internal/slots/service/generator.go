package service

import (
	"fmt"
	"time"

	"dogdays/pkg/model"
)

// GenerateWindows derives the bookable windows for a venue on one date: an
// ordered, non-overlapping sequence of slot-granularity intervals covering
// the venue's open hours for that weekday. Closed days yield an empty slice.
// Pure function of venue config and date.
func GenerateWindows(venue *model.Venue, date time.Time) ([]model.Window, error) {
	hours, open := venue.HoursFor(date)
	if !open {
		return nil, nil
	}

	loc := venue.Location()
	dayStart, err := atTimeOfDay(date, hours.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("venue %s: invalid opening time %q: %w", venue.ID, hours.Start, err)
	}
	dayEnd, err := atTimeOfDay(date, hours.End, loc)
	if err != nil {
		return nil, fmt.Errorf("venue %s: invalid closing time %q: %w", venue.ID, hours.End, err)
	}
	if !dayEnd.After(dayStart) {
		return nil, nil
	}

	granularity := venue.SlotDuration()
	var windows []model.Window
	for cursor := dayStart; !cursor.Add(granularity).After(dayEnd); cursor = cursor.Add(granularity) {
		windows = append(windows, model.Window{
			Start: cursor,
			End:   cursor.Add(granularity),
		})
	}
	return windows, nil
}

// GenerateWindowsRange generates windows for each date in [startDate, endDate],
// keyed by YYYY-MM-DD. Callers bound the range; there is no "all future
// dates" form.
func GenerateWindowsRange(venue *model.Venue, startDate, endDate time.Time, maxDays int) (map[string][]model.Window, error) {
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s before start date %s", endDate.Format(dateLayout), startDate.Format(dateLayout))
	}
	days := int(endDate.Sub(startDate).Hours()/24) + 1
	if days > maxDays {
		return nil, fmt.Errorf("date range of %d days exceeds the %d day limit", days, maxDays)
	}

	byDate := make(map[string][]model.Window, days)
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		windows, err := GenerateWindows(venue, d)
		if err != nil {
			return nil, err
		}
		byDate[d.Format(dateLayout)] = windows
	}
	return byDate, nil
}

// BucketWindows returns the slot-granularity windows a booking interval
// occupies. The interval must already be validated to lie inside open hours
// and align to the venue's granularity.
func BucketWindows(venue *model.Venue, start, end time.Time) []model.Window {
	granularity := venue.SlotDuration()
	var windows []model.Window
	for cursor := start; cursor.Before(end); cursor = cursor.Add(granularity) {
		windows = append(windows, model.Window{
			Start: cursor,
			End:   cursor.Add(granularity),
		})
	}
	return windows
}

const dateLayout = "2006-01-02"

func atTimeOfDay(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
